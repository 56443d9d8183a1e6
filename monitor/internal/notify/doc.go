// Package notify turns transition events into human-readable messages and
// delivers them by email.
//
// Compose groups a tick's events by category (interface, disconnects,
// reconnects, API outage, API recovery) so a burst of peer flaps yields one
// message per category, not one per peer. Each message carries the full
// verdict table.
//
// Dispatcher sends the composed messages through a Sender. Delivery errors are
// logged and returned combined; they never change monitor state.
// EmailSender is the SMTP Sender, built on github.com/wneessen/go-mail.
package notify
