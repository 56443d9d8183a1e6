// Package security inspects the TLS certificate of the WG Dashboard API
// endpoint so an expiring certificate is noticed before it breaks polling.
package security
