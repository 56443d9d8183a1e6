// Package status keeps the in-memory view served by the status API: the
// latest tick report, a bounded history of transition events and the TLS
// status of the dashboard endpoint. Nothing here survives a restart.
package status
