// Package fetcher polls the WireGuard Dashboard API for one interface.
//
// Fetcher.Fetch issues GET {url}/getWireguardConfigurationInfo with the
// wg-dashboard-apikey header (injected by apiKeyRoundTripper in client.go)
// and normalizes the JSON answer into a types.InterfaceSnapshot.
//
// Retry policy: up to Config.MaxRetries attempts with a fixed RetryDelay
// between them. Transport errors and non-2xx answers are retried; HTTP 401/403
// (ReasonAuthRejected) and unparseable 2xx bodies (ReasonMalformed) are not.
// Every failure is returned as *Error carrying its Reason.
package fetcher
