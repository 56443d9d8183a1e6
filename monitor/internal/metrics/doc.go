// Package metrics exports the monitor's tick outcomes as Prometheus metrics.
//
// Metrics implements scheduler.Observer. Every metric lives in a private
// registry so tests and the status API can read values back with Sample
// without touching the global default registry.
//
// Exported series (namespace wgmonitor):
//
//	ticks_total{result}                 counter  result=success|failure
//	fetch_failures_total{reason}        counter  fetcher failure reason
//	events_total{kind}                  counter  transition events emitted
//	notify_failures_total               counter  ticks whose dispatch failed
//	consecutive_failures                gauge
//	degraded                            gauge    1 after api_unavailable
//	interface_up                        gauge    last evaluated interface state
//	peers_monitored / peers_connected   gauge
//	peer_connected{peer}                gauge    per monitored peer
//	last_success_timestamp_seconds      gauge
package metrics
