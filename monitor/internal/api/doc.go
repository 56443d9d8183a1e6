// Package api serves the monitor's read-only status surface under /api/v1.
//
// Routes:
//
//	GET /api/v1/health  health state derived from the last ticks
//	GET /api/v1/status  last tick report with the verdict table
//	GET /api/v1/events  recent transition events, newest first (?limit=n)
//	GET /api/v1/cert    TLS status of the dashboard endpoint
//
// RequireAPIKey guards any handler with a static key header.
package api
