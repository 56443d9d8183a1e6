package api

import (
	"time"

	"github.com/obsidianstack/wgmonitor/monitor/internal/status"
	"github.com/obsidianstack/wgmonitor/pkg/types"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	status.Health
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// PeerResponse is one row of the verdict table.
type PeerResponse struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// StatusResponse is the payload for GET /api/v1/status.
type StatusResponse struct {
	Interface           string             `json:"interface"`
	CheckedAt           *time.Time         `json:"checked_at,omitempty"`
	Success             bool               `json:"success"`
	FailureReason       string             `json:"failure_reason,omitempty"`
	Error               string             `json:"error,omitempty"`
	InterfaceUp         *bool              `json:"interface_up,omitempty"`
	ConnectedCount      int                `json:"connected_count"`
	Peers               []PeerResponse     `json:"peers"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
	Degraded            bool               `json:"degraded"`
	LastEvents          []types.Event      `json:"last_events"`
	NotifyError         string             `json:"notify_error,omitempty"`
	Counters            map[string]float64 `json:"counters,omitempty"`
	GeneratedAt         string             `json:"generated_at"` // RFC3339
}

// EventsResponse is the payload for GET /api/v1/events.
type EventsResponse struct {
	Events []status.RecordedEvent `json:"events"`
	Count  int                    `json:"count"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
