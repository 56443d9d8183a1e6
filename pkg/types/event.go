package types

import (
	"fmt"
	"time"
)

// EventKind identifies what kind of transition an Event describes.
type EventKind string

const (
	EventPeerDisconnected EventKind = "peer_disconnected"
	EventPeerReconnected  EventKind = "peer_reconnected"
	EventInterfaceDown    EventKind = "interface_down"
	EventInterfaceUp      EventKind = "interface_up"
	EventAPIUnavailable   EventKind = "api_unavailable"
	EventAPIRecovered     EventKind = "api_recovered"
)

// Event is one state transition. Peer is set for the peer kinds,
// FailureCount for EventAPIUnavailable.
type Event struct {
	Kind         EventKind `json:"kind"`
	Peer         string    `json:"peer,omitempty"`
	FailureCount int       `json:"failure_count,omitempty"`
}

func PeerDisconnected(name string) Event { return Event{Kind: EventPeerDisconnected, Peer: name} }
func PeerReconnected(name string) Event  { return Event{Kind: EventPeerReconnected, Peer: name} }
func InterfaceDown() Event               { return Event{Kind: EventInterfaceDown} }
func InterfaceUp() Event                 { return Event{Kind: EventInterfaceUp} }
func APIRecovered() Event                { return Event{Kind: EventAPIRecovered} }

func APIUnavailable(failures int) Event {
	return Event{Kind: EventAPIUnavailable, FailureCount: failures}
}

func (e Event) String() string {
	switch e.Kind {
	case EventPeerDisconnected, EventPeerReconnected:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Peer)
	case EventAPIUnavailable:
		return fmt.Sprintf("%s(%d)", e.Kind, e.FailureCount)
	default:
		return string(e.Kind)
	}
}

// TickReport summarizes one scheduler tick for observers (status store,
// metrics, WebSocket hub).
type TickReport struct {
	Interface string    `json:"interface"`
	At        time.Time `json:"at"`
	Success   bool      `json:"success"`

	// FailureReason and Error are set when the fetch failed.
	FailureReason string `json:"failure_reason,omitempty"`
	Error         string `json:"error,omitempty"`

	// Verdict is the verdict computed this tick, or the last known one after
	// a failed fetch. Nil until the first successful evaluation.
	Verdict *VerdictSet `json:"verdict,omitempty"`

	Events              []Event `json:"events,omitempty"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	Degraded            bool    `json:"degraded"`

	// NotifyError is set when dispatching this tick's events failed.
	NotifyError string `json:"notify_error,omitempty"`
}
