package compute

import "github.com/obsidianstack/wgmonitor/pkg/types"

// EscalationState tracks consecutive fetch failures. The zero value is the
// Normal state; Notified marks the Degraded state, entered when the failure
// count reaches the threshold and left on the next success.
type EscalationState struct {
	ConsecutiveFailures int  `json:"consecutive_failures"`
	Notified            bool `json:"notified"`
}

// Degraded reports whether the API-unavailable notification has been sent.
func (s EscalationState) Degraded() bool { return s.Notified }

// OnFailure records one failed fetch. It returns api_unavailable exactly once,
// on the failure that brings the count to threshold; later failures are
// silent until a success resets the state.
func (s EscalationState) OnFailure(threshold int) (EscalationState, []types.Event) {
	if threshold < 1 {
		threshold = 1
	}
	s.ConsecutiveFailures++
	if s.ConsecutiveFailures >= threshold && !s.Notified {
		s.Notified = true
		return s, []types.Event{types.APIUnavailable(s.ConsecutiveFailures)}
	}
	return s, nil
}

// OnSuccess records a successful fetch. It returns api_recovered when the
// state was Degraded and always resets the failure count.
func (s EscalationState) OnSuccess() (EscalationState, []types.Event) {
	var events []types.Event
	if s.Notified {
		events = []types.Event{types.APIRecovered()}
	}
	return EscalationState{}, events
}
