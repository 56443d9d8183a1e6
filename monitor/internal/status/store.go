package status

import (
	"sync"
	"time"

	"github.com/obsidianstack/wgmonitor/monitor/internal/security"
	"github.com/obsidianstack/wgmonitor/pkg/types"
)

// DefaultEventCapacity bounds the event history.
const DefaultEventCapacity = 200

// Health states.
const (
	StateOK       = "ok"
	StateDegraded = "degraded"
	StateUnknown  = "unknown"
)

// RecordedEvent is a transition event with the tick time it was emitted at.
type RecordedEvent struct {
	types.Event
	At time.Time `json:"at"`
}

// Health summarizes the monitor's own condition.
type Health struct {
	State               string    `json:"state"`
	Interface           string    `json:"interface"`
	StartedAt           time.Time `json:"started_at"`
	LastTick            time.Time `json:"last_tick"`
	LastSuccess         time.Time `json:"last_success"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Ticks               int       `json:"ticks"`
}

// Store is a thread-safe holder for the latest monitoring state.
// It implements scheduler.Observer.
type Store struct {
	mu          sync.RWMutex
	iface       string
	startedAt   time.Time
	last        *types.TickReport
	lastSuccess time.Time
	ticks       int
	events      []RecordedEvent // ring, oldest first once full
	capacity    int
	cert        *security.CertStatus
	now         func() time.Time // injectable for deterministic tests
}

// New creates a Store for iface holding at most capacity events
// (DefaultEventCapacity when capacity < 1).
func New(iface string, capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultEventCapacity
	}
	s := &Store{
		iface:    iface,
		capacity: capacity,
		now:      time.Now,
	}
	s.startedAt = s.now().UTC()
	return s
}

// Observe records a tick report.
func (s *Store) Observe(r types.TickReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc := r
	s.last = &rc
	s.ticks++
	if r.Success {
		s.lastSuccess = r.At
	}
	for _, e := range r.Events {
		s.appendEvent(RecordedEvent{Event: e, At: r.At})
	}
}

func (s *Store) appendEvent(e RecordedEvent) {
	if len(s.events) == s.capacity {
		copy(s.events, s.events[1:])
		s.events = s.events[:len(s.events)-1]
	}
	s.events = append(s.events, e)
}

// Latest returns the most recent tick report.
func (s *Store) Latest() (types.TickReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return types.TickReport{}, false
	}
	return *s.last, true
}

// Events returns up to limit recorded events, newest first. limit <= 0
// returns all of them.
func (s *Store) Events(limit int) []RecordedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]RecordedEvent, 0, n)
	for i := len(s.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.events[i])
	}
	return out
}

// SetCert records the latest TLS check result.
func (s *Store) SetCert(cs *security.CertStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cert = cs
}

// Cert returns the latest TLS check result, or nil if none was recorded.
func (s *Store) Cert() *security.CertStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cert
}

// Health derives the monitor's health: degraded while the API is declared
// unavailable, unknown until the first successful fetch, ok otherwise.
func (s *Store) Health() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := Health{
		State:       StateUnknown,
		Interface:   s.iface,
		StartedAt:   s.startedAt,
		LastSuccess: s.lastSuccess,
		Ticks:       s.ticks,
	}
	if s.last == nil {
		return h
	}
	h.LastTick = s.last.At
	h.ConsecutiveFailures = s.last.ConsecutiveFailures
	switch {
	case s.last.Degraded:
		h.State = StateDegraded
	case s.lastSuccess.IsZero():
		h.State = StateUnknown
	default:
		h.State = StateOK
	}
	return h
}

// Uptime returns how long the store has existed.
func (s *Store) Uptime() time.Duration {
	return s.now().Sub(s.startedAt)
}
