package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/obsidianstack/wgmonitor/monitor/internal/compute"
	"github.com/obsidianstack/wgmonitor/monitor/internal/fetcher"
	"github.com/obsidianstack/wgmonitor/pkg/types"
)

const defaultSendTimeout = 30 * time.Second

// Fetcher returns the current interface snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) (types.InterfaceSnapshot, error)
}

// Notifier delivers a tick's events together with the current verdict.
type Notifier interface {
	Dispatch(ctx context.Context, events []types.Event, verdict *types.VerdictSet, at time.Time) error
}

// Observer receives the report of every completed tick.
// Observe is called on the scheduler goroutine and must not block.
type Observer interface {
	Observe(report types.TickReport)
}

// Settings are the tunables of the loop. They can be replaced at runtime
// with Reload.
type Settings struct {
	Interface        string
	Peers            []string
	Interval         time.Duration
	HandshakeTimeout time.Duration
	FailureThreshold int

	// SendTimeout bounds the dispatch of one tick's notifications.
	SendTimeout time.Duration
}

// State is what the monitor remembers between ticks.
type State struct {
	// LastVerdict is nil until the first successful evaluation, and again
	// after the API has been declared unavailable.
	LastVerdict *types.VerdictSet

	Escalation compute.EscalationState
}

// Scheduler runs ticks sequentially on one goroutine.
type Scheduler struct {
	settings  Settings
	fetcher   Fetcher
	notifier  Notifier
	observers []Observer
	clock     clock.Clock
	reload    chan Settings
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the clock used for sleeping and timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithObservers registers observers for tick reports.
func WithObservers(obs ...Observer) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, obs...) }
}

// New returns a Scheduler.
func New(settings Settings, f Fetcher, n Notifier, opts ...Option) (*Scheduler, error) {
	settings = withDefaults(settings)
	if err := validate(settings); err != nil {
		return nil, err
	}
	s := &Scheduler{
		settings: settings,
		fetcher:  f,
		notifier: n,
		clock:    clock.New(),
		reload:   make(chan Settings, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func validate(st Settings) error {
	switch {
	case len(st.Peers) == 0:
		return errors.New("scheduler: at least one monitored peer is required")
	case st.Interval <= 0:
		return errors.New("scheduler: interval must be positive")
	case st.HandshakeTimeout <= 0:
		return errors.New("scheduler: handshake timeout must be positive")
	}
	return nil
}

func withDefaults(st Settings) Settings {
	if st.FailureThreshold < 1 {
		st.FailureThreshold = 1
	}
	if st.SendTimeout <= 0 {
		st.SendTimeout = defaultSendTimeout
	}
	// Each peer is evaluated once; a repeated name would report every flip twice.
	seen := make(map[string]bool, len(st.Peers))
	peers := make([]string, 0, len(st.Peers))
	for _, p := range st.Peers {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		peers = append(peers, p)
	}
	st.Peers = peers
	return st
}

// Reload queues new settings; they take effect before the next tick.
// Safe to call from any goroutine. If an earlier reload is still queued it is
// replaced.
func (s *Scheduler) Reload(st Settings) error {
	st = withDefaults(st)
	if err := validate(st); err != nil {
		return err
	}
	for {
		select {
		case s.reload <- st:
			return nil
		default:
			// Drop the stale pending reload and try again.
			select {
			case <-s.reload:
			default:
			}
		}
	}
}

// Run ticks until ctx is cancelled. It always returns nil; failures inside a
// tick are absorbed by the escalation logic.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler: starting",
		"interface", s.settings.Interface,
		"peers", s.settings.Peers,
		"interval", s.settings.Interval,
		"handshake_timeout", s.settings.HandshakeTimeout,
	)

	var st State
	for {
		s.applyPendingReload()
		st, _ = s.Tick(ctx, st)
		if ctx.Err() != nil {
			slog.Info("scheduler: stopped")
			return nil
		}
		if !s.sleep(ctx) {
			slog.Info("scheduler: stopped")
			return nil
		}
	}
}

// RunOnce performs a single tick from an empty state. Because there is no
// prior observation, it never reports peer or interface transitions.
func (s *Scheduler) RunOnce(ctx context.Context) types.TickReport {
	_, report := s.Tick(ctx, State{})
	return report
}

// Tick performs one fetch → evaluate → detect → escalate → dispatch cycle and
// returns the next state. If ctx is cancelled during the fetch, st is
// returned unchanged.
func (s *Scheduler) Tick(ctx context.Context, st State) (State, types.TickReport) {
	cfg := s.settings
	now := s.clock.Now().UTC()
	report := types.TickReport{Interface: cfg.Interface, At: now}

	var events []types.Event
	snap, err := s.fetcher.Fetch(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		slog.Info("scheduler: tick aborted by shutdown")
		report.Error = ctx.Err().Error()
		report.Verdict = st.LastVerdict
		return st, report

	case err != nil:
		reason := failureReason(err)
		report.FailureReason = string(reason)
		report.Error = err.Error()

		var escEvents []types.Event
		prev := st.Escalation
		st.Escalation, escEvents = st.Escalation.OnFailure(cfg.FailureThreshold)
		events = append(events, escEvents...)
		if st.Escalation.Degraded() && !prev.Degraded() {
			// Transitions during an outage are unknowable; re-baseline on recovery.
			st.LastVerdict = nil
		}

		logFailure(reason, err, st.Escalation)
		report.Verdict = st.LastVerdict

	default:
		report.Success = true
		verdict := compute.Evaluate(snap, cfg.Peers, cfg.HandshakeTimeout, now)

		var escEvents []types.Event
		st.Escalation, escEvents = st.Escalation.OnSuccess()
		events = append(events, escEvents...)
		events = append(events, compute.Detect(st.LastVerdict, verdict)...)

		st.LastVerdict = &verdict
		report.Verdict = &verdict

		slog.Info("scheduler: status check",
			"interface", cfg.Interface,
			"interface_up", verdict.InterfaceUp,
			"connected", verdict.ConnectedCount(),
			"peers", len(verdict.Peers),
		)
		for _, p := range verdict.Peers {
			if !p.Connected {
				slog.Debug("scheduler: peer not connected", "peer", p.Name)
			}
		}
	}

	report.Events = events
	report.ConsecutiveFailures = st.Escalation.ConsecutiveFailures
	report.Degraded = st.Escalation.Degraded()

	if len(events) > 0 {
		slog.Info("scheduler: transitions detected", "events", eventStrings(events))
		if err := s.dispatch(ctx, events, st.LastVerdict, now); err != nil {
			report.NotifyError = err.Error()
		}
	}

	for _, o := range s.observers {
		o.Observe(report)
	}
	return st, report
}

// dispatch sends events on a context that survives shutdown so a message is
// never abandoned half-sent, bounded by SendTimeout.
func (s *Scheduler) dispatch(ctx context.Context, events []types.Event, verdict *types.VerdictSet, at time.Time) error {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.settings.SendTimeout)
	defer cancel()

	var v *types.VerdictSet
	if verdict != nil {
		cp := verdict.Clone()
		v = &cp
	}
	err := s.notifier.Dispatch(sendCtx, events, v, at)
	if err != nil {
		slog.Error("scheduler: notification dispatch failed", "err", err)
	}
	return err
}

// sleep waits one interval. It returns false if ctx was cancelled first.
// A reload that arrives while sleeping is applied immediately; a changed
// interval takes effect from the next sleep.
func (s *Scheduler) sleep(ctx context.Context) bool {
	t := s.clock.Timer(s.settings.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case st := <-s.reload:
			s.apply(st)
		case <-t.C:
			return true
		}
	}
}

func (s *Scheduler) applyPendingReload() {
	select {
	case st := <-s.reload:
		s.apply(st)
	default:
	}
}

func (s *Scheduler) apply(st Settings) {
	slog.Info("scheduler: settings reloaded",
		"peers", st.Peers,
		"interval", st.Interval,
		"handshake_timeout", st.HandshakeTimeout,
		"failure_threshold", st.FailureThreshold,
	)
	s.settings = st
}

func failureReason(err error) fetcher.Reason {
	var ferr *fetcher.Error
	if errors.As(err, &ferr) {
		return ferr.Reason
	}
	return fetcher.ReasonUnreachable
}

func logFailure(reason fetcher.Reason, err error, esc compute.EscalationState) {
	attrs := []any{
		"reason", reason,
		"consecutive_failures", esc.ConsecutiveFailures,
		"degraded", esc.Degraded(),
		"err", err,
	}
	switch reason {
	case fetcher.ReasonAuthRejected:
		slog.Error("scheduler: API rejected the key; check WG_API_KEY", attrs...)
	case fetcher.ReasonMalformed:
		slog.Error("scheduler: API returned an unexpected response", attrs...)
	default:
		slog.Warn("scheduler: failed to get WireGuard status", attrs...)
	}
}

func eventStrings(events []types.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.String()
	}
	return out
}
