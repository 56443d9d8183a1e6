package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/obsidianstack/wgmonitor/pkg/types"
)

// Config is what a Fetcher needs to reach the API.
type Config struct {
	// Endpoint is the API base URL, e.g. http://localhost:10086/api.
	Endpoint  string
	APIKey    string
	Interface string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// MaxRetries is the total number of attempts; values below 1 mean 1.
	MaxRetries int

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration

	InsecureSkipVerify bool
}

// Fetcher retrieves interface snapshots from the WireGuard Dashboard API.
// A Fetcher is not safe for concurrent Fetch calls; the scheduler keeps at
// most one in flight.
type Fetcher struct {
	cfg    Config
	url    string
	client *http.Client
	clock  clock.Clock
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithClock replaces the clock used for retry pauses and FetchedAt.
func WithClock(c clock.Clock) Option {
	return func(f *Fetcher) { f.clock = c }
}

// WithHTTPClient replaces the HTTP client. The API key header is only added
// by the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// New returns a Fetcher for cfg.
func New(cfg Config, opts ...Option) (*Fetcher, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("fetcher: endpoint is required")
	}
	if cfg.Interface == "" {
		return nil, errors.New("fetcher: interface name is required")
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	u, err := configurationURL(cfg.Endpoint, cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}

	f := &Fetcher{
		cfg:    cfg,
		url:    u,
		client: buildHTTPClient(cfg),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// URL returns the full request URL, including the configurationName query.
func (f *Fetcher) URL() string { return f.url }

// Fetch returns the current snapshot of the configured interface.
//
// On failure the error is an *Error, except when ctx is cancelled while
// waiting, in which case ctx.Err() is returned unchanged.
func (f *Fetcher) Fetch(ctx context.Context) (types.InterfaceSnapshot, error) {
	var last *Error
	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		snap, ferr := f.attempt(ctx)
		if ferr == nil {
			if attempt > 1 {
				slog.Info("fetcher: succeeded after retry", "attempt", attempt)
			}
			return snap, nil
		}
		if ctx.Err() != nil {
			return types.InterfaceSnapshot{}, ctx.Err()
		}

		ferr.Attempts = attempt
		last = ferr

		switch ferr.Reason {
		case ReasonAuthRejected:
			slog.Error("fetcher: API key rejected, not retrying",
				"status", ferr.StatusCode, "err", ferr.Err)
		case ReasonMalformed:
			slog.Error("fetcher: malformed API response",
				"status", ferr.StatusCode, "err", ferr.Err)
		default:
			slog.Warn("fetcher: attempt failed",
				"attempt", attempt,
				"max_attempts", f.cfg.MaxRetries,
				"reason", ferr.Reason,
				"status", ferr.StatusCode,
				"err", ferr.Err)
		}

		if !ferr.Retryable() {
			return types.InterfaceSnapshot{}, ferr
		}
		if attempt < f.cfg.MaxRetries {
			if err := f.sleep(ctx, f.cfg.RetryDelay); err != nil {
				return types.InterfaceSnapshot{}, err
			}
		}
	}
	return types.InterfaceSnapshot{}, last
}

// attempt performs exactly one request.
func (f *Fetcher) attempt(ctx context.Context) (types.InterfaceSnapshot, *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return types.InterfaceSnapshot{}, &Error{Reason: ReasonUnreachable, Err: fmt.Errorf("build request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return types.InterfaceSnapshot{}, &Error{Reason: classifyTransport(err), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return types.InterfaceSnapshot{}, &Error{
			Reason:     ReasonAuthRejected,
			StatusCode: resp.StatusCode,
			Err:        errors.New(bodySnippet(resp.Body)),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return types.InterfaceSnapshot{}, &Error{
			Reason:     ReasonUnreachable,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", bodySnippet(resp.Body)),
		}
	}

	snap, err := parseSnapshot(resp.Body, f.cfg.Interface, f.clock.Now().UTC())
	if err != nil {
		if isTimeout(err) {
			return types.InterfaceSnapshot{}, &Error{Reason: ReasonTimeout, StatusCode: resp.StatusCode, Err: err}
		}
		return types.InterfaceSnapshot{}, &Error{Reason: ReasonMalformed, StatusCode: resp.StatusCode, Err: err}
	}
	return snap, nil
}

// sleep waits for d or until ctx is done.
func (f *Fetcher) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := f.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// configurationURL joins the endpoint with the configuration-info path and
// the configurationName query parameter.
func configurationURL(endpoint, iface string) (string, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/") + "/getWireguardConfigurationInfo")
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("endpoint scheme %q is not http or https", u.Scheme)
	}
	q := u.Query()
	q.Set("configurationName", iface)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// classifyTransport maps a client.Do error to a Reason.
func classifyTransport(err error) Reason {
	if isTimeout(err) {
		return ReasonTimeout
	}
	return ReasonUnreachable
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// bodySnippet returns the first bytes of an error response for logging.
func bodySnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "empty body"
	}
	return s
}
