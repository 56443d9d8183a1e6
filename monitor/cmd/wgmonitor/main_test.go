package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/wgmonitor/monitor/internal/config"
	"github.com/obsidianstack/wgmonitor/monitor/internal/notify"
	"github.com/obsidianstack/wgmonitor/monitor/internal/scheduler"
	"github.com/obsidianstack/wgmonitor/pkg/types"
)

type nopFetcher struct{}

func (nopFetcher) Fetch(context.Context) (types.InterfaceSnapshot, error) {
	return types.InterfaceSnapshot{}, nil
}

type nopSender struct{}

func (nopSender) Send(context.Context, notify.Message) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{URL: "http://localhost:10086/api", ConfigName: "wg0"},
		Monitor: config.MonitorConfig{
			Peers:            []string{"laptop"},
			CheckInterval:    time.Minute,
			HandshakeTimeout: 5 * time.Minute,
			FailureThreshold: 3,
		},
		SMTP: config.SMTPConfig{To: []string{"ops@example.com"}, SendTimeout: 30 * time.Second},
	}
}

func TestSettingsFrom(t *testing.T) {
	st := settingsFrom(testConfig())
	assert.Equal(t, scheduler.Settings{
		Interface:        "wg0",
		Peers:            []string{"laptop"},
		Interval:         time.Minute,
		HandshakeTimeout: 5 * time.Minute,
		FailureThreshold: 3,
		SendTimeout:      30 * time.Second,
	}, st)
}

func TestReloader_Apply(t *testing.T) {
	current := testConfig()
	sched, err := scheduler.New(settingsFrom(current), nopFetcher{}, nil)
	require.NoError(t, err)
	d := notify.NewDispatcher(nopSender{}, "wg0", current.SMTP.To)
	r := &reloader{last: current, sched: sched, dispatcher: d}

	updated := testConfig()
	updated.SMTP.To = []string{"a@example.com", "b@example.com"}
	r.apply(updated)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, d.Recipients())
	assert.Same(t, updated, r.last)

	// An invalid reload leaves recipients and the last config untouched.
	bad := testConfig()
	bad.Monitor.Peers = nil
	bad.SMTP.To = []string{"x@example.com"}
	r.apply(bad)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, d.Recipients())
	assert.Same(t, updated, r.last)
}

func TestReloader_FixedSettingChangeReportedOnce(t *testing.T) {
	current := testConfig()
	sched, err := scheduler.New(settingsFrom(current), nopFetcher{}, nil)
	require.NoError(t, err)
	r := &reloader{last: current, sched: sched, dispatcher: notify.NewDispatcher(nopSender{}, "wg0", nil)}

	changedKey := testConfig()
	changedKey.API.Key = "rotated"
	assert.Equal(t, []string{"api"}, restartRequired(r.last, changedKey))
	r.apply(changedKey)

	// The same file reloaded again is not a new change.
	again := testConfig()
	again.API.Key = "rotated"
	assert.Empty(t, restartRequired(r.last, again))
}

func TestRestartRequired_SMTPCredentials(t *testing.T) {
	a := testConfig()
	for name, mutate := range map[string]func(*config.Config){
		"username": func(c *config.Config) { c.SMTP.Username = "new@example.com" },
		"password": func(c *config.Config) { c.SMTP.Password = "new-password" },
		"from":     func(c *config.Config) { c.SMTP.From = "alerts@example.com" },
	} {
		b := testConfig()
		mutate(b)
		assert.Equal(t, []string{"smtp credentials"}, restartRequired(a, b), name)
	}
	assert.Empty(t, restartRequired(a, testConfig()))
}

func TestSetupLogging(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	_, err := setupLogging(logOptions{format: "xml"})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "monitor.log")
	closeLog, err := setupLogging(logOptions{format: "text", level: slog.LevelInfo, file: path})
	require.NoError(t, err)
	slog.Info("hello from test")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
}
