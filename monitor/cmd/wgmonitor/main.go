package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/obsidianstack/wgmonitor/monitor/internal/api"
	"github.com/obsidianstack/wgmonitor/monitor/internal/config"
	"github.com/obsidianstack/wgmonitor/monitor/internal/fetcher"
	"github.com/obsidianstack/wgmonitor/monitor/internal/metrics"
	"github.com/obsidianstack/wgmonitor/monitor/internal/notify"
	"github.com/obsidianstack/wgmonitor/monitor/internal/scheduler"
	"github.com/obsidianstack/wgmonitor/monitor/internal/security"
	"github.com/obsidianstack/wgmonitor/monitor/internal/status"
	"github.com/obsidianstack/wgmonitor/monitor/internal/ws"
)

const (
	certCheckInterval = 24 * time.Hour
	shutdownTimeout   = 10 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "optional YAML config file")
	envFile := flag.String("env-file", ".env", "dotenv file read before the process environment")
	verbose := flag.Bool("verbose", false, "log at debug level")
	debug := flag.Bool("debug", false, "log at debug level with source locations")
	logFormat := flag.String("log-format", "json", "log format: json or text")
	testEmail := flag.Bool("test-email", false, "send a test notification and exit")
	checkOnce := flag.Bool("check-once", false, "run a single status check and exit")
	flag.Parse()

	logOpts := logOptions{format: *logFormat, level: slog.LevelInfo}
	if *verbose || *debug {
		logOpts.level = slog.LevelDebug
	}
	logOpts.addSource = *debug
	if _, err := setupLogging(logOpts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	slog.Info("wgmonitor starting", "config", *configPath, "env_file", *envFile)

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		var group interface{ Errors() []error }
		if !errors.As(err, &group) {
			slog.Error("failed to load config", "err", err)
			return 1
		}
		for _, e := range group.Errors() {
			slog.Error("invalid configuration", "err", e)
		}
		return 1
	}

	if cfg.Log.File != "" {
		logOpts.file = cfg.Log.File
		closeLog, err := setupLogging(logOpts)
		if err != nil {
			slog.Error("failed to open log file", "file", cfg.Log.File, "err", err)
			return 1
		}
		defer closeLog()
	}

	slog.Info("config loaded",
		"api_url", cfg.API.URL,
		"interface", cfg.API.ConfigName,
		"peers", cfg.Monitor.Peers,
		"check_interval", cfg.Monitor.CheckInterval,
		"handshake_timeout", cfg.Monitor.HandshakeTimeout,
		"max_retries", cfg.API.MaxRetries,
		"failure_threshold", cfg.Monitor.FailureThreshold,
		"recipients", cfg.SMTP.To,
	)
	if worst := cfg.WorstCaseFetch(); cfg.Monitor.CheckInterval <= worst {
		slog.Warn("check interval is not longer than the worst-case fetch time; ticks may run back to back",
			"check_interval", cfg.Monitor.CheckInterval,
			"worst_case_fetch", worst,
		)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	f, err := fetcher.New(fetcher.Config{
		Endpoint:           cfg.API.URL,
		APIKey:             cfg.API.Key,
		Interface:          cfg.API.ConfigName,
		Timeout:            cfg.API.ConnectionTimeout,
		MaxRetries:         cfg.API.MaxRetries,
		RetryDelay:         cfg.API.RetryDelay,
		InsecureSkipVerify: cfg.API.InsecureSkipVerify,
	})
	if err != nil {
		slog.Error("failed to build fetcher", "err", err)
		return 1
	}

	sender := notify.NewEmailSender(notify.SMTPConfig{
		Host:     cfg.SMTP.Server,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		Timeout:  cfg.SMTP.SendTimeout,
	})
	dispatcher := notify.NewDispatcher(sender, cfg.API.ConfigName, cfg.SMTP.To)

	if *testEmail {
		sendCtx, cancelSend := context.WithTimeout(ctx, cfg.SMTP.SendTimeout)
		defer cancelSend()
		if err := dispatcher.SendTest(sendCtx, time.Now()); err != nil {
			slog.Error("test notification failed", "err", err)
			return 1
		}
		slog.Info("test notification sent", "recipients", cfg.SMTP.To)
		return 0
	}

	store := status.New(cfg.API.ConfigName, status.DefaultEventCapacity)
	m := metrics.New(cfg.API.ConfigName)
	observers := []scheduler.Observer{store, m}

	var hub *ws.Hub
	if cfg.Status.Addr != "" {
		hub = ws.New(store, m.Gatherer(), ws.DefaultInterval)
		observers = append(observers, hub)
	}

	sched, err := scheduler.New(settingsFrom(cfg), f, dispatcher, scheduler.WithObservers(observers...))
	if err != nil {
		slog.Error("failed to build scheduler", "err", err)
		return 1
	}

	if *checkOnce {
		report := sched.RunOnce(ctx)
		if !report.Success {
			slog.Error("status check failed", "reason", report.FailureReason, "err", report.Error)
			return 1
		}
		slog.Info("status check complete",
			"interface_up", report.Verdict.InterfaceUp,
			"connected", report.Verdict.ConnectedCount(),
			"peers", len(report.Verdict.Peers),
		)
		return 0
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return sched.Run(gctx) })

	g.Go(func() error {
		checkCert(gctx, cfg, store)
		t := time.NewTicker(certCheckInterval)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				checkCert(gctx, cfg, store)
			}
		}
	})

	g.Go(func() error {
		r := &reloader{last: cfg, sched: sched, dispatcher: dispatcher}
		err := config.Watch(gctx, *configPath, *envFile, r.apply)
		if err != nil {
			// Hot reload is optional; keep monitoring without it.
			slog.Warn("config watcher stopped", "err", err)
		}
		return nil
	})

	if hub != nil {
		mux := http.NewServeMux()
		mux.Handle("/api/", api.RequireAPIKey(cfg.Status.APIKey, api.New(store, m.Gatherer())))
		mux.Handle("/ws/stream", api.RequireAPIKey(cfg.Status.APIKey, hub))
		mux.Handle("/metrics", m.Handler())

		httpSrv := &http.Server{
			Addr:              cfg.Status.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
		g.Go(func() error {
			slog.Info("status server listening", "addr", cfg.Status.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("wgmonitor stopped with error", "err", err)
		return 1
	}
	slog.Info("wgmonitor shut down")
	return 0
}

func settingsFrom(cfg *config.Config) scheduler.Settings {
	return scheduler.Settings{
		Interface:        cfg.API.ConfigName,
		Peers:            cfg.Monitor.Peers,
		Interval:         cfg.Monitor.CheckInterval,
		HandshakeTimeout: cfg.Monitor.HandshakeTimeout,
		FailureThreshold: cfg.Monitor.FailureThreshold,
		SendTimeout:      cfg.SMTP.SendTimeout,
	}
}

// reloader pushes the hot-reloadable settings of each reloaded config into
// the running components. Connection and credential settings are fixed for
// the life of the process; a change to them is reported once.
type reloader struct {
	last       *config.Config // last config seen by apply
	sched      *scheduler.Scheduler
	dispatcher *notify.Dispatcher
}

func (r *reloader) apply(updated *config.Config) {
	if err := r.sched.Reload(settingsFrom(updated)); err != nil {
		slog.Error("config reload rejected", "err", err)
		return
	}
	r.dispatcher.SetRecipients(updated.SMTP.To)
	slog.Info("config hot-reloaded",
		"peers", updated.Monitor.Peers,
		"recipients", updated.SMTP.To,
		"check_interval", updated.Monitor.CheckInterval,
	)
	if changed := restartRequired(r.last, updated); len(changed) > 0 {
		slog.Warn("settings changed that only apply after a restart", "settings", changed)
	}
	r.last = updated
}

// restartRequired lists the fixed settings that differ between a and b.
func restartRequired(a, b *config.Config) []string {
	var changed []string
	if a.API != b.API {
		changed = append(changed, "api")
	}
	if a.SMTP.Server != b.SMTP.Server || a.SMTP.Port != b.SMTP.Port {
		changed = append(changed, "smtp server")
	}
	if a.SMTP.Username != b.SMTP.Username || a.SMTP.Password != b.SMTP.Password || a.SMTP.From != b.SMTP.From {
		changed = append(changed, "smtp credentials")
	}
	if a.Status != b.Status {
		changed = append(changed, "status server")
	}
	if a.Log != b.Log {
		changed = append(changed, "log")
	}
	return changed
}

func checkCert(ctx context.Context, cfg *config.Config, store *status.Store) {
	cs := security.Check(ctx, cfg.API.URL, cfg.API.InsecureSkipVerify)
	if cs == nil {
		return
	}
	store.SetCert(cs)
	attrs := []any{"endpoint", cs.Endpoint, "status", cs.Status, "days_left", cs.DaysLeft, "not_after", cs.NotAfter}
	switch cs.Status {
	case security.StatusValid:
		slog.Info("api certificate checked", attrs...)
	case security.StatusUnreachable:
		slog.Warn("api certificate check failed", append(attrs, "err", cs.Error)...)
	default:
		slog.Warn("api certificate needs attention", attrs...)
	}
}
