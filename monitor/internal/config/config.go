package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Default values applied when a setting is absent from every source.
const (
	DefaultAPIURL            = "http://localhost:10086/api"
	DefaultConfigName        = "wg0"
	DefaultCheckInterval     = 300 * time.Second
	DefaultHandshakeTimeout  = 300 * time.Second
	DefaultConnectionTimeout = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = 30 * time.Second
	DefaultFailureThreshold  = 3
	DefaultSMTPServer        = "smtp.gmail.com"
	DefaultSMTPPort          = 587
	DefaultSendTimeout       = 30 * time.Second
	DefaultRecipient         = "admin@example.com"
)

// Config is the full monitor configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Monitor MonitorConfig `yaml:"monitor"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	Status  StatusConfig  `yaml:"status"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig describes the WireGuard Dashboard API being polled.
type APIConfig struct {
	// URL is the API base, e.g. http://localhost:10086/api.
	URL string `yaml:"url"`

	// Key is sent in the wg-dashboard-apikey header.
	Key string `yaml:"key"`

	// ConfigName is the WireGuard interface (configuration) to monitor.
	ConfigName string `yaml:"config_name"`

	// ConnectionTimeout bounds a single HTTP request.
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`

	// MaxRetries is the total number of attempts per fetch.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// InsecureSkipVerify disables TLS verification for https API URLs.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// MonitorConfig holds the polling and evaluation settings.
type MonitorConfig struct {
	// Peers lists the peer names to monitor. Other peers are ignored.
	Peers []string `yaml:"peers"`

	CheckInterval    time.Duration `yaml:"check_interval"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// FailureThreshold is the number of consecutive failed fetches after
	// which an "API unavailable" notification is sent.
	FailureThreshold int `yaml:"failure_threshold"`
}

// SMTPConfig configures the email transport.
type SMTPConfig struct {
	Server   string   `yaml:"server"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`

	// SendTimeout bounds one delivery, including dial and TLS handshake.
	SendTimeout time.Duration `yaml:"send_timeout"`
}

// StatusConfig configures the optional status HTTP server.
type StatusConfig struct {
	// Addr is the listen address (e.g. ":9586"). Empty disables the server.
	Addr string `yaml:"addr"`

	// APIKey, when set, is required in the X-API-Key header of /api and /ws requests.
	APIKey string `yaml:"api_key"`
}

// LogConfig controls optional file logging.
type LogConfig struct {
	// File, when set, receives a copy of every log line.
	File string `yaml:"file"`
}

// MissingKeyError reports a required setting that no source provided.
type MissingKeyError struct {
	Key         string
	Description string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required setting %s (%s)", e.Key, e.Description)
}

// Load builds a Config from defaults, the YAML file at path, the dotenv file
// at envFile and the process environment, then validates it.
// Either path may be empty; a missing dotenv file is not an error.
func Load(path, envFile string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	env, err := readEnv(envFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := applyEnv(cfg, env); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Monitor.Peers = Dedupe(cfg.Monitor.Peers)
	cfg.SMTP.To = Dedupe(cfg.SMTP.To)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		API: APIConfig{
			URL:               DefaultAPIURL,
			ConfigName:        DefaultConfigName,
			ConnectionTimeout: DefaultConnectionTimeout,
			MaxRetries:        DefaultMaxRetries,
			RetryDelay:        DefaultRetryDelay,
		},
		Monitor: MonitorConfig{
			CheckInterval:    DefaultCheckInterval,
			HandshakeTimeout: DefaultHandshakeTimeout,
			FailureThreshold: DefaultFailureThreshold,
		},
		SMTP: SMTPConfig{
			Server:      DefaultSMTPServer,
			Port:        DefaultSMTPPort,
			To:          []string{DefaultRecipient},
			SendTimeout: DefaultSendTimeout,
		},
	}
}

// Validate checks required settings and ranges. All missing required keys
// are reported together; range errors follow them.
func Validate(cfg *Config) error {
	var err error

	required := []struct {
		key, desc, value string
	}{
		{"WG_API_KEY", "WireGuard API key", cfg.API.Key},
		{"SMTP_USERNAME", "SMTP username", cfg.SMTP.Username},
		{"SMTP_PASSWORD", "SMTP password", cfg.SMTP.Password},
		{"FROM_EMAIL", "from email address", cfg.SMTP.From},
	}
	for _, r := range required {
		if r.value == "" {
			err = multierr.Append(err, &MissingKeyError{Key: r.key, Description: r.desc})
		}
	}
	if len(cfg.Monitor.Peers) == 0 {
		err = multierr.Append(err, &MissingKeyError{Key: "MONITORED_PEERS", Description: "peer names to monitor"})
	}

	if cfg.API.URL == "" {
		err = multierr.Append(err, errors.New("api url must not be empty"))
	}
	if cfg.API.ConfigName == "" {
		err = multierr.Append(err, errors.New("api config_name must not be empty"))
	}
	if cfg.API.ConnectionTimeout <= 0 {
		err = multierr.Append(err, errors.New("connection timeout must be positive"))
	}
	if cfg.API.MaxRetries < 1 {
		err = multierr.Append(err, errors.New("max retries must be at least 1"))
	}
	if cfg.API.RetryDelay < 0 {
		err = multierr.Append(err, errors.New("retry delay must not be negative"))
	}
	if cfg.Monitor.CheckInterval <= 0 {
		err = multierr.Append(err, errors.New("check interval must be positive"))
	}
	if cfg.Monitor.HandshakeTimeout <= 0 {
		err = multierr.Append(err, errors.New("handshake timeout must be positive"))
	}
	if cfg.Monitor.FailureThreshold < 1 {
		err = multierr.Append(err, errors.New("failure threshold must be at least 1"))
	}
	if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("smtp port %d out of range", cfg.SMTP.Port))
	}
	if len(cfg.SMTP.To) == 0 {
		err = multierr.Append(err, errors.New("at least one recipient is required"))
	}
	if cfg.SMTP.SendTimeout <= 0 {
		err = multierr.Append(err, errors.New("send timeout must be positive"))
	}
	return err
}

// WorstCaseFetch is the longest a single fetch can take with every attempt
// timing out: MaxRetries × ConnectionTimeout plus the pauses in between.
func (c *Config) WorstCaseFetch() time.Duration {
	n := time.Duration(c.API.MaxRetries)
	return n*c.API.ConnectionTimeout + (n-1)*c.API.RetryDelay
}
