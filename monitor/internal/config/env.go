package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// readEnv returns the dotenv file's values overlaid with the process
// environment. A missing dotenv file yields the process environment alone.
// Empty variables count as unset and never mask a dotenv value.
func readEnv(envFile string) (map[string]string, error) {
	values := make(map[string]string)

	if envFile != "" {
		fileValues, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read env file %q: %w", envFile, err)
		default:
			for k, v := range fileValues {
				values[k] = v
			}
		}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && v != "" {
			values[k] = v
		}
	}
	return values, nil
}

// applyEnv overrides cfg fields with any recognized keys present in env.
func applyEnv(cfg *Config, env map[string]string) error {
	str := func(key string, dst *string) {
		if v, ok := env[key]; ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := env[key]; ok && v != "" {
			*dst = splitList(v)
		}
	}

	str("WG_API_URL", &cfg.API.URL)
	str("WG_API_KEY", &cfg.API.Key)
	str("WG_CONFIG_NAME", &cfg.API.ConfigName)
	list("MONITORED_PEERS", &cfg.Monitor.Peers)
	str("SMTP_SERVER", &cfg.SMTP.Server)
	str("SMTP_USERNAME", &cfg.SMTP.Username)
	str("SMTP_PASSWORD", &cfg.SMTP.Password)
	str("FROM_EMAIL", &cfg.SMTP.From)
	list("TO_EMAILS", &cfg.SMTP.To)
	str("STATUS_ADDR", &cfg.Status.Addr)
	str("STATUS_API_KEY", &cfg.Status.APIKey)
	str("LOG_FILE", &cfg.Log.File)

	var errs []error
	seconds := func(key string, dst *time.Duration) {
		v, ok := env[key]
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: expected whole seconds, got %q", key, v))
			return
		}
		*dst = time.Duration(n) * time.Second
	}
	integer := func(key string, dst *int) {
		v, ok := env[key]
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: expected integer, got %q", key, v))
			return
		}
		*dst = n
	}

	seconds("CHECK_INTERVAL", &cfg.Monitor.CheckInterval)
	seconds("HANDSHAKE_TIMEOUT", &cfg.Monitor.HandshakeTimeout)
	seconds("CONNECTION_TIMEOUT", &cfg.API.ConnectionTimeout)
	seconds("RETRY_DELAY", &cfg.API.RetryDelay)
	seconds("SEND_TIMEOUT", &cfg.SMTP.SendTimeout)
	integer("MAX_RETRIES", &cfg.API.MaxRetries)
	integer("API_FAILURE_THRESHOLD", &cfg.Monitor.FailureThreshold)
	integer("SMTP_PORT", &cfg.SMTP.Port)

	if v, ok := env["WG_API_INSECURE_SKIP_VERIFY"]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WG_API_INSECURE_SKIP_VERIFY: expected boolean, got %q", v))
		} else {
			cfg.API.InsecureSkipVerify = b
		}
	}

	return multierr.Combine(errs...)
}

// splitList splits a comma-separated value, trimming blanks and dropping
// empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Dedupe returns names without blanks or repeats, keeping first-seen order.
func Dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
