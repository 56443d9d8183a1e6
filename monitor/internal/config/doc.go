// Package config loads the monitor configuration.
//
// Sources, lowest to highest precedence:
//   - built-in defaults (DefaultAPIURL, DefaultCheckInterval, ...)
//   - an optional YAML file (Load's path argument)
//   - an optional dotenv file (KEY=value lines, read with godotenv)
//   - the process environment
//
// Environment keys use the names operators already know from the install
// scripts: WG_API_URL, WG_API_KEY, WG_CONFIG_NAME, MONITORED_PEERS,
// CHECK_INTERVAL, HANDSHAKE_TIMEOUT, CONNECTION_TIMEOUT, MAX_RETRIES,
// RETRY_DELAY, SMTP_SERVER, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD,
// FROM_EMAIL, TO_EMAILS, plus API_FAILURE_THRESHOLD, SEND_TIMEOUT,
// WG_API_INSECURE_SKIP_VERIFY, STATUS_ADDR, STATUS_API_KEY and LOG_FILE.
// Durations in the environment are whole seconds; lists are comma separated.
//
// Validate reports every missing required key in one error (see
// MissingKeyError). Watch re-runs Load whenever one of the source files
// changes and hands the new Config to a callback.
package config
