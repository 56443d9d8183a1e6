package fetcher

import "fmt"

// Reason classifies why a fetch failed.
type Reason string

const (
	ReasonTimeout      Reason = "timeout"
	ReasonUnreachable  Reason = "unreachable"
	ReasonAuthRejected Reason = "auth_rejected"
	ReasonMalformed    Reason = "malformed_response"
)

// Error is the failure returned by Fetch.
type Error struct {
	Reason Reason

	// Attempts is the number of requests made before giving up.
	Attempts int

	// StatusCode is the HTTP status of the last response, 0 if none arrived.
	StatusCode int

	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s after %d attempt(s) (HTTP %d): %v", e.Reason, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s after %d attempt(s): %v", e.Reason, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could succeed. Auth rejections
// rarely heal on their own and a malformed body will not change on retry.
func (e *Error) Retryable() bool {
	switch e.Reason {
	case ReasonAuthRejected, ReasonMalformed:
		return false
	}
	return true
}
