package garmin

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotAuthenticated is returned by the session provider when no stored
// session exists for a user.
var ErrNotAuthenticated = errors.New("garmin: user not authenticated")

// RateLimitedError signals an upstream 429. Callers are expected to back off
// before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("garmin: rate limited, retry after %s", e.RetryAfter)
	}
	return "garmin: rate limited"
}

// TransientError wraps a network failure or upstream 5xx. The request may
// succeed if retried.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("garmin: transient fetch error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is an upstream rate-limit signal.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// IsTransient reports whether err is worth retrying after a backoff. Rate
// limits count as transient for retry purposes; they only differ in logging.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te) || IsRateLimited(err)
}
