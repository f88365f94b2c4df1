package whoop

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoTokens means no authorization has ever been performed. The user
	// has to run the one-shot whoop-auth flow before anything else works.
	ErrNoTokens = errors.New("no stored WHOOP tokens - run whoop-auth to authorize")

	// ErrReauthorizationRequired means the refresh token was rejected by the
	// provider. Retrying cannot help; the user must re-run whoop-auth.
	ErrReauthorizationRequired = errors.New("WHOOP refresh token rejected - re-run whoop-auth to authorize")

	// ErrUpstreamUnavailable is returned after repeated 5xx responses.
	ErrUpstreamUnavailable = errors.New("WHOOP API unavailable")

	// ErrUpstreamTimeout is returned when a request exceeds the HTTP timeout.
	ErrUpstreamTimeout = errors.New("WHOOP API request timed out")

	// ErrNoData is returned when the upstream endpoint has no data (404).
	ErrNoData = errors.New("no data available from WHOOP API")

	// ErrInvalidRange is returned when a trend window is out of bounds.
	ErrInvalidRange = errors.New("days out of supported range")

	// ErrInvalidLimit is returned when a record limit is out of bounds.
	ErrInvalidLimit = errors.New("limit out of supported range")
)

// RateLimitError is returned on HTTP 429. The caller decides whether to
// wait; the client never retries rate-limited requests internally.
type RateLimitError struct {
	// RetryAfter is the provider's Retry-After hint, zero if absent.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("WHOOP API rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "WHOOP API rate limit exceeded"
}
