package whoop

import (
	"context"
	"time"
)

// TokenPair holds the current OAuth2 credentials for the WHOOP API
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid reports whether the access token is still usable with at least
// margin left before expiry. A zero ExpiresAt is treated as expired.
func (t *TokenPair) Valid(margin time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return time.Until(t.ExpiresAt) > margin
}

// TokenStore defines the interface for token persistence
// This interface is implemented by the tokenstore package to avoid tight coupling
type TokenStore interface {
	// Load returns the stored token pair, or ErrNoTokens when no prior
	// authorization has been performed.
	Load(ctx context.Context) (*TokenPair, error)

	// Save persists the token pair, replacing any previous one.
	Save(ctx context.Context, pair *TokenPair) error
}
