// Package tokenstore provides the durable TokenStore implementations: a
// dotenv file (the format the one-shot authorization flow writes) and a
// single-row sqlite table.
package tokenstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"whoopmcp/internal/whoop"
)

const (
	keyAccessToken  = "WHOOP_ACCESS_TOKEN"
	keyRefreshToken = "WHOOP_REFRESH_TOKEN"
	keyExpiresAt    = "WHOOP_TOKEN_EXPIRES_AT"
)

// EnvFile stores the token pair in a dotenv file alongside the WHOOP
// client credentials. Unrelated keys in the file are preserved on save.
type EnvFile struct {
	path string
	mu   sync.Mutex
}

// NewEnvFile creates an EnvFile store at path
func NewEnvFile(path string) *EnvFile {
	return &EnvFile{path: path}
}

// Load reads the token pair from the dotenv file. A missing file or a file
// without an access token means authorization has never run.
func (s *EnvFile) Load(ctx context.Context) (*whoop.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := godotenv.Read(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", whoop.ErrNoTokens, s.path)
		}
		return nil, fmt.Errorf("failed to read token file %s: %w", s.path, err)
	}

	pair := &whoop.TokenPair{
		AccessToken:  values[keyAccessToken],
		RefreshToken: values[keyRefreshToken],
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token in %s", whoop.ErrNoTokens, s.path)
	}

	// An absent or unparseable expiry leaves ExpiresAt zero, which counts
	// as expired and triggers a refresh attempt on first use.
	if raw := values[keyExpiresAt]; raw != "" {
		if expiresAt, err := time.Parse(time.RFC3339, raw); err == nil {
			pair.ExpiresAt = expiresAt
		}
	}

	return pair, nil
}

// Save writes the token pair back, keeping every other key in the file
// (client credentials live there too).
func (s *EnvFile) Save(ctx context.Context, pair *whoop.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := godotenv.Read(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read token file %s: %w", s.path, err)
		}
		values = map[string]string{}
	}

	values[keyAccessToken] = pair.AccessToken
	values[keyRefreshToken] = pair.RefreshToken
	values[keyExpiresAt] = pair.ExpiresAt.UTC().Format(time.RFC3339)

	if err := godotenv.Write(values, s.path); err != nil {
		return fmt.Errorf("failed to write token file %s: %w", s.path, err)
	}
	return nil
}
