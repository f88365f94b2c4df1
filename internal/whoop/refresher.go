package whoop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultRefreshMargin = 60 * time.Second

// RefresherConfig contains the OAuth2 token endpoint settings
type RefresherConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Margin       time.Duration // safety margin before expiry, defaults to 60s
	Timeout      time.Duration // HTTP timeout for the token exchange
}

// Refresher exchanges an expired refresh token for a new token pair and
// persists the result. It never retries a rejected refresh token.
type Refresher struct {
	config     RefresherConfig
	store      TokenStore
	httpClient *http.Client
	logger     *slog.Logger
	mu         sync.Mutex // serializes refresh exchanges
}

// NewRefresher creates a new Refresher backed by the given token store
func NewRefresher(config RefresherConfig, store TokenStore, logger *slog.Logger) *Refresher {
	if config.Margin <= 0 {
		config.Margin = defaultRefreshMargin
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Refresher{
		config: config,
		store:  store,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// EnsureValid returns the pair unchanged, without any network call, while
// the access token has more than the safety margin left before expiry.
// Otherwise it performs a refresh exchange.
func (r *Refresher) EnsureValid(ctx context.Context, pair *TokenPair) (*TokenPair, error) {
	if pair.Valid(r.config.Margin) {
		return pair, nil
	}
	return r.Refresh(ctx, pair)
}

// Refresh forces a token exchange regardless of the pair's expiry. Used by
// the client when the server rejects a token that was valid at check-time.
func (r *Refresher) Refresh(ctx context.Context, pair *TokenPair) (*TokenPair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pair == nil || pair.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token available", ErrReauthorizationRequired)
	}

	// Another caller may have refreshed while we waited on the lock.
	// Refresh tokens can be single-use, so reuse their result instead of
	// spending ours.
	if current, err := r.store.Load(ctx); err == nil &&
		current.Valid(r.config.Margin) && current.AccessToken != pair.AccessToken {
		return current, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", r.config.ClientID)
	form.Set("client_secret", r.config.ClientSecret)
	form.Set("refresh_token", pair.RefreshToken)
	form.Set("scope", "offline")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: token endpoint", ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("token refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: token endpoint returned status %d: %s",
			ErrReauthorizationRequired, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token refresh response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: token endpoint returned no access token", ErrReauthorizationRequired)
	}

	newPair := &TokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}
	// The provider may omit the refresh token; the old one stays valid then.
	if newPair.RefreshToken == "" {
		newPair.RefreshToken = pair.RefreshToken
	}

	if err := r.store.Save(ctx, newPair); err != nil {
		// The token is good in memory; losing persistence is survivable
		// until the process exits.
		r.logger.Warn("failed to persist refreshed tokens", "error", err)
	}

	r.logger.Info("access token refreshed", "expires_at", newPair.ExpiresAt)
	return newPair, nil
}
