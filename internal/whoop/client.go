package whoop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the WHOOP developer API root
const DefaultBaseURL = "https://api.prod.whoop.com/developer"

// DefaultTokenURL is the WHOOP OAuth2 token endpoint
const DefaultTokenURL = "https://api.prod.whoop.com/oauth/oauth2/token"

const (
	endpointRecovery = "/v2/recovery"
	endpointSleep    = "/v2/activity/sleep"
	endpointCycle    = "/v2/cycle"
	endpointWorkout  = "/v2/activity/workout"

	// maxPageSize is the provider's per-page record ceiling.
	maxPageSize = 25

	// maxUpstreamAttempts bounds the 5xx retry loop.
	maxUpstreamAttempts = 3

	// defaultBackoff is the first 5xx retry delay; it doubles per attempt.
	defaultBackoff = 500 * time.Millisecond
)

// ClientConfig contains the WHOOP API client settings
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration // per-request HTTP timeout
	TodayTTL   time.Duration // cache TTL for current-day windows
	HistoryTTL time.Duration // cache TTL for closed historical windows
	Backoff    time.Duration // first 5xx retry delay, doubles per attempt
}

// Client issues authenticated requests to the WHOOP resource endpoints.
// It asks the Refresher for a valid token before each request, serves
// repeats from the cache, refreshes once on a server-side 401, and retries
// 5xx responses with bounded backoff.
type Client struct {
	config     ClientConfig
	store      TokenStore
	refresher  *Refresher
	cache      *Cache
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new WHOOP API client
func NewClient(config ClientConfig, store TokenStore, refresher *Refresher, cache *Cache, logger *slog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.TodayTTL <= 0 {
		config.TodayTTL = time.Minute
	}
	if config.HistoryTTL <= 0 {
		config.HistoryTTL = 15 * time.Minute
	}
	if config.Backoff <= 0 {
		config.Backoff = defaultBackoff
	}
	return &Client{
		config:    config,
		store:     store,
		refresher: refresher,
		cache:     cache,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// GetRecovery returns up to limit recent recovery records, most recent
// first, paginating as needed.
func (c *Client) GetRecovery(ctx context.Context, limit int) ([]Recovery, error) {
	return cachedFetch(ctx, c, endpointRecovery, limit, c.fetchRecoveryPages)
}

// GetSleep returns up to limit recent sleep records (naps included), most
// recent first, paginating as needed.
func (c *Client) GetSleep(ctx context.Context, limit int) ([]Sleep, error) {
	return cachedFetch(ctx, c, endpointSleep, limit, c.fetchSleepPages)
}

// GetCycles returns up to limit recent physiological cycles, most recent
// first. The most recent cycle carries today's strain.
func (c *Client) GetCycles(ctx context.Context, limit int) ([]Cycle, error) {
	return cachedFetch(ctx, c, endpointCycle, limit, func(ctx context.Context, limit int) ([]Cycle, error) {
		return fetchSinglePage[Cycle](ctx, c, endpointCycle, limit)
	})
}

// GetWorkouts returns up to limit recent workouts in the provider's order.
func (c *Client) GetWorkouts(ctx context.Context, limit int) ([]Workout, error) {
	return cachedFetch(ctx, c, endpointWorkout, limit, func(ctx context.Context, limit int) ([]Workout, error) {
		return fetchSinglePage[Workout](ctx, c, endpointWorkout, limit)
	})
}

// TodayRecovery returns the most recent recovery record, or nil when the
// provider has none yet.
func (c *Client) TodayRecovery(ctx context.Context) (*Recovery, error) {
	records, err := c.GetRecovery(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// LastSleep returns the most recent main sleep, skipping naps. Falls back
// to the newest record of any kind when only naps are present.
func (c *Client) LastSleep(ctx context.Context) (*Sleep, error) {
	records, err := c.GetSleep(ctx, 5)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if !records[i].Nap {
			return &records[i], nil
		}
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// ttlFor picks the cache TTL for a request window. Single-record windows
// cover the current day and can still change; larger windows are mostly
// closed history.
func (c *Client) ttlFor(limit int) time.Duration {
	if limit <= 1 {
		return c.config.TodayTTL
	}
	return c.config.HistoryTTL
}

// cachedFetch funnels every resource call through the cache so a repeated
// tool invocation inside the TTL costs zero upstream requests.
func cachedFetch[T any](ctx context.Context, c *Client, endpoint string, limit int, fetch func(context.Context, int) ([]T, error)) ([]T, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	key := CacheKey(endpoint, params)

	value, err := c.cache.GetOrFetch(ctx, key, c.ttlFor(limit), func(ctx context.Context) (any, error) {
		return fetch(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return value.([]T), nil
}

// pageEnvelope is the provider's paginated list wrapper
type pageEnvelope struct {
	Records   []json.RawMessage `json:"records"`
	NextToken string            `json:"next_token"`
}

// fetchSinglePage fetches one unpaginated listing
func fetchSinglePage[T any](ctx context.Context, c *Client, endpoint string, limit int) ([]T, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(min(limit, maxPageSize)))

	page, err := c.getPage(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords[T](page.Records)
	if err != nil {
		return nil, err
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (c *Client) fetchRecoveryPages(ctx context.Context, limit int) ([]Recovery, error) {
	return fetchPaginated[Recovery](ctx, c, endpointRecovery, limit)
}

func (c *Client) fetchSleepPages(ctx context.Context, limit int) ([]Sleep, error) {
	return fetchPaginated[Sleep](ctx, c, endpointSleep, limit)
}

// fetchPaginated follows nextToken until limit records are collected or
// the provider runs out.
func fetchPaginated[T any](ctx context.Context, c *Client, endpoint string, limit int) ([]T, error) {
	var all []T
	nextToken := ""

	for len(all) < limit {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(min(maxPageSize, limit-len(all))))
		if nextToken != "" {
			params.Set("nextToken", nextToken)
		}

		page, err := c.getPage(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
		records, err := decodeRecords[T](page.Records)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)

		nextToken = page.NextToken
		if nextToken == "" || len(records) == 0 {
			break
		}
	}

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// decodeRecords parses each record independently so one malformed record
// does not discard a whole page.
func decodeRecords[T any](raw []json.RawMessage) ([]T, error) {
	records := make([]T, 0, len(raw))
	for _, r := range raw {
		var record T
		if err := json.Unmarshal(r, &record); err != nil {
			return nil, fmt.Errorf("failed to parse record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// getPage runs the bounded per-request state machine:
// attempt -> on 401 -> refresh once -> attempt -> on 401 -> fail.
// 429 fails immediately with the Retry-After hint; 5xx retries with
// exponential backoff up to maxUpstreamAttempts.
func (c *Client) getPage(ctx context.Context, endpoint string, params url.Values) (*pageEnvelope, error) {
	pair, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	pair, err = c.refresher.EnsureValid(ctx, pair)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	logger := c.logger.With("request_id", requestID, "endpoint", endpoint)

	refreshed := false
	attempt := 0
	for {
		attempt++
		status, header, body, err := c.doGET(ctx, pair.AccessToken, endpoint, params)
		if err != nil {
			return nil, err
		}

		switch {
		case status == http.StatusOK:
			var page pageEnvelope
			if err := json.Unmarshal(body, &page); err != nil {
				return nil, fmt.Errorf("failed to parse %s response: %w", endpoint, err)
			}
			logger.Debug("request completed", "attempt", attempt, "records", len(page.Records))
			return &page, nil

		case status == http.StatusUnauthorized:
			// A token can pass the expiry check yet be rejected server-side
			// (clock skew, concurrent revocation). One forced refresh covers
			// that; a second 401 is a genuine authorization failure.
			if refreshed {
				return nil, fmt.Errorf("%w: request rejected after refresh", ErrReauthorizationRequired)
			}
			logger.Info("token rejected upstream, forcing refresh")
			pair, err = c.refresher.Refresh(ctx, pair)
			if err != nil {
				return nil, err
			}
			refreshed = true

		case status == http.StatusTooManyRequests:
			return nil, &RateLimitError{RetryAfter: parseRetryAfter(header.Get("Retry-After"))}

		case status == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNoData, endpoint)

		case status >= 500:
			if attempt >= maxUpstreamAttempts {
				return nil, fmt.Errorf("%w: status %d after %d attempts", ErrUpstreamUnavailable, status, attempt)
			}
			delay := c.config.Backoff << (attempt - 1)
			logger.Warn("upstream error, backing off", "status", status, "attempt", attempt, "delay", delay)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("WHOOP API error %d on %s: %s", status, endpoint, string(body))
		}
	}
}

// doGET issues one authenticated GET and maps transport failures onto the
// error taxonomy.
func (c *Client) doGET(ctx context.Context, accessToken, endpoint string, params url.Values) (int, http.Header, []byte, error) {
	reqURL := c.config.BaseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, nil, nil, fmt.Errorf("%w: %s", ErrUpstreamTimeout, endpoint)
		}
		return 0, nil, nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

// parseRetryAfter handles the delay-seconds form of Retry-After. The
// HTTP-date form is rare enough upstream to ignore.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// sleepCtx waits for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
