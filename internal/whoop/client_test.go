package whoop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshPair() *TokenPair {
	return &TokenPair{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func newTestClient(t *testing.T, upstream *httptest.Server, tokenServer *httptest.Server, store TokenStore) *Client {
	t.Helper()
	tokenURL := ""
	if tokenServer != nil {
		tokenURL = tokenServer.URL
	}
	refresher := NewRefresher(RefresherConfig{
		TokenURL:     tokenURL,
		ClientID:     "test-client",
		ClientSecret: "test-secret",
	}, store, testLogger())

	return NewClient(ClientConfig{
		BaseURL: upstream.URL,
		Timeout: 2 * time.Second,
		Backoff: time.Millisecond,
	}, store, refresher, NewCache(16), testLogger())
}

func recoveryPage(scores ...float64) map[string]any {
	records := make([]map[string]any, 0, len(scores))
	for i, score := range scores {
		records = append(records, map[string]any{
			"cycle_id":    i + 1,
			"user_id":     42,
			"created_at":  time.Now().AddDate(0, 0, -i).Format(time.RFC3339),
			"updated_at":  time.Now().Format(time.RFC3339),
			"score_state": ScoreStateScored,
			"score": map[string]any{
				"recovery_score":     score,
				"resting_heart_rate": 55.0,
				"hrv_rmssd_milli":    80.0,
			},
		})
	}
	return map[string]any{"records": records}
}

func TestClient_GetRecovery(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/recovery", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(recoveryPage(85))
	}))
	defer upstream.Close()

	store := &memoryStore{pair: freshPair()}
	client := newTestClient(t, upstream, nil, store)

	records, err := client.GetRecovery(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].Scored())
	assert.Equal(t, 85.0, records[0].Score.RecoveryScore)
}

func TestClient_GetRecovery_Paginates(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			assert.Equal(t, "25", r.URL.Query().Get("limit"))
			assert.Empty(t, r.URL.Query().Get("nextToken"))
			page := recoveryPage(make([]float64, 25)...)
			page["next_token"] = "page-2"
			json.NewEncoder(w).Encode(page)
		case 2:
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			assert.Equal(t, "page-2", r.URL.Query().Get("nextToken"))
			json.NewEncoder(w).Encode(recoveryPage(make([]float64, 5)...))
		default:
			t.Error("unexpected extra page request")
		}
	}))
	defer upstream.Close()

	store := &memoryStore{pair: freshPair()}
	client := newTestClient(t, upstream, nil, store)

	records, err := client.GetRecovery(context.Background(), 30)
	require.NoError(t, err)
	assert.Len(t, records, 30)
	assert.Equal(t, int64(2), calls.Load())
}

func TestClient_CacheShortCircuits(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(recoveryPage(85))
	}))
	defer upstream.Close()

	store := &memoryStore{pair: freshPair()}
	client := newTestClient(t, upstream, nil, store)

	for range 3 {
		_, err := client.GetRecovery(context.Background(), 1)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), calls.Load(), "repeat calls inside the TTL must not reach upstream")
}

func TestClient_RefreshOn401ThenSuccess(t *testing.T) {
	var refreshCalls atomic.Int64
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-2",
			"refresh_token": "refresh-2",
			"expires_in":    3600,
		})
	}))
	defer tokenServer.Close()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(recoveryPage(70))
	}))
	defer upstream.Close()

	store := &memoryStore{pair: freshPair()}
	client := newTestClient(t, upstream, tokenServer, store)

	records, err := client.GetRecovery(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 70.0, records[0].Score.RecoveryScore)
	assert.Equal(t, int64(1), refreshCalls.Load(), "exactly one forced refresh")
}

func TestClient_SecondConsecutive401Fails(t *testing.T) {
	var refreshCalls atomic.Int64
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-2",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	var upstreamCalls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	store := &memoryStore{pair: freshPair()}
	client := newTestClient(t, upstream, tokenServer, store)

	_, err := client.GetRecovery(context.Background(), 1)
	assert.ErrorIs(t, err, ErrReauthorizationRequired)
	assert.Equal(t, int64(1), refreshCalls.Load(), "no second refresh after a post-refresh 401")
	assert.Equal(t, int64(2), upstreamCalls.Load(), "exactly two attempts, never more")
}

func TestClient_RateLimited(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	store := &memoryStore{pair: freshPair()}
	client := newTestClient(t, upstream, nil, store)

	_, err := client.GetRecovery(context.Background(), 1)

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 30*time.Second, rateErr.RetryAfter)
}

func TestClient_ServerErrorRetriesThenFails(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	store := &memoryStore{pair: freshPair()}
	client := newTestClient(t, upstream, nil, store)

	_, err := client.GetRecovery(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, int64(3), calls.Load(), "retry ceiling is fixed at three attempts")
}

func TestClient_ServerErrorThenSuccess(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(recoveryPage(60))
	}))
	defer upstream.Close()

	store := &memoryStore{pair: freshPair()}
	client := newTestClient(t, upstream, nil, store)

	records, err := client.GetRecovery(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int64(3), calls.Load())
}

func TestClient_NotFound(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	store := &memoryStore{pair: freshPair()}
	client := newTestClient(t, upstream, nil, store)

	_, err := client.GetSleep(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestClient_NoTokens(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request may reach upstream without tokens")
	}))
	defer upstream.Close()

	client := newTestClient(t, upstream, nil, &memoryStore{})

	_, err := client.GetRecovery(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoTokens)
}

func TestClient_Timeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer upstream.Close()

	store := &memoryStore{pair: freshPair()}
	refresher := NewRefresher(RefresherConfig{TokenURL: "http://unused"}, store, testLogger())
	client := NewClient(ClientConfig{
		BaseURL: upstream.URL,
		Timeout: 20 * time.Millisecond,
		Backoff: time.Millisecond,
	}, store, refresher, NewCache(16), testLogger())

	_, err := client.GetRecovery(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUpstreamTimeout)
}

func TestClient_LastSleep_SkipsNaps(t *testing.T) {
	sleepRecord := func(id string, nap bool) map[string]any {
		return map[string]any{
			"id":          id,
			"user_id":     42,
			"created_at":  time.Now().Format(time.RFC3339),
			"updated_at":  time.Now().Format(time.RFC3339),
			"start":       time.Now().Add(-8 * time.Hour).Format(time.RFC3339),
			"end":         time.Now().Format(time.RFC3339),
			"nap":         nap,
			"score_state": ScoreStatePendingScore,
		}
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				sleepRecord("nap-1", true),
				sleepRecord("main-1", false),
			},
		})
	}))
	defer upstream.Close()

	store := &memoryStore{pair: freshPair()}
	client := newTestClient(t, upstream, nil, store)

	sleep, err := client.LastSleep(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sleep)
	assert.Equal(t, "main-1", sleep.ID)
}

func TestClient_GetWorkouts_PreservesOrder(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		records := make([]map[string]any, 0, 5)
		for i := range 5 {
			records = append(records, map[string]any{
				"id":          fmt.Sprintf("workout-%d", i),
				"user_id":     42,
				"created_at":  time.Now().Format(time.RFC3339),
				"updated_at":  time.Now().Format(time.RFC3339),
				"start":       time.Now().Format(time.RFC3339),
				"end":         time.Now().Format(time.RFC3339),
				"sport_name":  "running",
				"score_state": ScoreStatePendingScore,
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"records": records})
	}))
	defer upstream.Close()

	store := &memoryStore{pair: freshPair()}
	client := newTestClient(t, upstream, nil, store)

	workouts, err := client.GetWorkouts(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, workouts, 5)
	for i, w := range workouts {
		assert.Equal(t, fmt.Sprintf("workout-%d", i), w.ID)
	}
}
