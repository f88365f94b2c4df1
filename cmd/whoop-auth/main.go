// Command whoop-auth runs the one-shot OAuth2 authorization-code flow:
// it opens a browser for WHOOP login, receives the callback on a local
// port, exchanges the code for a token pair, and persists the pair through
// the configured token store. Run it once before starting whoop-mcp, and
// again whenever the server reports that reauthorization is required.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"whoopmcp/config"
	"whoopmcp/internal/tokenstore"
	"whoopmcp/internal/whoop"
)

const (
	callbackAddr = "localhost:8080"
	callbackPath = "/callback"
	redirectURI  = "http://localhost:8080/callback"

	// scopes requested from WHOOP; "offline" yields the refresh token.
	scopes = "read:recovery read:sleep read:cycles read:workout read:profile offline"

	flowTimeout = 5 * time.Minute
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Authorization error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from environment variables")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *useEnv {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("WHOOP OAuth Token Acquisition")
	fmt.Printf("  Client ID: %s...\n", prefix(cfg.Whoop.ClientID, 8))
	fmt.Printf("  Redirect URI: %s\n", redirectURI)
	fmt.Printf("  Scopes: %s\n", scopes)

	ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
	defer cancel()

	state := uuid.New().String()
	authURL := buildAuthURL(cfg.Whoop.AuthURL, cfg.Whoop.ClientID, state)

	fmt.Println("\nOpening browser for WHOOP authorization...")
	if err := openBrowser(authURL); err != nil {
		fmt.Println("Could not open a browser; visit this URL manually:")
		fmt.Println("  " + authURL)
	}

	code, err := waitForCallback(ctx, state)
	if err != nil {
		return err
	}
	fmt.Printf("\nReceived authorization code: %s...\n", prefix(code, 10))

	pair, err := exchangeCode(ctx, cfg.Whoop, code)
	if err != nil {
		return err
	}
	if pair.RefreshToken == "" {
		fmt.Println("Warning: no refresh token received; access will stop working when the token expires.")
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Save(ctx, pair); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}
	fmt.Printf("\nTokens saved (%s backend, %s).\n", cfg.Tokens.Backend, cfg.Tokens.Path)

	if err := smokeTest(ctx, cfg.Whoop, pair.AccessToken); err != nil {
		fmt.Printf("API test failed: %v\n", err)
	} else {
		fmt.Println("API connection verified. Setup complete - you can now run whoop-mcp.")
	}
	return nil
}

func buildAuthURL(authURL, clientID, state string) string {
	params := url.Values{}
	params.Set("client_id", clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", scopes)
	params.Set("state", state)
	return authURL + "?" + params.Encode()
}

// waitForCallback serves the local redirect endpoint until WHOOP delivers
// the authorization code (or an error) for the expected state.
func waitForCallback(ctx context.Context, state string) (string, error) {
	type callback struct {
		code string
		err  error
	}
	results := make(chan callback, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if query.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- callback{err: errors.New("authorization callback state mismatch")}
			return
		}
		if errCode := query.Get("error"); errCode != "" {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "<html><body><h1>Authorization Failed</h1><p>Error: %s</p></body></html>", errCode)
			results <- callback{err: fmt.Errorf("authorization denied: %s", errCode)}
			return
		}
		code := query.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			results <- callback{err: errors.New("authorization callback carried no code")}
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authorization Successful!</h1>"+
			"<p>You can close this window and return to the terminal.</p></body></html>")
		results <- callback{code: code}
	})

	server := &http.Server{Addr: callbackAddr, Handler: mux}
	serverErrs := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrs <- err
		}
	}()
	defer server.Close()

	fmt.Println("Waiting for authorization callback on " + callbackAddr + "...")

	select {
	case result := <-results:
		return result.code, result.err
	case err := <-serverErrs:
		return "", fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return "", errors.New("timed out waiting for authorization callback")
	}
}

// exchangeCode trades the authorization code for the initial token pair
func exchangeCode(ctx context.Context, cfg config.WhoopConfig, code string) (*whoop.TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	form.Set("redirect_uri", redirectURI)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpClient := &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, errors.New("token endpoint returned no access token")
	}

	return &whoop.TokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

// smokeTest fetches one recovery record to confirm the credentials work
func smokeTest(ctx context.Context, cfg config.WhoopConfig, accessToken string) error {
	fmt.Println("\nTesting API connection...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/v2/recovery?limit=1", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	httpClient := &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page struct {
		Records []whoop.Recovery `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return err
	}
	if len(page.Records) > 0 && page.Records[0].Scored() {
		score := page.Records[0].Score
		fmt.Printf("  Latest recovery: %.0f%% (HRV %.1fms, RHR %.0fbpm)\n",
			score.RecoveryScore, score.HRVRmssdMilli, score.RestingHeartRate)
	} else {
		fmt.Println("  Connected (no scored recovery data yet).")
	}
	return nil
}

func openStore(cfg *config.Config) (whoop.TokenStore, func(), error) {
	if cfg.Tokens.Backend == config.TokenBackendSQLite {
		store, err := tokenstore.NewSQLite(cfg.Tokens.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open token database: %w", err)
		}
		return store, func() { store.Close() }, nil
	}
	return tokenstore.NewEnvFile(cfg.Tokens.Path), func() {}, nil
}

func openBrowser(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
