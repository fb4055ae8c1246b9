package sts

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const loginPath = "/v1/login"

// TokenManager owns bearer-token acquisition and rotation. Refresh is
// single-flight: concurrent callers that find a stale token block on the
// mutex, and re-check staleness after acquiring it, so only one login
// request goes out per stale window.
type TokenManager struct {
	store  *SettingsStore
	client *http.Client
	mu     sync.Mutex
}

func NewTokenManager(store *SettingsStore, client *http.Client) *TokenManager {
	return &TokenManager{
		store:  store,
		client: client,
	}
}

// EnsureValidToken makes sure a usable bearer token is persisted in the
// settings slot. It returns false, without raising, when the integration
// is disabled or the login attempt fails; callers must treat false as
// "cannot proceed".
func (tm *TokenManager) EnsureValidToken(ctx context.Context, forceRefresh bool) bool {
	settings := tm.store.Load()
	if !settings.Enabled {
		return false
	}

	if !forceRefresh && !settings.TokenStale(time.Now()) {
		return true
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock
	settings = tm.store.Load()
	if !forceRefresh && !settings.TokenStale(time.Now()) {
		return true
	}

	return tm.refresh(ctx, settings)
}

func (tm *TokenManager) refresh(ctx context.Context, settings Settings) bool {
	loginURL := strings.TrimRight(settings.BaseURL, "/") + loginPath

	payload, err := json.Marshal(map[string]string{
		"username": settings.Username,
		"password": settings.Password,
	})
	if err != nil {
		return false
	}

	reqCtx, cancel := context.WithTimeout(ctx, settings.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", loginURL, bytes.NewReader(payload))
	if err != nil {
		log.Printf("STS: failed to create login request: %v", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := tm.client.Do(req)
	if err != nil {
		log.Printf("STS: login request failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("STS: failed to read login response: %v", err)
		return false
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("STS: login failed with status %d: %s", resp.StatusCode, string(body))
		return false
	}

	token := extractToken(body)
	if token == "" {
		log.Printf("STS: login returned an empty token")
		return false
	}

	settings.Token = token
	settings.TokenExpiry = time.Now().Add(TokenLifetime).UnixMilli()
	if err := tm.store.Save(settings); err != nil {
		log.Printf("STS: failed to persist refreshed token: %v", err)
		return false
	}

	log.Printf("STS: obtained new access token (valid for %v)", TokenLifetime)
	return true
}

// extractToken handles the vendor's login response, which is a bare token
// string that sometimes arrives still wrapped in JSON string quotes.
func extractToken(body []byte) string {
	token := strings.TrimSpace(string(body))
	token = strings.Trim(token, `"`)
	return strings.TrimSpace(token)
}

// ClearToken drops the persisted token so the next call has to log in again.
func (tm *TokenManager) ClearToken() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	settings := tm.store.Load()
	settings.Token = ""
	settings.TokenExpiry = 0
	if err := tm.store.Save(settings); err != nil {
		log.Printf("STS: failed to clear stored token: %v", err)
	}
}
