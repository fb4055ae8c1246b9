package sts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func seedSettings(t *testing.T, store *SettingsStore, mutate func(*Settings)) Settings {
	t.Helper()

	settings := DefaultSettings()
	settings.BaseURL = "https://unset.example.com"
	settings.Username = "operator"
	settings.Password = "secret"
	settings.Enabled = true
	if mutate != nil {
		mutate(&settings)
	}
	if err := store.Save(settings); err != nil {
		t.Fatalf("failed to seed settings: %v", err)
	}
	return settings
}

func TestEnsureValidTokenLogsInAndPersists(t *testing.T) {
	var loginCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/login" || r.Method != "POST" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&loginCalls, 1)

		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("failed to decode login body: %v", err)
		}
		if creds["username"] != "operator" || creds["password"] != "secret" {
			t.Errorf("unexpected credentials: %v", creds)
		}

		// The vendor returns the bare token, still quoted
		w.Write([]byte(`"fresh-token"`))
	}))
	defer server.Close()

	store := newTestStore(t)
	seedSettings(t, store, func(s *Settings) { s.BaseURL = server.URL })

	tm := NewTokenManager(store, server.Client())
	before := time.Now()

	if !tm.EnsureValidToken(context.Background(), false) {
		t.Fatal("EnsureValidToken returned false")
	}

	settings := store.Load()
	if settings.Token != "fresh-token" {
		t.Errorf("Token = %q, want quote-stripped %q", settings.Token, "fresh-token")
	}

	wantExpiry := before.Add(TokenLifetime).UnixMilli()
	if diff := settings.TokenExpiry - wantExpiry; diff < 0 || diff > 5000 {
		t.Errorf("TokenExpiry = %d, want about %d", settings.TokenExpiry, wantExpiry)
	}

	// A second call with a fresh token must not log in again
	if !tm.EnsureValidToken(context.Background(), false) {
		t.Fatal("second EnsureValidToken returned false")
	}
	if calls := atomic.LoadInt32(&loginCalls); calls != 1 {
		t.Errorf("login calls = %d, want 1", calls)
	}
}

func TestEnsureValidTokenDisabledMakesNoRequests(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	store := newTestStore(t)
	seedSettings(t, store, func(s *Settings) {
		s.BaseURL = server.URL
		s.Enabled = false
	})

	tm := NewTokenManager(store, server.Client())
	if tm.EnsureValidToken(context.Background(), false) {
		t.Error("EnsureValidToken = true for disabled integration")
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("server calls = %d, want 0", calls)
	}
}

func TestEnsureValidTokenLoginFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusForbidden)
	}))
	defer server.Close()

	store := newTestStore(t)
	seedSettings(t, store, func(s *Settings) { s.BaseURL = server.URL })

	tm := NewTokenManager(store, server.Client())
	if tm.EnsureValidToken(context.Background(), false) {
		t.Error("EnsureValidToken = true after failed login")
	}
	if token := store.Load().Token; token != "" {
		t.Errorf("Token = %q, want empty after failed login", token)
	}
}

func TestEnsureValidTokenForceRefreshReplacesFreshToken(t *testing.T) {
	var loginCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&loginCalls, 1)
		w.Write([]byte("forced-token"))
	}))
	defer server.Close()

	store := newTestStore(t)
	seedSettings(t, store, func(s *Settings) {
		s.BaseURL = server.URL
		s.Token = "still-valid"
		s.TokenExpiry = time.Now().Add(10 * time.Minute).UnixMilli()
	})

	tm := NewTokenManager(store, server.Client())
	if !tm.EnsureValidToken(context.Background(), true) {
		t.Fatal("forced EnsureValidToken returned false")
	}
	if atomic.LoadInt32(&loginCalls) != 1 {
		t.Errorf("login calls = %d, want 1", loginCalls)
	}
	if token := store.Load().Token; token != "forced-token" {
		t.Errorf("Token = %q, want the forced token", token)
	}
}

func TestEnsureValidTokenSingleFlight(t *testing.T) {
	var loginCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&loginCalls, 1)
		// Slow login widens the window where callers pile up
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("shared-token"))
	}))
	defer server.Close()

	store := newTestStore(t)
	seedSettings(t, store, func(s *Settings) {
		s.BaseURL = server.URL
		s.Token = "expired"
		s.TokenExpiry = time.Now().Add(-time.Minute).UnixMilli()
	})

	tm := NewTokenManager(store, server.Client())

	const callers = 10
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- tm.EnsureValidToken(context.Background(), false)
		}()
	}
	wg.Wait()
	close(results)

	for ok := range results {
		if !ok {
			t.Error("EnsureValidToken returned false for a concurrent caller")
		}
	}
	if calls := atomic.LoadInt32(&loginCalls); calls != 1 {
		t.Errorf("login calls = %d, want 1", calls)
	}
	if token := store.Load().Token; token != "shared-token" {
		t.Errorf("Token = %q, want the shared token", token)
	}
}

func TestClearTokenDropsPersistedToken(t *testing.T) {
	store := newTestStore(t)
	seedSettings(t, store, func(s *Settings) {
		s.Token = "live"
		s.TokenExpiry = time.Now().Add(10 * time.Minute).UnixMilli()
	})

	tm := NewTokenManager(store, http.DefaultClient)
	tm.ClearToken()

	settings := store.Load()
	if settings.Token != "" || settings.TokenExpiry != 0 {
		t.Errorf("token not cleared: %q / %d", settings.Token, settings.TokenExpiry)
	}
}

func TestExtractToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"token-123"`, "token-123"},
		{"token-123", "token-123"},
		{"  \"token-123\"\n", "token-123"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := extractToken([]byte(tc.in)); got != tc.want {
			t.Errorf("extractToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
