package sts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient wires a client against a test server with a fresh token
// already persisted, so requests go straight to the data endpoint.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := newTestStore(t)
	seedSettings(t, store, func(s *Settings) {
		s.BaseURL = server.URL
		s.Token = "seeded-token"
		s.TokenExpiry = time.Now().Add(10 * time.Minute).UnixMilli()
	})

	return NewClient(store), server
}

func TestRequestValidatesSelectionBeforeNetwork(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := client.Request(context.Background(), "/v1/tanks", RequestOptions{},
		Selection{NetworkID: "not-a-number"})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if validationErr.Field != "system" {
		t.Errorf("Field = %q, want system", validationErr.Field)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("server calls = %d, want 0", calls)
	}
}

func TestRequestStationRequiredForTransactions(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := client.Request(context.Background(), "/v1/transactions", RequestOptions{},
		Selection{NetworkID: "1", TradingPointID: "station-a"})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if validationErr.Field != "station" {
		t.Errorf("Field = %q, want station", validationErr.Field)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("server calls = %d, want 0", calls)
	}
}

func TestRequestDisabledIntegration(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	settings := client.Config()
	settings.Enabled = false
	if err := client.SaveConfig(settings); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	_, err := client.Request(context.Background(), "/v1/tanks", RequestOptions{}, Selection{NetworkID: "1"})

	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("err = %v, want *ConfigError", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("server calls = %d, want 0", calls)
	}
}

func TestRequestNormalizesSelectionParams(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("system"); got != "7" {
			t.Errorf("system = %q, want 7", got)
		}
		if got := r.URL.Query().Get("station"); got != "3" {
			t.Errorf("station = %q, want 3", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer seeded-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte("[]"))
	}))

	_, err := client.Request(context.Background(), "/v1/transactions", RequestOptions{},
		Selection{NetworkID: " 7 ", TradingPointID: "03"})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
}

func TestRequestDropsOptionalNonNumericStation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, present := r.URL.Query()["station"]; present {
			t.Error("station param sent for non-numeric optional value")
		}
		w.Write([]byte("[]"))
	}))

	_, err := client.Request(context.Background(), "/v1/tanks", RequestOptions{},
		Selection{NetworkID: "1", TradingPointID: "depot-west"})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
}

func TestRequestRetriesExactlyOnceAfterUnauthorized(t *testing.T) {
	var dataCalls, loginCalls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/login" {
			atomic.AddInt32(&loginCalls, 1)
			w.Write([]byte("new-token"))
			return
		}

		n := atomic.AddInt32(&dataCalls, 1)
		if n == 1 {
			http.Error(w, "expired", http.StatusUnauthorized)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer new-token" {
			t.Errorf("retry Authorization = %q, want refreshed token", got)
		}
		w.Write([]byte("[]"))
	}))

	body, err := client.Request(context.Background(), "/v1/tanks", RequestOptions{}, Selection{NetworkID: "1"})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(body) != "[]" {
		t.Errorf("body = %q", body)
	}
	if atomic.LoadInt32(&dataCalls) != 2 {
		t.Errorf("data calls = %d, want 2", dataCalls)
	}
	if atomic.LoadInt32(&loginCalls) != 1 {
		t.Errorf("login calls = %d, want 1", loginCalls)
	}
}

func TestRequestPersistentUnauthorizedBecomesAuthError(t *testing.T) {
	var dataCalls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/login" {
			w.Write([]byte("new-token"))
			return
		}
		atomic.AddInt32(&dataCalls, 1)
		http.Error(w, "rejected", http.StatusUnauthorized)
	}))

	_, err := client.Request(context.Background(), "/v1/tanks", RequestOptions{}, Selection{NetworkID: "1"})

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
	if atomic.LoadInt32(&dataCalls) != 2 {
		t.Errorf("data calls = %d, want exactly 2 (one retry)", dataCalls)
	}
}

func TestRequestClassifies422(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":[{"loc":["query","station"],"msg":"value is not a valid integer","type":"type_error.integer"}]}`))
	}))

	_, err := client.Request(context.Background(), "/v1/tanks", RequestOptions{}, Selection{NetworkID: "1"})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if validationErr.Field != "station" {
		t.Errorf("Field = %q, want station", validationErr.Field)
	}
}

func TestRequestServerErrorBecomesHTTPError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.Request(context.Background(), "/v1/tanks", RequestOptions{}, Selection{NetworkID: "1"})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	if httpErr.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", httpErr.Status)
	}
}

func TestRequestEmptyBaseURL(t *testing.T) {
	store := newTestStore(t)
	seedSettings(t, store, func(s *Settings) {
		s.BaseURL = ""
		s.Token = "seeded-token"
		s.TokenExpiry = time.Now().Add(10 * time.Minute).UnixMilli()
	})
	client := NewClient(store)

	_, err := client.Request(context.Background(), "/v1/tanks", RequestOptions{}, Selection{NetworkID: "1"})

	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("err = %v, want *ConfigError", err)
	}
}

func TestGetPricesUsesStationPath(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/pos/prices/5" {
			t.Errorf("path = %q, want /v1/pos/prices/5", r.URL.Path)
		}
		w.Write([]byte(`[{"service_code":"3","price":"53.10"}]`))
	}))

	prices, err := client.GetPrices(context.Background(), Selection{TradingPointID: "5"})
	if err != nil {
		t.Fatalf("GetPrices failed: %v", err)
	}
	if len(prices) != 1 {
		t.Fatalf("len(prices) = %d, want 1", len(prices))
	}
	if prices[0].FuelType != "АИ-95" {
		t.Errorf("FuelType = %q, want АИ-95", prices[0].FuelType)
	}
	if prices[0].Price != 53.10 {
		t.Errorf("Price = %v, want 53.10", prices[0].Price)
	}
}

func TestGetPricesRejectsNonNumericStation(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := client.GetPrices(context.Background(), Selection{TradingPointID: "west"})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("server calls = %d, want 0", calls)
	}
}

func TestGetTransactionsForwardsQueryParams(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("date_from") != "2026-08-01" || q.Get("date_to") != "2026-08-31" || q.Get("limit") != "100" {
			t.Errorf("unexpected query: %v", q)
		}
		w.Write([]byte("[]"))
	}))

	_, err := client.GetTransactions(context.Background(),
		Selection{NetworkID: "1", TradingPointID: "2"}, "2026-08-01", "2026-08-31", 100)
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
}

func TestGetTankReturnsNilWhenMissing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"name":"Tank 1"}]`))
	}))

	tank, err := client.GetTank(context.Background(), 9, Selection{NetworkID: "1"})
	if err != nil {
		t.Fatalf("GetTank failed: %v", err)
	}
	if tank != nil {
		t.Errorf("tank = %+v, want nil", tank)
	}
}

func TestClassify422FallsBackToVendorMessage(t *testing.T) {
	err := classify422([]byte(`{"detail":[{"loc":["body","price"],"msg":"field required","type":"value_error.missing"}]}`))

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if validationErr.Message != "field required" {
		t.Errorf("Message = %q, want the vendor detail", validationErr.Message)
	}

	err = classify422([]byte("plain text failure"))
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if validationErr.Message != "plain text failure" {
		t.Errorf("Message = %q, want raw body", validationErr.Message)
	}
}
