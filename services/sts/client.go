package sts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client executes requests against the STS API. Every call reloads the
// settings slot first, so settings saved elsewhere in the process take
// effect on the next request.
type Client struct {
	store  *SettingsStore
	tokens *TokenManager
	client *http.Client
}

func NewClient(store *SettingsStore) *Client {
	httpClient := &http.Client{}
	return &Client{
		store:  store,
		tokens: NewTokenManager(store, httpClient),
		client: httpClient,
	}
}

// RequestOptions carries the per-call request shape.
type RequestOptions struct {
	Method string // defaults to GET
	Query  url.Values
	Body   interface{} // JSON-encoded when non-nil
}

// validationError data shape of the vendor's 422 body.
type vendorValidationBody struct {
	Detail []struct {
		Loc  []interface{} `json:"loc"`
		Msg  string        `json:"msg"`
		Type string        `json:"type"`
	} `json:"detail"`
}

// endpointNeedsNetwork reports whether the endpoint requires a numeric
// network identifier. The POS prices-by-station variant addresses the
// station directly in the path and is exempt.
func endpointNeedsNetwork(endpoint string) bool {
	if strings.HasPrefix(endpoint, "/v1/pos/prices") {
		return false
	}
	for _, prefix := range []string{"/v1/tanks", "/v1/pumps", "/v1/sales", "/v1/transactions", "/v1/prices"} {
		if strings.HasPrefix(endpoint, prefix) {
			return true
		}
	}
	return false
}

// endpointNeedsStation reports whether the endpoint additionally requires
// a numeric trading-point number.
func endpointNeedsStation(endpoint string) bool {
	if strings.HasPrefix(endpoint, "/v1/pos/prices") {
		return false
	}
	return strings.HasPrefix(endpoint, "/v1/transactions") || strings.HasPrefix(endpoint, "/v1/prices")
}

// Request performs one API call and returns the raw response body.
// JSON responses are returned as-is for the typed operations to decode;
// non-JSON responses come back as the raw text body.
func (c *Client) Request(ctx context.Context, endpoint string, opt RequestOptions, sel Selection) ([]byte, error) {
	settings := c.store.Load()

	if !settings.Enabled {
		return nil, &ConfigError{Message: "интеграция STS отключена в настройках"}
	}

	networkID, stationID, err := c.validateSelection(endpoint, sel)
	if err != nil {
		return nil, err
	}

	if !c.tokens.EnsureValidToken(ctx, false) {
		return nil, &AuthError{Message: "не удалось получить токен доступа STS: проверьте адрес API и учетные данные в настройках"}
	}

	requestURL, bodyBytes, err := c.buildRequest(settings, endpoint, opt, networkID, stationID)
	if err != nil {
		return nil, err
	}

	method := opt.Method
	if method == "" {
		method = "GET"
	}

	resp, body, err := c.doOnce(ctx, method, requestURL, bodyBytes, c.store.Current().Token, settings.Timeout())
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Token rejected: drop it, force one refresh, retry exactly once
		c.tokens.ClearToken()
		if !c.tokens.EnsureValidToken(ctx, true) {
			return nil, &AuthError{Message: "авторизация STS не восстановлена после обновления токена"}
		}

		resp, body, err = c.doOnce(ctx, method, requestURL, bodyBytes, c.store.Current().Token, settings.Timeout())
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &AuthError{Message: "авторизация STS отклонена повторно после обновления токена"}
		}
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, classify422(body)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, StatusText: resp.Status, Body: string(body)}
	}

	return body, nil
}

// validateSelection checks endpoint-specific selection-context rules
// before any network activity. Returns the normalized numeric identifiers.
func (c *Client) validateSelection(endpoint string, sel Selection) (networkID, stationID string, err error) {
	if endpointNeedsNetwork(endpoint) {
		normalized, ok := parseNumericID(sel.NetworkID)
		if !ok {
			return "", "", &ValidationError{
				Field:   "system",
				Message: "требуется числовой внешний идентификатор сети: проверьте поле external_id выбранной сети",
			}
		}
		networkID = normalized
	} else if normalized, ok := parseNumericID(sel.NetworkID); ok {
		networkID = normalized
	}

	if endpointNeedsStation(endpoint) {
		normalized, ok := parseNumericID(sel.TradingPointID)
		if !ok {
			return "", "", &ValidationError{
				Field:   "station",
				Message: "требуется числовой номер торговой точки: проверьте поле external_number выбранной точки",
			}
		}
		stationID = normalized
	} else if normalized, ok := parseNumericID(sel.TradingPointID); ok {
		// Non-numeric station values are dropped rather than rejected here
		stationID = normalized
	}

	return networkID, stationID, nil
}

func (c *Client) buildRequest(settings Settings, endpoint string, opt RequestOptions, networkID, stationID string) (string, []byte, error) {
	base := strings.TrimRight(settings.BaseURL, "/")
	if base == "" {
		return "", nil, &ConfigError{Message: "не задан адрес STS API: проверьте настройки интеграции"}
	}

	query := url.Values{}
	for key, values := range opt.Query {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	if networkID != "" {
		query.Set("system", networkID)
	}
	if stationID != "" {
		query.Set("station", stationID)
	}

	requestURL := base + endpoint
	if encoded := query.Encode(); encoded != "" {
		requestURL += "?" + encoded
	}

	var bodyBytes []byte
	if opt.Body != nil {
		data, err := json.Marshal(opt.Body)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode request body: %v", err)
		}
		bodyBytes = data
	}

	return requestURL, bodyBytes, nil
}

func (c *Client) doOnce(ctx context.Context, method, requestURL string, body []byte, token string, timeout time.Duration) (*http.Response, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, requestURL, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &NetworkError{Err: err}
	}

	return resp, respBody, nil
}

// classify422 turns the vendor's validation-error body into an actionable
// message when it names the system/station parameters, and preserves the
// vendor detail verbatim otherwise.
func classify422(body []byte) error {
	var parsed vendorValidationBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, detail := range parsed.Detail {
			for _, loc := range detail.Loc {
				switch SafeString(loc) {
				case "system":
					return &ValidationError{
						Field:   "system",
						Message: "STS отклонил идентификатор сети: проверьте, что external_id выбранной сети является числом",
					}
				case "station":
					return &ValidationError{
						Field:   "station",
						Message: "STS отклонил номер торговой точки: проверьте, что external_number выбранной точки является числом",
					}
				}
			}
		}
		if len(parsed.Detail) > 0 {
			return &ValidationError{Message: parsed.Detail[0].Msg}
		}
	}
	return &ValidationError{Message: string(body)}
}
