package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/akopov/azs-backoffice/backend/services/sts"
)

type STSSettingsHandler struct {
	client *sts.Client
}

func NewSTSSettingsHandler(client *sts.Client) *STSSettingsHandler {
	return &STSSettingsHandler{client: client}
}

// stsSettingsView is the API shape of the settings. The password never
// leaves the server; has_password tells the UI whether one is stored.
type stsSettingsView struct {
	BaseURL            string `json:"base_url"`
	Username           string `json:"username"`
	HasPassword        bool   `json:"has_password"`
	Enabled            bool   `json:"enabled"`
	TimeoutMs          int    `json:"timeout_ms"`
	RetryAttempts      int    `json:"retry_attempts"`
	RefreshIntervalMin int    `json:"refresh_interval_min"`
	TokenPresent       bool   `json:"token_present"`
	TokenExpiresAt     string `json:"token_expires_at,omitempty"`
}

type stsSettingsUpdate struct {
	BaseURL            string  `json:"base_url"`
	Username           string  `json:"username"`
	Password           *string `json:"password"` // nil keeps the stored one
	Enabled            bool    `json:"enabled"`
	TimeoutMs          int     `json:"timeout_ms"`
	RetryAttempts      int     `json:"retry_attempts"`
	RefreshIntervalMin int     `json:"refresh_interval_min"`
}

func settingsView(settings sts.Settings) stsSettingsView {
	view := stsSettingsView{
		BaseURL:            settings.BaseURL,
		Username:           settings.Username,
		HasPassword:        settings.Password != "",
		Enabled:            settings.Enabled,
		TimeoutMs:          settings.TimeoutMs,
		RetryAttempts:      settings.RetryAttempts,
		RefreshIntervalMin: settings.RefreshIntervalMin,
		TokenPresent:       settings.Token != "",
	}
	if settings.TokenExpiry > 0 {
		view.TokenExpiresAt = time.UnixMilli(settings.TokenExpiry).Format(time.RFC3339)
	}
	return view
}

func (h *STSSettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settingsView(h.client.Config()))
}

func (h *STSSettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req stsSettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	settings := h.client.Config()
	settings.BaseURL = req.BaseURL
	settings.Username = req.Username
	if req.Password != nil {
		settings.Password = *req.Password
	}
	settings.Enabled = req.Enabled
	if req.TimeoutMs > 0 {
		settings.TimeoutMs = req.TimeoutMs
	}
	if req.RetryAttempts > 0 {
		settings.RetryAttempts = req.RetryAttempts
	}
	if req.RefreshIntervalMin > 0 {
		settings.RefreshIntervalMin = req.RefreshIntervalMin
	}

	if err := h.client.SaveConfig(settings); err != nil {
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settingsView(settings))
}

// RefreshToken performs an immediate forced login, for the settings
// screen's manual refresh button.
func (h *STSSettingsHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ok := h.client.ForceRefreshToken(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"refreshed": false,
			"error":     "не удалось получить токен: проверьте адрес API и учетные данные",
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"refreshed": true})
}

func (h *STSSettingsHandler) Status(w http.ResponseWriter, r *http.Request) {
	settings := h.client.Config()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"configured":  h.client.IsConfigured(),
		"enabled":     settings.Enabled,
		"token_valid": !settings.TokenStale(time.Now()),
	})
}
