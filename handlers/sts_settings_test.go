package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/akopov/azs-backoffice/backend/services/sts"
)

func newSettingsHandler(t *testing.T) *STSSettingsHandler {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`CREATE TABLE app_settings (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		t.Fatalf("failed to create app_settings: %v", err)
	}

	return NewSTSSettingsHandler(sts.NewClient(sts.NewSettingsStore(db)))
}

func TestSettingsGetNeverReturnsPassword(t *testing.T) {
	h := newSettingsHandler(t)

	settings := h.client.Config()
	settings.Password = "super-secret"
	if err := h.client.SaveConfig(settings); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest("GET", "/api/settings/sts", nil))

	if bytes.Contains(rec.Body.Bytes(), []byte("super-secret")) {
		t.Error("response body leaks the stored password")
	}

	var view map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if view["has_password"] != true {
		t.Error("has_password = false, want true when a password is stored")
	}
	if _, leaked := view["password"]; leaked {
		t.Error("response contains a password field")
	}
}

func TestSettingsUpdateKeepsPasswordWhenOmitted(t *testing.T) {
	h := newSettingsHandler(t)

	settings := h.client.Config()
	settings.Password = "original"
	if err := h.client.SaveConfig(settings); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	body := bytes.NewBufferString(`{"base_url":"https://sts.example.com","username":"op","enabled":true}`)
	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest("PUT", "/api/settings/sts", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	updated := h.client.Config()
	if updated.Password != "original" {
		t.Errorf("Password = %q, want the stored one preserved", updated.Password)
	}
	if updated.BaseURL != "https://sts.example.com" {
		t.Errorf("BaseURL = %q, want the submitted value", updated.BaseURL)
	}
}

func TestSettingsUpdateReplacesPasswordWhenProvided(t *testing.T) {
	h := newSettingsHandler(t)

	body := bytes.NewBufferString(`{"base_url":"https://sts.example.com","username":"op","password":"new-pass","enabled":true}`)
	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest("PUT", "/api/settings/sts", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := h.client.Config().Password; got != "new-pass" {
		t.Errorf("Password = %q, want the submitted value", got)
	}
}

func TestSettingsStatusReportsConfigured(t *testing.T) {
	h := newSettingsHandler(t)

	settings := h.client.Config()
	settings.BaseURL = "https://sts.example.com"
	settings.Username = "op"
	settings.Enabled = true
	if err := h.client.SaveConfig(settings); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest("GET", "/api/settings/sts/status", nil))

	var status map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if status["configured"] != true {
		t.Error("configured = false, want true")
	}
	if status["token_valid"] != false {
		t.Error("token_valid = true, want false without a token")
	}
}
