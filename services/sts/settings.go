package sts

import (
	"database/sql"
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/akopov/azs-backoffice/backend/crypto"
)

const settingsKey = "sts_api"

const (
	DefaultTimeoutMs          = 30000
	DefaultRetryAttempts      = 3
	DefaultRefreshIntervalMin = 20

	// Tokens are rotated on a fixed short lifetime regardless of the
	// configured refresh interval.
	TokenLifetime = 20 * time.Minute
)

// Settings is the persisted STS connection configuration, stored as one
// JSON blob in the app_settings table. The live bearer token and its
// expiry are persisted alongside the user-edited fields so that token
// rotation survives restarts.
type Settings struct {
	BaseURL            string `json:"base_url"`
	Username           string `json:"username"`
	Password           string `json:"password"`
	Enabled            bool   `json:"enabled"`
	TimeoutMs          int    `json:"timeout_ms"`
	RetryAttempts      int    `json:"retry_attempts"`
	Token              string `json:"token,omitempty"`
	TokenExpiry        int64  `json:"token_expiry,omitempty"` // unix milliseconds
	RefreshIntervalMin int    `json:"refresh_interval_min"`
}

// Timeout returns the configured request timeout as a duration.
func (s Settings) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return DefaultTimeoutMs * time.Millisecond
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// TokenStale reports whether the stored token is missing or expired.
func (s Settings) TokenStale(now time.Time) bool {
	if s.Token == "" {
		return true
	}
	return s.TokenExpiry < now.UnixMilli()
}

// DefaultSettings builds the fallback configuration. Credentials come from
// the environment, never from literals.
func DefaultSettings() Settings {
	return Settings{
		BaseURL:            os.Getenv("STS_API_URL"),
		Username:           os.Getenv("STS_API_USERNAME"),
		Password:           os.Getenv("STS_API_PASSWORD"),
		Enabled:            true,
		TimeoutMs:          DefaultTimeoutMs,
		RetryAttempts:      DefaultRetryAttempts,
		RefreshIntervalMin: DefaultRefreshIntervalMin,
	}
}

// SettingsStore reads and writes the persisted settings slot. Load always
// goes back to the database so settings changed elsewhere in the process
// (or by the settings UI) are picked up on the next call.
type SettingsStore struct {
	db      *sql.DB
	encKey  []byte
	mu      sync.RWMutex
	current Settings
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	key, err := crypto.GetEncryptionKey()
	if err != nil {
		log.Printf("STS: failed to initialize credentials encryption key: %v", err)
	}
	store := &SettingsStore{db: db, encKey: key}
	store.current = store.Load()
	return store
}

// Load reads the persisted slot and unconditionally replaces the in-memory
// snapshot. Absent or malformed data silently falls back to defaults.
func (s *SettingsStore) Load() Settings {
	settings := DefaultSettings()

	var raw string
	err := s.db.QueryRow("SELECT value FROM app_settings WHERE key = ?", settingsKey).Scan(&raw)
	if err == nil {
		var stored Settings
		if jsonErr := json.Unmarshal([]byte(raw), &stored); jsonErr == nil {
			settings = stored
			settings.Password = s.decryptPassword(stored.Password)
		}
	} else if err != sql.ErrNoRows {
		log.Printf("STS: failed to read settings slot: %v", err)
	}

	if settings.TimeoutMs <= 0 {
		settings.TimeoutMs = DefaultTimeoutMs
	}
	if settings.RefreshIntervalMin <= 0 {
		settings.RefreshIntervalMin = DefaultRefreshIntervalMin
	}

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()

	return settings
}

// Save serializes the settings back into the slot. The password is
// encrypted at rest.
func (s *SettingsStore) Save(settings Settings) error {
	toStore := settings
	toStore.Password = s.encryptPassword(settings.Password)

	data, err := json.Marshal(toStore)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO app_settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, settingsKey, string(data))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()

	return nil
}

// Current returns the last loaded snapshot without touching the database.
func (s *SettingsStore) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *SettingsStore) encryptPassword(plaintext string) string {
	if len(s.encKey) == 0 || plaintext == "" {
		return plaintext
	}
	encrypted, err := crypto.Encrypt(plaintext, s.encKey)
	if err != nil {
		log.Printf("STS: failed to encrypt stored password: %v", err)
		return plaintext
	}
	return encrypted
}

func (s *SettingsStore) decryptPassword(stored string) string {
	if len(s.encKey) == 0 || stored == "" {
		return stored
	}
	decrypted, err := crypto.Decrypt(stored, s.encKey)
	if err != nil {
		// Legacy plaintext value, keep as-is
		return stored
	}
	return decrypted
}
