package services

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func newTelemetryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`
		CREATE TABLE trading_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			network_id INTEGER,
			name TEXT NOT NULL,
			external_number TEXT,
			address TEXT,
			connection_type TEXT DEFAULT 'none',
			connection_config TEXT DEFAULT '{}',
			notes TEXT,
			is_active INTEGER DEFAULT 1
		)
	`); err != nil {
		t.Fatalf("failed to create trading_points: %v", err)
	}
	return db
}

func mqttPoints(t *testing.T, mc *MQTTCollector) map[string]int {
	t.Helper()

	points, ok := mc.GetConnectionStatus()["points"].(map[string]int)
	if !ok {
		t.Fatal("connection status has no points map")
	}
	return points
}

func TestMQTTRestartReloadsPointAssignments(t *testing.T) {
	db := newTelemetryDB(t)
	// Port 1 is never a broker; the connect attempt fails immediately,
	// but the point assignment must already be loaded by then
	if _, err := db.Exec(`
		INSERT INTO trading_points (network_id, name, external_number, connection_type, connection_config, is_active)
		VALUES (1, 'АЗС-1', '77', 'mqtt', '{"mqtt_broker":"127.0.0.1","mqtt_port":1}', 1)
	`); err != nil {
		t.Fatalf("failed to seed trading point: %v", err)
	}

	mc := NewMQTTCollector(db)
	mc.Restart()

	if got := mqttPoints(t, mc)["77"]; got != 1 {
		t.Fatalf("points[77] = %d, want trading point 1", got)
	}

	// Renumber the station and restart, as the handlers do after an edit
	if _, err := db.Exec(`UPDATE trading_points SET external_number = '88' WHERE id = 1`); err != nil {
		t.Fatalf("failed to update trading point: %v", err)
	}
	mc.Restart()

	points := mqttPoints(t, mc)
	if _, stale := points["77"]; stale {
		t.Error("stale point assignment 77 survived the restart")
	}
	if got := points["88"]; got != 1 {
		t.Errorf("points[88] = %d, want trading point 1", got)
	}
}

func TestMQTTRestartSkipsPointsWithoutExternalNumber(t *testing.T) {
	db := newTelemetryDB(t)
	if _, err := db.Exec(`
		INSERT INTO trading_points (network_id, name, external_number, connection_type, connection_config, is_active)
		VALUES (1, 'АЗС-1', '', 'mqtt', '{"mqtt_broker":"127.0.0.1","mqtt_port":1}', 1)
	`); err != nil {
		t.Fatalf("failed to seed trading point: %v", err)
	}

	mc := NewMQTTCollector(db)
	mc.Restart()

	if points := mqttPoints(t, mc); len(points) != 0 {
		t.Errorf("points = %v, want none for a station without an external number", points)
	}
}
