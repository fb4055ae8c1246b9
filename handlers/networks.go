package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/akopov/azs-backoffice/backend/models"
	"github.com/akopov/azs-backoffice/backend/services"
	"github.com/gorilla/mux"
)

type NetworkHandler struct {
	db        *sql.DB
	mqtt      *services.MQTTCollector
	modbus    *services.ModbusCollector
	restartMu sync.Mutex // Prevent concurrent restarts
}

func NewNetworkHandler(db *sql.DB, mqtt *services.MQTTCollector, modbus *services.ModbusCollector) *NetworkHandler {
	return &NetworkHandler{
		db:     db,
		mqtt:   mqtt,
		modbus: modbus,
	}
}

// safeRestartCollectors reloads broker and gauge connections after a
// trading point's connection settings change. Only one restart at a time.
func (h *NetworkHandler) safeRestartCollectors(reason string) {
	go func() {
		h.restartMu.Lock()
		defer h.restartMu.Unlock()

		log.Printf("%s, restarting collectors...", reason)
		if h.mqtt != nil {
			h.mqtt.Restart()
		}
		if h.modbus != nil {
			h.modbus.RestartConnections()
		}
		log.Printf("Collectors restarted successfully")
	}()
}

func (h *NetworkHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, name, external_id, notes, is_active, created_at, updated_at
		FROM networks ORDER BY name
	`)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	networks := []models.Network{}
	for rows.Next() {
		var n models.Network
		err := rows.Scan(&n.ID, &n.Name, &n.ExternalID, &n.Notes, &n.IsActive,
			&n.CreatedAt, &n.UpdatedAt)
		if err != nil {
			continue
		}
		networks = append(networks, n)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(networks)
}

func (h *NetworkHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var n models.Network
	err = h.db.QueryRow(`
		SELECT id, name, external_id, notes, is_active, created_at, updated_at
		FROM networks WHERE id = ?
	`, id).Scan(&n.ID, &n.Name, &n.ExternalID, &n.Notes, &n.IsActive,
		&n.CreatedAt, &n.UpdatedAt)

	if err == sql.ErrNoRows {
		http.Error(w, "Network not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(n)
}

func (h *NetworkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var n models.Network
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if n.Name == "" {
		http.Error(w, "Network name is required", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO networks (name, external_id, notes, is_active)
		VALUES (?, ?, ?, ?)
	`, n.Name, n.ExternalID, n.Notes, n.IsActive)

	if err != nil {
		http.Error(w, "Failed to create network", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	n.ID = int(id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(n)
}

func (h *NetworkHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var n models.Network
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec(`
		UPDATE networks SET name = ?, external_id = ?, notes = ?, is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, n.Name, n.ExternalID, n.Notes, n.IsActive, id)

	if err != nil {
		http.Error(w, "Failed to update network", http.StatusInternalServerError)
		return
	}

	n.ID = id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(n)
}

func (h *NetworkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		http.Error(w, "Failed to start deletion", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	result, err := tx.Exec("DELETE FROM trading_points WHERE network_id = ?", id)
	if err != nil {
		http.Error(w, "Failed to delete trading points", http.StatusInternalServerError)
		return
	}
	removed, _ := result.RowsAffected()

	if _, err := tx.Exec("DELETE FROM networks WHERE id = ?", id); err != nil {
		http.Error(w, "Failed to delete network", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to commit deletion", http.StatusInternalServerError)
		return
	}

	log.Printf("Deleted network %d and %d trading points", id, removed)
	if removed > 0 {
		h.safeRestartCollectors(fmt.Sprintf("Network %d deleted with %d trading points", id, removed))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NetworkHandler) ListTradingPoints(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	networkID, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	rows, err := h.db.Query(`
		SELECT id, network_id, name, external_number, address, connection_type,
		       connection_config, notes, is_active, created_at, updated_at
		FROM trading_points WHERE network_id = ? ORDER BY name
	`, networkID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	points := []models.TradingPoint{}
	for rows.Next() {
		var p models.TradingPoint
		err := rows.Scan(&p.ID, &p.NetworkID, &p.Name, &p.ExternalNumber, &p.Address,
			&p.ConnectionType, &p.ConnectionConfig, &p.Notes, &p.IsActive,
			&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			continue
		}
		points = append(points, p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(points)
}

func (h *NetworkHandler) CreateTradingPoint(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	networkID, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var p models.TradingPoint
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if p.Name == "" {
		http.Error(w, "Trading point name is required", http.StatusBadRequest)
		return
	}
	if p.ConnectionType == "" {
		p.ConnectionType = "none"
	}
	if p.ConnectionConfig == "" {
		p.ConnectionConfig = "{}"
	}

	result, err := h.db.Exec(`
		INSERT INTO trading_points (network_id, name, external_number, address,
			connection_type, connection_config, notes, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, networkID, p.Name, p.ExternalNumber, p.Address, p.ConnectionType,
		p.ConnectionConfig, p.Notes, p.IsActive)

	if err != nil {
		http.Error(w, "Failed to create trading point", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	p.ID = int(id)
	p.NetworkID = networkID

	if p.ConnectionType == "mqtt" || p.ConnectionType == "modbus" {
		h.safeRestartCollectors(fmt.Sprintf("New %s trading point created", p.ConnectionType))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

func (h *NetworkHandler) UpdateTradingPoint(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var p models.TradingPoint
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec(`
		UPDATE trading_points SET name = ?, external_number = ?, address = ?,
			connection_type = ?, connection_config = ?, notes = ?, is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.Name, p.ExternalNumber, p.Address, p.ConnectionType, p.ConnectionConfig,
		p.Notes, p.IsActive, id)

	if err != nil {
		http.Error(w, "Failed to update trading point", http.StatusInternalServerError)
		return
	}

	// The old connection type is unknown here, so reload either way
	h.safeRestartCollectors(fmt.Sprintf("Trading point %d updated", id))

	p.ID = id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func (h *NetworkHandler) DeleteTradingPoint(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if _, err := h.db.Exec("DELETE FROM trading_points WHERE id = ?", id); err != nil {
		http.Error(w, "Failed to delete trading point", http.StatusInternalServerError)
		return
	}

	h.safeRestartCollectors(fmt.Sprintf("Trading point %d deleted", id))

	w.WriteHeader(http.StatusNoContent)
}
