package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/akopov/azs-backoffice/backend/models"
	"github.com/gorilla/mux"
)

type PriceListHandler struct {
	db *sql.DB
}

func NewPriceListHandler(db *sql.DB) *PriceListHandler {
	return &PriceListHandler{db: db}
}

func (h *PriceListHandler) List(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT id, name, network_id, trading_point_id, COALESCE(effective_from, ''),
		       status, COALESCE(author, ''), created_at, updated_at
		FROM price_lists
	`

	var rows *sql.Rows
	var err error

	if networkID := r.URL.Query().Get("network_id"); networkID != "" {
		rows, err = h.db.Query(query+" WHERE network_id = ? ORDER BY created_at DESC", networkID)
	} else {
		rows, err = h.db.Query(query + " ORDER BY created_at DESC")
	}

	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	lists := []models.PriceList{}
	for rows.Next() {
		var p models.PriceList
		err := rows.Scan(&p.ID, &p.Name, &p.NetworkID, &p.TradingPointID,
			&p.EffectiveFrom, &p.Status, &p.Author, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			continue
		}
		lists = append(lists, p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lists)
}

func (h *PriceListHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var p models.PriceList
	err = h.db.QueryRow(`
		SELECT id, name, network_id, trading_point_id, COALESCE(effective_from, ''),
		       status, COALESCE(author, ''), created_at, updated_at
		FROM price_lists WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.NetworkID, &p.TradingPointID,
		&p.EffectiveFrom, &p.Status, &p.Author, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		http.Error(w, "Price list not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	items, err := h.loadItems(id)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	p.Items = items

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func (h *PriceListHandler) loadItems(listID int) ([]models.PriceListItem, error) {
	rows, err := h.db.Query(`
		SELECT id, price_list_id, fuel_code, COALESCE(fuel_name, ''), price
		FROM price_list_items WHERE price_list_id = ? ORDER BY fuel_code
	`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.PriceListItem{}
	for rows.Next() {
		var item models.PriceListItem
		if err := rows.Scan(&item.ID, &item.PriceListID, &item.FuelCode, &item.FuelName, &item.Price); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (h *PriceListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p models.PriceList
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if p.Name == "" {
		http.Error(w, "Price list name is required", http.StatusBadRequest)
		return
	}
	if p.Status == "" {
		p.Status = "draft"
	}

	tx, err := h.db.Begin()
	if err != nil {
		http.Error(w, "Failed to create price list", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO price_lists (name, network_id, trading_point_id, effective_from, status, author)
		VALUES (?, ?, ?, NULLIF(?, ''), ?, ?)
	`, p.Name, p.NetworkID, p.TradingPointID, p.EffectiveFrom, p.Status, p.Author)
	if err != nil {
		http.Error(w, "Failed to create price list", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	for _, item := range p.Items {
		_, err := tx.Exec(`
			INSERT INTO price_list_items (price_list_id, fuel_code, fuel_name, price)
			VALUES (?, ?, ?, ?)
		`, id, item.FuelCode, item.FuelName, item.Price)
		if err != nil {
			http.Error(w, "Failed to save price list items", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to create price list", http.StatusInternalServerError)
		return
	}

	p.ID = int(id)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

func (h *PriceListHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var p models.PriceList
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		http.Error(w, "Failed to update price list", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE price_lists SET name = ?, network_id = ?, trading_point_id = ?,
			effective_from = NULLIF(?, ''), status = ?, author = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.Name, p.NetworkID, p.TradingPointID, p.EffectiveFrom, p.Status, p.Author, id)
	if err != nil {
		http.Error(w, "Failed to update price list", http.StatusInternalServerError)
		return
	}

	// Items are replaced wholesale
	if _, err := tx.Exec("DELETE FROM price_list_items WHERE price_list_id = ?", id); err != nil {
		http.Error(w, "Failed to update price list items", http.StatusInternalServerError)
		return
	}
	for _, item := range p.Items {
		_, err := tx.Exec(`
			INSERT INTO price_list_items (price_list_id, fuel_code, fuel_name, price)
			VALUES (?, ?, ?, ?)
		`, id, item.FuelCode, item.FuelName, item.Price)
		if err != nil {
			http.Error(w, "Failed to update price list items", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to update price list", http.StatusInternalServerError)
		return
	}

	p.ID = id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// Activate marks one price list active and archives the previously active
// one for the same network/trading point.
func (h *PriceListHandler) Activate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var networkID, tradingPointID sql.NullInt64
	err = h.db.QueryRow(`
		SELECT network_id, trading_point_id FROM price_lists WHERE id = ?
	`, id).Scan(&networkID, &tradingPointID)
	if err == sql.ErrNoRows {
		http.Error(w, "Price list not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		http.Error(w, "Failed to activate price list", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE price_lists SET status = 'archived', updated_at = CURRENT_TIMESTAMP
		WHERE status = 'active'
		  AND COALESCE(network_id, -1) = COALESCE(?, -1)
		  AND COALESCE(trading_point_id, -1) = COALESCE(?, -1)
	`, networkID, tradingPointID)
	if err != nil {
		http.Error(w, "Failed to archive previous price list", http.StatusInternalServerError)
		return
	}

	if _, err := tx.Exec(`
		UPDATE price_lists SET status = 'active', updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id); err != nil {
		http.Error(w, "Failed to activate price list", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to activate price list", http.StatusInternalServerError)
		return
	}

	log.Printf("Price list %d activated", id)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"id": id, "status": "active"})
}

func (h *PriceListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if _, err := h.db.Exec("DELETE FROM price_lists WHERE id = ?", id); err != nil {
		http.Error(w, "Failed to delete price list", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
