package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/akopov/azs-backoffice/backend/models"
	"github.com/gorilla/mux"
)

type CouponHandler struct {
	db *sql.DB
}

func NewCouponHandler(db *sql.DB) *CouponHandler {
	return &CouponHandler{db: db}
}

func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT id, code, description, discount_type, discount_value, fuel_code,
		       COALESCE(valid_from, ''), COALESCE(valid_to, ''),
		       usage_limit, usage_count, is_active, created_at, updated_at
		FROM coupons
	`

	var rows *sql.Rows
	var err error

	if active := r.URL.Query().Get("active"); active != "" {
		query += " WHERE is_active = ?"
		rows, err = h.db.Query(query+" ORDER BY code", active == "true" || active == "1")
	} else {
		rows, err = h.db.Query(query + " ORDER BY code")
	}

	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	coupons := []models.Coupon{}
	for rows.Next() {
		var c models.Coupon
		err := rows.Scan(&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.DiscountValue,
			&c.FuelCode, &c.ValidFrom, &c.ValidTo, &c.UsageLimit, &c.UsageCount,
			&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			continue
		}
		coupons = append(coupons, c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(coupons)
}

func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var c models.Coupon
	err = h.db.QueryRow(`
		SELECT id, code, description, discount_type, discount_value, fuel_code,
		       COALESCE(valid_from, ''), COALESCE(valid_to, ''),
		       usage_limit, usage_count, is_active, created_at, updated_at
		FROM coupons WHERE id = ?
	`, id).Scan(&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.DiscountValue,
		&c.FuelCode, &c.ValidFrom, &c.ValidTo, &c.UsageLimit, &c.UsageCount,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		http.Error(w, "Coupon not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var c models.Coupon
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if c.Code == "" {
		http.Error(w, "Coupon code is required", http.StatusBadRequest)
		return
	}
	switch c.DiscountType {
	case "percent", "fixed", "liters":
	default:
		http.Error(w, "Invalid discount type", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO coupons (code, description, discount_type, discount_value,
			fuel_code, valid_from, valid_to, usage_limit, is_active)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)
	`, c.Code, c.Description, c.DiscountType, c.DiscountValue, c.FuelCode,
		c.ValidFrom, c.ValidTo, c.UsageLimit, c.IsActive)

	if err != nil {
		http.Error(w, "Failed to create coupon", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	c.ID = int(id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

func (h *CouponHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var c models.Coupon
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec(`
		UPDATE coupons SET code = ?, description = ?, discount_type = ?,
			discount_value = ?, fuel_code = ?, valid_from = NULLIF(?, ''),
			valid_to = NULLIF(?, ''), usage_limit = ?, is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, c.Code, c.Description, c.DiscountType, c.DiscountValue, c.FuelCode,
		c.ValidFrom, c.ValidTo, c.UsageLimit, c.IsActive, id)

	if err != nil {
		http.Error(w, "Failed to update coupon", http.StatusInternalServerError)
		return
	}

	c.ID = id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if _, err := h.db.Exec("DELETE FROM coupons WHERE id = ?", id); err != nil {
		http.Error(w, "Failed to delete coupon", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
