package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
)

type DashboardHandler struct {
	db *sql.DB
}

func NewDashboardHandler(db *sql.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// Stats returns the headline numbers for the dashboard landing page.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{}

	var networks, tradingPoints, activeCoupons int
	h.db.QueryRow("SELECT COUNT(*) FROM networks").Scan(&networks)
	h.db.QueryRow("SELECT COUNT(*) FROM trading_points").Scan(&tradingPoints)
	h.db.QueryRow("SELECT COUNT(*) FROM coupons WHERE is_active = 1").Scan(&activeCoupons)
	stats["networks"] = networks
	stats["trading_points"] = tradingPoints
	stats["active_coupons"] = activeCoupons

	var todayCount int
	var todayVolume, todayAmount sql.NullFloat64
	h.db.QueryRow(`
		SELECT COUNT(*), SUM(volume), SUM(total)
		FROM sts_transactions
		WHERE date(transaction_date) = date('now', 'localtime')
		  AND status = 'completed'`).Scan(&todayCount, &todayVolume, &todayAmount)
	stats["today_transactions"] = todayCount
	stats["today_volume"] = todayVolume.Float64
	stats["today_amount"] = todayAmount.Float64

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// SalesByFuel aggregates cached transactions per fuel type over the
// requested period (default last 7 days).
func (h *DashboardHandler) SalesByFuel(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 365 {
			http.Error(w, "Invalid days", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	rows, err := h.db.Query(`
		SELECT fuel_type, COUNT(*), SUM(volume), SUM(total)
		FROM sts_transactions
		WHERE transaction_date >= datetime('now', 'localtime', ?)
		  AND status = 'completed'
		GROUP BY fuel_type
		ORDER BY SUM(total) DESC`, "-"+strconv.Itoa(days)+" days")
	if err != nil {
		http.Error(w, "Failed to fetch sales", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	result := []map[string]interface{}{}
	for rows.Next() {
		var fuelType string
		var count int
		var volume, amount sql.NullFloat64
		if err := rows.Scan(&fuelType, &count, &volume, &amount); err != nil {
			continue
		}
		result = append(result, map[string]interface{}{
			"fuel_type":    fuelType,
			"transactions": count,
			"volume":       volume.Float64,
			"amount":       amount.Float64,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// TankLevels returns the latest stored reading per tank.
func (h *DashboardHandler) TankLevels(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT tr.trading_point_id, tr.tank_number, tr.reading_time,
		       tr.level_mm, tr.volume_l, tr.temperature_c, tr.water_level_mm, tr.source
		FROM tank_readings tr
		JOIN (
			SELECT trading_point_id, tank_number, MAX(reading_time) AS latest
			FROM tank_readings
			GROUP BY trading_point_id, tank_number
		) last ON last.trading_point_id = tr.trading_point_id
		      AND last.tank_number = tr.tank_number
		      AND last.latest = tr.reading_time
		ORDER BY tr.trading_point_id, tr.tank_number`)
	if err != nil {
		http.Error(w, "Failed to fetch tank levels", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	result := []map[string]interface{}{}
	for rows.Next() {
		var tradingPointID, tankNumber int
		var readingTime, source string
		var levelMm, volumeL, temperatureC, waterLevelMm sql.NullFloat64
		if err := rows.Scan(&tradingPointID, &tankNumber, &readingTime,
			&levelMm, &volumeL, &temperatureC, &waterLevelMm, &source); err != nil {
			continue
		}
		result = append(result, map[string]interface{}{
			"trading_point_id": tradingPointID,
			"tank_number":      tankNumber,
			"reading_time":     readingTime,
			"level_mm":         levelMm.Float64,
			"volume_l":         volumeL.Float64,
			"temperature_c":    temperatureC.Float64,
			"water_level_mm":   waterLevelMm.Float64,
			"source":           source,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// ActivityLog returns the most recent admin actions.
func (h *DashboardHandler) ActivityLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 500 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	rows, err := h.db.Query(`
		SELECT al.id, al.action, al.details, al.ip_address, al.created_at,
		       COALESCE(au.username, '')
		FROM activity_log al
		LEFT JOIN admin_users au ON au.id = al.user_id
		ORDER BY al.created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		http.Error(w, "Failed to fetch activity log", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	result := []map[string]interface{}{}
	for rows.Next() {
		var id int
		var action, createdAt, username string
		var details, ipAddress sql.NullString
		if err := rows.Scan(&id, &action, &details, &ipAddress, &createdAt, &username); err != nil {
			continue
		}
		result = append(result, map[string]interface{}{
			"id":         id,
			"action":     action,
			"details":    details.String,
			"ip_address": ipAddress.String,
			"username":   username,
			"created_at": createdAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
