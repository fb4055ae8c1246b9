package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/akopov/azs-backoffice/backend/services/sts"
)

// STSDataHandler proxies live vendor API data. Callers address networks
// and trading points by their local IDs; the handler resolves the
// vendor identifiers from the database before each request.
type STSDataHandler struct {
	db     *sql.DB
	client *sts.Client
}

func NewSTSDataHandler(db *sql.DB, client *sts.Client) *STSDataHandler {
	return &STSDataHandler{db: db, client: client}
}

// resolveSelection maps network_id / trading_point_id query parameters
// (local database IDs) to the vendor's identifiers. When only a trading
// point is given, the network is derived from it.
func (h *STSDataHandler) resolveSelection(r *http.Request) (sts.Selection, error) {
	var sel sts.Selection

	if pointID := r.URL.Query().Get("trading_point_id"); pointID != "" {
		var externalNumber, networkExternalID string
		err := h.db.QueryRow(`
			SELECT tp.external_number, n.external_id
			FROM trading_points tp
			JOIN networks n ON n.id = tp.network_id
			WHERE tp.id = ?`, pointID).Scan(&externalNumber, &networkExternalID)
		if err == sql.ErrNoRows {
			return sel, fmt.Errorf("trading point %s not found", pointID)
		}
		if err != nil {
			return sel, err
		}
		sel.TradingPointID = externalNumber
		sel.NetworkID = networkExternalID
	}

	if networkID := r.URL.Query().Get("network_id"); networkID != "" {
		var externalID string
		err := h.db.QueryRow("SELECT external_id FROM networks WHERE id = ?", networkID).Scan(&externalID)
		if err == sql.ErrNoRows {
			return sel, fmt.Errorf("network %s not found", networkID)
		}
		if err != nil {
			return sel, err
		}
		sel.NetworkID = externalID
	}

	return sel, nil
}

// writeSTSError translates the vendor client's error taxonomy into HTTP
// statuses: configuration and validation problems are the caller's to
// fix, auth and upstream failures are gateway errors.
func writeSTSError(w http.ResponseWriter, err error) {
	var (
		configErr     *sts.ConfigError
		validationErr *sts.ValidationError
		authErr       *sts.AuthError
		networkErr    *sts.NetworkError
		httpErr       *sts.HTTPError
	)

	w.Header().Set("Content-Type", "application/json")

	switch {
	case errors.As(err, &validationErr):
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
	case errors.As(err, &configErr):
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": configErr.Error()})
	case errors.As(err, &authErr):
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": authErr.Error()})
	case errors.As(err, &networkErr):
		w.WriteHeader(http.StatusGatewayTimeout)
		json.NewEncoder(w).Encode(map[string]string{"error": networkErr.Error()})
	case errors.As(err, &httpErr):
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": httpErr.Error()})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	}
}

func (h *STSDataHandler) Tanks(w http.ResponseWriter, r *http.Request) {
	sel, err := h.resolveSelection(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tanks, err := h.client.GetTanks(r.Context(), sel)
	if err != nil {
		writeSTSError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tanks)
}

func (h *STSDataHandler) Tank(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid tank ID", http.StatusBadRequest)
		return
	}

	sel, err := h.resolveSelection(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tank, err := h.client.GetTank(r.Context(), id, sel)
	if err != nil {
		writeSTSError(w, err)
		return
	}
	if tank == nil {
		http.Error(w, "Tank not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tank)
}

func (h *STSDataHandler) Pumps(w http.ResponseWriter, r *http.Request) {
	sel, err := h.resolveSelection(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pumps, err := h.client.GetPumps(r.Context(), sel)
	if err != nil {
		writeSTSError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pumps)
}

func (h *STSDataHandler) Sales(w http.ResponseWriter, r *http.Request) {
	sel, err := h.resolveSelection(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sales, err := h.client.GetSales(r.Context(), sel)
	if err != nil {
		writeSTSError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sales)
}

func (h *STSDataHandler) Prices(w http.ResponseWriter, r *http.Request) {
	sel, err := h.resolveSelection(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	prices, err := h.client.GetPrices(r.Context(), sel)
	if err != nil {
		writeSTSError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(prices)
}

func (h *STSDataHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FuelType string  `json:"fuel_type"`
		Price    float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.FuelType == "" {
		http.Error(w, "fuel_type is required", http.StatusBadRequest)
		return
	}
	if req.Price <= 0 {
		http.Error(w, "price must be positive", http.StatusBadRequest)
		return
	}

	sel, err := h.resolveSelection(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.client.UpdatePrice(r.Context(), sel, req.FuelType, req.Price); err != nil {
		writeSTSError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Price updated"})
}

func (h *STSDataHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	sel, err := h.resolveSelection(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	limit := 0
	if v := query.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
	}

	transactions, err := h.client.GetTransactions(r.Context(), sel, query.Get("date_from"), query.Get("date_to"), limit)
	if err != nil {
		writeSTSError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

func (h *STSDataHandler) TerminalInfo(w http.ResponseWriter, r *http.Request) {
	sel, err := h.resolveSelection(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	info, err := h.client.GetTerminalInfo(r.Context(), sel)
	if err != nil {
		writeSTSError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}
