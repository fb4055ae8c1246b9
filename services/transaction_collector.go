package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/akopov/azs-backoffice/backend/services/sts"
)

// TransactionCollector periodically pulls fuel transactions from the
// vendor API and caches them in sts_transactions for reporting. Every
// network's trading points are synced on a 15 minute cycle; the unique
// index on (transaction_id, network_id, trading_point_id) makes the
// sync idempotent.
type TransactionCollector struct {
	db       *sql.DB
	client   *sts.Client
	mu       sync.Mutex
	lastSync time.Time
	lastErr  string
}

func NewTransactionCollector(db *sql.DB, client *sts.Client) *TransactionCollector {
	return &TransactionCollector{db: db, client: client}
}

func (tc *TransactionCollector) Start() {
	log.Println("===================================")
	log.Println("Transaction Collector Starting")
	log.Println("Collection Interval: 15 minutes")
	log.Println("===================================")

	tc.collectAll()

	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		tc.collectAll()
	}
}

// CollectNow runs one sync cycle immediately, for the manual sync
// button.
func (tc *TransactionCollector) CollectNow() {
	go tc.collectAll()
}

func (tc *TransactionCollector) collectAll() {
	if !tc.client.IsConfigured() {
		log.Println("Transaction sync skipped: vendor API not configured")
		return
	}

	rows, err := tc.db.Query(`
		SELECT tp.id, tp.external_number, n.id, n.external_id, tp.name
		FROM trading_points tp
		JOIN networks n ON n.id = tp.network_id
		WHERE tp.is_active = 1 AND tp.external_number != ''
	`)
	if err != nil {
		log.Printf("ERROR: Failed to query trading points for sync: %v", err)
		return
	}
	defer rows.Close()

	type syncTarget struct {
		pointID        int
		externalNumber string
		networkID      int
		externalID     string
		name           string
	}

	targets := []syncTarget{}
	for rows.Next() {
		var t syncTarget
		if err := rows.Scan(&t.pointID, &t.externalNumber, &t.networkID, &t.externalID, &t.name); err != nil {
			continue
		}
		targets = append(targets, t)
	}
	rows.Close()

	if len(targets) == 0 {
		log.Println("Transaction sync: no active trading points with external numbers")
		return
	}

	log.Printf("Transaction sync starting for %d trading points", len(targets))

	synced := 0
	var syncErr string
	for _, target := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		count, err := tc.syncTradingPoint(ctx, target.networkID, target.externalID,
			target.pointID, target.externalNumber)
		cancel()
		if err != nil {
			log.Printf("ERROR: Transaction sync failed for '%s': %v", target.name, err)
			syncErr = err.Error()
			continue
		}
		synced += count
	}

	tc.mu.Lock()
	tc.lastSync = time.Now()
	tc.lastErr = syncErr
	tc.mu.Unlock()

	log.Printf("Transaction sync complete: %d new transactions", synced)
}

func (tc *TransactionCollector) syncTradingPoint(ctx context.Context, networkID int, networkExternalID string, pointID int, pointExternalNumber string) (int, error) {
	sel := sts.Selection{
		NetworkID:      networkExternalID,
		TradingPointID: pointExternalNumber,
	}

	// Pull the last 24 hours; dedupe handles the overlap between
	// cycles.
	dateFrom := time.Now().Add(-24 * time.Hour).Format("2006-01-02")
	transactions, err := tc.client.GetTransactions(ctx, sel, dateFrom, "", 0)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, txn := range transactions {
		if txn.ID == "" {
			continue
		}

		rawData, _ := json.Marshal(txn.APIData)

		var txnDate interface{}
		if !txn.Date.IsZero() {
			txnDate = txn.Date.Format("2006-01-02 15:04:05")
		} else if txn.StartTime != nil {
			txnDate = txn.StartTime.Format("2006-01-02 15:04:05")
		}

		result, err := tc.db.Exec(`
			INSERT OR IGNORE INTO sts_transactions
				(transaction_id, network_id, trading_point_id, transaction_date,
				 pump_name, fuel_type, volume, price, total,
				 status, operation_type, payment_method, operator_name, raw_data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			txn.ID, networkID, pointID, txnDate,
			txn.PumpName, txn.FuelType, txn.Volume, txn.Price, txn.Total,
			string(txn.Status), string(txn.OperationType), string(txn.PaymentMethod),
			txn.OperatorName, string(rawData))
		if err != nil {
			log.Printf("ERROR: Failed to cache transaction %s: %v", txn.ID, err)
			continue
		}
		if n, _ := result.RowsAffected(); n > 0 {
			inserted++
		}
	}

	return inserted, nil
}

func (tc *TransactionCollector) GetDebugInfo() map[string]interface{} {
	tc.mu.Lock()
	lastSync := tc.lastSync
	lastErr := tc.lastErr
	tc.mu.Unlock()

	var cached int
	tc.db.QueryRow("SELECT COUNT(*) FROM sts_transactions").Scan(&cached)

	nextSync := 15 - int(time.Since(lastSync).Minutes())
	if nextSync < 0 || lastSync.IsZero() {
		nextSync = 0
	}

	info := map[string]interface{}{
		"cached_transactions": cached,
		"last_sync":           lastSync,
		"next_sync_minutes":   nextSync,
	}
	if lastErr != "" {
		info["last_error"] = fmt.Sprintf("последняя синхронизация завершилась с ошибкой: %s", lastErr)
	}
	return info
}
