package sts

import (
	"strings"
	"time"
)

// Mappers normalize loose vendor payloads into stable records. They are
// total: missing or malformed fields degrade to zero values and sentinels,
// never to a panic or an error.

// Ordered candidate-field tables. The first present field wins; keeping
// them declared in one place makes the normalization contract auditable.
var (
	tankIDFields          = []string{"id", "tank_id", "number", "tank_number", "tank"}
	tankNameFields        = []string{"name", "tank_name", "title"}
	tankVolumeFields      = []string{"volume", "current_volume", "fuel_volume", "rest", "liters"}
	tankCapacityFields    = []string{"capacity", "max_volume", "total_volume", "tank_capacity"}
	tankTemperatureFields = []string{"temperature", "temp", "t"}
	tankWaterLevelFields  = []string{"water_level", "water", "water_mm"}
	tankCalibrationFields = []string{"last_calibration", "calibration_date", "calibrated_at"}
	tankPumpsFields       = []string{"pumps", "linked_pumps", "trk"}

	pumpIDFields       = []string{"id", "pump_id", "number", "trk_number"}
	pumpNameFields     = []string{"name", "pump_name", "title"}
	pumpStatusFields   = []string{"status", "state", "pump_status"}
	pumpPriceFields    = []string{"price", "current_price", "fuel_price"}
	pumpTotalFields    = []string{"total_sales", "total", "totals"}
	pumpDailyFields    = []string{"daily_sales", "today_sales", "day_total"}
	pumpLastTxnFields  = []string{"last_transaction", "last_sale", "last_operation"}
	pumpNozzlesFields  = []string{"nozzles", "guns", "pistols"}

	saleIDFields      = []string{"id", "sale_id", "operation_id"}
	saleDateFields    = []string{"date", "dt", "sale_date", "created_at"}
	saleVolumeFields  = []string{"volume", "quantity", "liters"}
	salePriceFields   = []string{"price", "unit_price"}
	saleTotalFields   = []string{"total", "amount", "sum"}
	saleCardFields    = []string{"card_number", "card", "card_num"}
	saleReceiptFields = []string{"receipt_number", "receipt", "check_number"}

	priceIDFields     = []string{"id", "price_id"}
	priceValueFields  = []string{"price", "value", "cost"}
	priceDateFields   = []string{"effective_date", "date", "dt", "valid_from"}
	priceAuthorFields = []string{"author", "user", "created_by"}
	priceStatusFields = []string{"status", "state"}

	txnIDFields        = []string{"id", "transaction_id", "operation_id", "uid"}
	txnExternalFields  = []string{"transaction_id", "transaction_number", "external_id", "number"}
	txnDateFields      = []string{"dt", "date", "transaction_date", "created_at"}
	txnStartFields     = []string{"start_time", "dt_start", "begin_time", "started_at"}
	txnEndFields       = []string{"end_time", "dt_end", "finish_time", "finished_at"}
	txnDurationFields  = []string{"duration", "duration_min", "duration_minutes"}
	txnPumpIDFields    = []string{"pump_id", "pump", "trk_number"}
	txnPumpNameFields  = []string{"pump_name", "trk_name"}
	txnVolumeFields    = []string{"volume", "quantity", "liters"}
	txnPriceFields     = []string{"price", "unit_price"}
	txnTotalFields     = []string{"total", "amount", "sum"}
	txnCardFields      = []string{"card_number", "card", "card_num"}
	txnReceiptFields   = []string{"receipt_number", "receipt", "check_number"}
	txnStatusFields    = []string{"status", "state", "transaction_status"}
	txnOperationFields = []string{"operation_type", "operation", "type"}
	txnPaymentFields   = []string{"payment_method", "payment", "pay_type"}
	txnNetworkFields   = []string{"system", "network_id", "network"}
	txnStationFields   = []string{"station", "trading_point_id", "station_number"}
	txnOperatorFields  = []string{"operator", "operator_name", "cashier"}
)

// MapAPITank normalizes one vendor tank record. Volumes come through as
// absolute liters, thresholds are fixed constants, and sensor status is
// derived from the single vendor state flag (this endpoint shape has no
// per-sensor status). The raw record is kept in APIData.
func MapAPITank(obj map[string]interface{}) Tank {
	currentVolume := getFloat(obj, tankVolumeFields...)
	capacity := getFloat(obj, tankCapacityFields...)

	sensorStatus := "error"
	if SafeInt(getValue(obj, "state", "sensor_state", "status")) == 1 {
		sensorStatus = "ok"
	}

	tank := Tank{
		ID:                   SafeInt(getValue(obj, tankIDFields...)),
		Name:                 stringOr(getString(obj, tankNameFields...), UnknownValue),
		FuelType:             ResolveEntityFuelType(obj),
		CurrentVolume:        currentVolume,
		Capacity:             capacity,
		MinLevelPercent:      TankMinLevelPercent,
		CriticalLevelPercent: TankCriticalLevelPercent,
		Temperature:          getFloat(obj, tankTemperatureFields...),
		WaterLevelMm:         getFloat(obj, tankWaterLevelFields...),
		LastCalibration:      ParseSTSTime(getString(obj, tankCalibrationFields...)),
		LinkedPumps:          mapLinkedPumps(getValue(obj, tankPumpsFields...)),
		Sensors: []SensorStatus{
			{Name: "Уровнемер", Status: sensorStatus},
			{Name: "Датчик температуры", Status: sensorStatus},
			{Name: "Датчик воды", Status: sensorStatus},
		},
		APIData: obj,
	}

	if capacity > 0 {
		fillPercent := currentVolume / capacity * 100
		tank.Notifications = TankNotifications{
			LowLevel:      fillPercent <= TankMinLevelPercent,
			CriticalLevel: fillPercent <= TankCriticalLevelPercent,
		}
	}

	return tank
}

func mapLinkedPumps(raw interface{}) []string {
	items, ok := raw.([]interface{})
	if !ok {
		return []string{}
	}
	pumps := make([]string, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			if id := getString(obj, pumpIDFields...); id != "" {
				pumps = append(pumps, id)
			}
			continue
		}
		if id := SafeString(item); id != "" {
			pumps = append(pumps, id)
		}
	}
	return pumps
}

// MapAPIPump normalizes one vendor pump record.
func MapAPIPump(obj map[string]interface{}) Pump {
	return Pump{
		ID:              stringOr(getString(obj, pumpIDFields...), EmptyValue),
		Name:            stringOr(getString(obj, pumpNameFields...), UnknownValue),
		Status:          stringOr(getString(obj, pumpStatusFields...), UnknownValue),
		FuelType:        ResolveEntityFuelType(obj),
		CurrentPrice:    getFloat(obj, pumpPriceFields...),
		TotalSales:      getFloat(obj, pumpTotalFields...),
		DailySales:      getFloat(obj, pumpDailyFields...),
		LastTransaction: ParseSTSTime(getString(obj, pumpLastTxnFields...)),
		Nozzles:         mapNozzles(getValue(obj, pumpNozzlesFields...)),
	}
}

func mapNozzles(raw interface{}) []Nozzle {
	items, ok := raw.([]interface{})
	if !ok {
		return []Nozzle{}
	}
	nozzles := make([]Nozzle, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		nozzles = append(nozzles, Nozzle{
			ID:     stringOr(getString(obj, "id", "nozzle_id", "number"), EmptyValue),
			Name:   stringOr(getString(obj, "name", "nozzle_name"), UnknownValue),
			Status: stringOr(getString(obj, "status", "state"), UnknownValue),
		})
	}
	return nozzles
}

// MapAPISale normalizes one vendor sale record.
func MapAPISale(obj map[string]interface{}) Sale {
	return Sale{
		ID:            stringOr(getString(obj, saleIDFields...), EmptyValue),
		Date:          ParseSTSTime(getString(obj, saleDateFields...)),
		PumpID:        getString(obj, txnPumpIDFields...),
		PumpName:      getString(obj, txnPumpNameFields...),
		FuelType:      ResolveEntityFuelType(obj),
		Volume:        getFloat(obj, saleVolumeFields...),
		UnitPrice:     getFloat(obj, salePriceFields...),
		Total:         getFloat(obj, saleTotalFields...),
		CardNumber:    getString(obj, saleCardFields...),
		ReceiptNumber: getString(obj, saleReceiptFields...),
	}
}

// MapAPIPrice normalizes one vendor price record, resolving the fuel
// designation through the service-code dictionary.
func MapAPIPrice(obj map[string]interface{}) Price {
	return Price{
		ID:            stringOr(getString(obj, priceIDFields...), EmptyValue),
		FuelType:      ResolveFuelType(obj),
		Price:         getFloat(obj, priceValueFields...),
		EffectiveDate: ParseSTSTime(getString(obj, priceDateFields...)),
		Author:        stringOr(getString(obj, priceAuthorFields...), EmptyValue),
		Status:        stringOr(getString(obj, priceStatusFields...), UnknownValue),
	}
}

// MapAPITransaction normalizes one vendor transaction record.
func MapAPITransaction(obj map[string]interface{}) Transaction {
	txn := Transaction{
		ID:             stringOr(getString(obj, txnIDFields...), EmptyValue),
		TransactionID:  stringOr(getString(obj, txnExternalFields...), EmptyValue),
		Date:           ParseSTSTime(getString(obj, txnDateFields...)),
		PumpID:         getString(obj, txnPumpIDFields...),
		PumpName:       getString(obj, txnPumpNameFields...),
		FuelType:       ResolveEntityFuelType(obj),
		Volume:         getFloat(obj, txnVolumeFields...),
		Price:          getFloat(obj, txnPriceFields...),
		Total:          getFloat(obj, txnTotalFields...),
		CardNumber:     getString(obj, txnCardFields...),
		ReceiptNumber:  getString(obj, txnReceiptFields...),
		Status:         NormalizeTransactionStatus(getString(obj, txnStatusFields...)),
		OperationType:  NormalizeOperationType(getString(obj, txnOperationFields...)),
		NetworkID:      getString(obj, txnNetworkFields...),
		TradingPointID: getString(obj, txnStationFields...),
		OperatorName:   getString(obj, txnOperatorFields...),
		APIData:        obj,
	}

	if payment := getString(obj, txnPaymentFields...); payment != "" {
		txn.PaymentMethod = NormalizePaymentMethod(payment)
	}

	if start := ParseSTSTime(getString(obj, txnStartFields...)); !start.IsZero() {
		txn.StartTime = &start
	}
	if end := ParseSTSTime(getString(obj, txnEndFields...)); !end.IsZero() {
		txn.EndTime = &end
	}

	txn.DurationMinutes = transactionDuration(txn.StartTime, txn.EndTime, getValue(obj, txnDurationFields...))

	return txn
}

// transactionDuration prefers the timestamp difference, then the explicit
// vendor field, and stays nil when neither is available.
func transactionDuration(start, end *time.Time, vendorDuration interface{}) *float64 {
	if start != nil && end != nil {
		minutes := end.Sub(*start).Minutes()
		return &minutes
	}
	if vendorDuration != nil {
		minutes := SafeFloat(vendorDuration)
		return &minutes
	}
	return nil
}

// NormalizeTransactionStatus collapses vendor status strings into the
// four-state scheme. Unrecognized values default to pending.
func NormalizeTransactionStatus(raw string) TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "complete", "done", "success", "finished", "закрыта", "завершена", "завершено":
		return StatusCompleted
	case "in_progress", "active", "processing", "running", "выполняется", "активна":
		return StatusInProgress
	case "failed", "error", "cancelled", "canceled", "aborted", "ошибка", "отменена":
		return StatusFailed
	default:
		return StatusPending
	}
}

// NormalizeOperationType collapses vendor operation strings. Unrecognized
// values default to sale.
func NormalizeOperationType(raw string) OperationType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "refund", "return", "возврат":
		return OperationRefund
	case "correction", "коррекция":
		return OperationCorrection
	case "maintenance", "service", "обслуживание":
		return OperationMaintenance
	case "tank_loading", "loading", "прием топлива", "слив":
		return OperationTankLoading
	case "diagnostics", "диагностика":
		return OperationDiagnostics
	case "sensor_calibration", "calibration", "калибровка", "поверка":
		return OperationSensorCalibration
	default:
		return OperationSale
	}
}

// NormalizePaymentMethod collapses vendor payment strings into the
// four-way scheme. The vendor's mobile payment label and bank name are
// special-cased rather than preserved verbatim. Unrecognized values
// default to cash.
func NormalizePaymentMethod(raw string) PaymentMethod {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "Мобил.П":
		return PaymentOnlineOrder
	case "Сбербанк":
		return PaymentBankCard
	}

	switch strings.ToLower(trimmed) {
	case "bank_card", "card", "карта", "банк.карта", "банковская карта":
		return PaymentBankCard
	case "fuel_card", "топливная карта", "талон":
		return PaymentFuelCard
	case "online_order", "online", "онлайн", "онлайн-заказ", "mobile":
		return PaymentOnlineOrder
	default:
		return PaymentCash
	}
}
