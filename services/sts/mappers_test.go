package sts

import (
	"reflect"
	"testing"
	"time"
)

func TestMapAPITankSensorsFromStateFlag(t *testing.T) {
	tank := MapAPITank(map[string]interface{}{
		"id":       2.0,
		"name":     "Резервуар 2",
		"state":    1.0,
		"volume":   12000.0,
		"capacity": 20000.0,
	})

	if tank.ID != 2 {
		t.Errorf("ID = %d, want 2", tank.ID)
	}
	if len(tank.Sensors) != 3 {
		t.Fatalf("len(Sensors) = %d, want 3", len(tank.Sensors))
	}
	for _, sensor := range tank.Sensors {
		if sensor.Status != "ok" {
			t.Errorf("sensor %q status = %q, want ok", sensor.Name, sensor.Status)
		}
	}

	offline := MapAPITank(map[string]interface{}{"id": 1, "state": 0})
	for _, sensor := range offline.Sensors {
		if sensor.Status != "error" {
			t.Errorf("sensor %q status = %q, want error when state is 0", sensor.Name, sensor.Status)
		}
	}
}

func TestMapAPITankNotifications(t *testing.T) {
	cases := []struct {
		name         string
		volume       float64
		capacity     float64
		wantLow      bool
		wantCritical bool
	}{
		{"full", 18000, 20000, false, false},
		{"low", 3000, 20000, true, false},
		{"critical", 1500, 20000, true, true},
		{"no capacity", 1500, 0, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tank := MapAPITank(map[string]interface{}{
				"volume":   tc.volume,
				"capacity": tc.capacity,
			})
			if tank.Notifications.LowLevel != tc.wantLow {
				t.Errorf("LowLevel = %v, want %v", tank.Notifications.LowLevel, tc.wantLow)
			}
			if tank.Notifications.CriticalLevel != tc.wantCritical {
				t.Errorf("CriticalLevel = %v, want %v", tank.Notifications.CriticalLevel, tc.wantCritical)
			}
		})
	}
}

func TestMapAPITankKeepsRawPayload(t *testing.T) {
	obj := map[string]interface{}{"id": 1, "vendor_extra": "kept"}
	tank := MapAPITank(obj)
	if !reflect.DeepEqual(tank.APIData, obj) {
		t.Error("APIData does not carry the raw record")
	}
}

func TestMapAPIPriceStringNumber(t *testing.T) {
	price := MapAPIPrice(map[string]interface{}{
		"service_code": "3",
		"price":        "53,10",
	})
	if price.FuelType != "АИ-95" {
		t.Errorf("FuelType = %q, want АИ-95", price.FuelType)
	}
	if price.Price != 53.10 {
		t.Errorf("Price = %v, want 53.10", price.Price)
	}
	if price.ID != EmptyValue {
		t.Errorf("ID = %q, want empty sentinel", price.ID)
	}
	if price.Status != UnknownValue {
		t.Errorf("Status = %q, want unknown sentinel", price.Status)
	}
}

func TestMapAPITransactionDuration(t *testing.T) {
	// Timestamp difference wins over the vendor duration field
	txn := MapAPITransaction(map[string]interface{}{
		"id":       "t1",
		"dt_start": "2026-08-15T10:00:00",
		"dt_end":   "2026-08-15T10:04:30",
		"duration": 99.0,
	})
	if txn.DurationMinutes == nil {
		t.Fatal("DurationMinutes = nil, want value")
	}
	if *txn.DurationMinutes != 4.5 {
		t.Errorf("DurationMinutes = %v, want 4.5", *txn.DurationMinutes)
	}

	// Vendor field is the fallback when timestamps are incomplete
	txn = MapAPITransaction(map[string]interface{}{
		"id":       "t2",
		"duration": 7.0,
	})
	if txn.DurationMinutes == nil || *txn.DurationMinutes != 7 {
		t.Errorf("DurationMinutes = %v, want 7 from vendor field", txn.DurationMinutes)
	}

	// Neither available: stays nil, never zero
	txn = MapAPITransaction(map[string]interface{}{
		"id": "t3",
		"dt": "2026-08-15T10:00:00",
	})
	if txn.DurationMinutes != nil {
		t.Errorf("DurationMinutes = %v, want nil", *txn.DurationMinutes)
	}
}

func TestMapAPITransactionPaymentOnlyWhenPresent(t *testing.T) {
	txn := MapAPITransaction(map[string]interface{}{"id": "t1"})
	if txn.PaymentMethod != "" {
		t.Errorf("PaymentMethod = %q, want unset when field absent", txn.PaymentMethod)
	}

	txn = MapAPITransaction(map[string]interface{}{"id": "t1", "payment": "Мобил.П"})
	if txn.PaymentMethod != PaymentOnlineOrder {
		t.Errorf("PaymentMethod = %q, want online_order", txn.PaymentMethod)
	}
}

func TestMapAPITransactionIsIdempotent(t *testing.T) {
	obj := map[string]interface{}{
		"id":       "t1",
		"dt":       "2026-08-15T10:00:00",
		"volume":   "40,5",
		"price":    55.2,
		"total":    2235.6,
		"status":   "Закрыта",
		"payment":  "Сбербанк",
		"operator": "Иванова",
	}

	first := MapAPITransaction(obj)
	second := MapAPITransaction(obj)
	if !reflect.DeepEqual(first, second) {
		t.Error("mapping the same record twice produced different results")
	}
	if first.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", first.Status)
	}
	if first.PaymentMethod != PaymentBankCard {
		t.Errorf("PaymentMethod = %q, want bank_card", first.PaymentMethod)
	}
	if first.Volume != 40.5 {
		t.Errorf("Volume = %v, want 40.5", first.Volume)
	}
}

func TestNormalizeTransactionStatus(t *testing.T) {
	cases := map[string]TransactionStatus{
		"completed":   StatusCompleted,
		"Закрыта":     StatusCompleted,
		"завершена":   StatusCompleted,
		"in_progress": StatusInProgress,
		"Активна":     StatusInProgress,
		"failed":      StatusFailed,
		"отменена":    StatusFailed,
		"":            StatusPending,
		"что-то ещё":  StatusPending,
	}
	for raw, want := range cases {
		if got := NormalizeTransactionStatus(raw); got != want {
			t.Errorf("NormalizeTransactionStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeOperationType(t *testing.T) {
	cases := map[string]OperationType{
		"refund":        OperationRefund,
		"Возврат":       OperationRefund,
		"коррекция":     OperationCorrection,
		"обслуживание":  OperationMaintenance,
		"прием топлива": OperationTankLoading,
		"диагностика":   OperationDiagnostics,
		"калибровка":    OperationSensorCalibration,
		"":              OperationSale,
		"sale":          OperationSale,
	}
	for raw, want := range cases {
		if got := NormalizeOperationType(raw); got != want {
			t.Errorf("NormalizeOperationType(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizePaymentMethod(t *testing.T) {
	cases := map[string]PaymentMethod{
		"Мобил.П":         PaymentOnlineOrder,
		"Сбербанк":        PaymentBankCard,
		"карта":           PaymentBankCard,
		"топливная карта": PaymentFuelCard,
		"талон":           PaymentFuelCard,
		"онлайн":          PaymentOnlineOrder,
		"наличные":        PaymentCash,
		"":                PaymentCash,
	}
	for raw, want := range cases {
		if got := NormalizePaymentMethod(raw); got != want {
			t.Errorf("NormalizePaymentMethod(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestMapAPISale(t *testing.T) {
	sale := MapAPISale(map[string]interface{}{
		"id":       42.0,
		"dt":       "15.08.2026 10:30:00",
		"fuel":     "ai95",
		"quantity": "30",
		"sum":      1650.0,
	})
	if sale.ID != "42" {
		t.Errorf("ID = %q, want 42", sale.ID)
	}
	if sale.FuelType != "АИ-95" {
		t.Errorf("FuelType = %q, want АИ-95", sale.FuelType)
	}
	if sale.Volume != 30 {
		t.Errorf("Volume = %v, want 30", sale.Volume)
	}
	if sale.Total != 1650 {
		t.Errorf("Total = %v, want 1650", sale.Total)
	}
	want := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	if !sale.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", sale.Date, want)
	}
}

func TestMapAPIPumpSentinels(t *testing.T) {
	pump := MapAPIPump(map[string]interface{}{})
	if pump.ID != EmptyValue {
		t.Errorf("ID = %q, want empty sentinel", pump.ID)
	}
	if pump.Name != UnknownValue || pump.Status != UnknownValue {
		t.Errorf("Name/Status = %q/%q, want unknown sentinels", pump.Name, pump.Status)
	}
	if pump.Nozzles == nil {
		t.Error("Nozzles = nil, want empty slice")
	}
}

func TestMapAPITankFuelUnknownWithoutFuelField(t *testing.T) {
	tank := MapAPITank(map[string]interface{}{
		"id":     1,
		"name":   "Резервуар 1",
		"volume": 5000,
	})
	if tank.Name != "Резервуар 1" {
		t.Errorf("Name = %q, want Резервуар 1", tank.Name)
	}
	if tank.FuelType != UnknownValue {
		t.Errorf("FuelType = %q, want %q", tank.FuelType, UnknownValue)
	}

	pump := MapAPIPump(map[string]interface{}{"name": "ТРК 2"})
	if pump.FuelType != UnknownValue {
		t.Errorf("pump FuelType = %q, want %q", pump.FuelType, UnknownValue)
	}
}

func TestMapAPIPriceFuelFromNameField(t *testing.T) {
	// price records carry the fuel name in "name"
	price := MapAPIPrice(map[string]interface{}{"name": "ai95", "price": "52.40"})
	if price.FuelType != "АИ-95" {
		t.Errorf("FuelType = %q, want АИ-95", price.FuelType)
	}
}
