package sts

import "time"

// Sentinel values substituted when the vendor omits a field.
const (
	UnknownValue = "Неизвестно"
	EmptyValue   = "-"
)

// Fixed tank level thresholds, in percent of capacity. These are not
// vendor-supplied.
const (
	TankMinLevelPercent      = 20.0
	TankCriticalLevelPercent = 10.0
)

// Tank is a normalized snapshot of one fuel tank. APIData carries the
// untransformed vendor record for callers that need exact vendor fields.
type Tank struct {
	ID                   int                    `json:"id"`
	Name                 string                 `json:"name"`
	FuelType             string                 `json:"fuel_type"`
	CurrentVolume        float64                `json:"current_volume"`
	Capacity             float64                `json:"capacity"`
	MinLevelPercent      float64                `json:"min_level_percent"`
	CriticalLevelPercent float64                `json:"critical_level_percent"`
	Temperature          float64                `json:"temperature"`
	WaterLevelMm         float64                `json:"water_level_mm"`
	Sensors              []SensorStatus         `json:"sensors"`
	LastCalibration      time.Time              `json:"last_calibration"`
	LinkedPumps          []string               `json:"linked_pumps"`
	Notifications        TankNotifications      `json:"notifications"`
	APIData              map[string]interface{} `json:"api_data,omitempty"`
}

type SensorStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok" or "error"
}

// TankNotifications flags the fixed level thresholds against the current fill.
type TankNotifications struct {
	LowLevel      bool `json:"low_level"`
	CriticalLevel bool `json:"critical_level"`
}

type Pump struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	FuelType        string    `json:"fuel_type"`
	CurrentPrice    float64   `json:"current_price"`
	TotalSales      float64   `json:"total_sales"`
	DailySales      float64   `json:"daily_sales"`
	LastTransaction time.Time `json:"last_transaction"`
	Nozzles         []Nozzle  `json:"nozzles"`
}

type Nozzle struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type Sale struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"`
	PumpID        string    `json:"pump_id"`
	PumpName      string    `json:"pump_name"`
	FuelType      string    `json:"fuel_type"`
	Volume        float64   `json:"volume"`
	UnitPrice     float64   `json:"unit_price"`
	Total         float64   `json:"total"`
	CardNumber    string    `json:"card_number,omitempty"`
	ReceiptNumber string    `json:"receipt_number,omitempty"`
}

type Price struct {
	ID            string    `json:"id"`
	FuelType      string    `json:"fuel_type"`
	Price         float64   `json:"price"`
	EffectiveDate time.Time `json:"effective_date"`
	Author        string    `json:"author"`
	Status        string    `json:"status"`
}

type TransactionStatus string

const (
	StatusCompleted  TransactionStatus = "completed"
	StatusInProgress TransactionStatus = "in_progress"
	StatusFailed     TransactionStatus = "failed"
	StatusPending    TransactionStatus = "pending"
)

type OperationType string

const (
	OperationSale              OperationType = "sale"
	OperationRefund            OperationType = "refund"
	OperationCorrection        OperationType = "correction"
	OperationMaintenance       OperationType = "maintenance"
	OperationTankLoading       OperationType = "tank_loading"
	OperationDiagnostics       OperationType = "diagnostics"
	OperationSensorCalibration OperationType = "sensor_calibration"
)

type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentBankCard    PaymentMethod = "bank_card"
	PaymentFuelCard    PaymentMethod = "fuel_card"
	PaymentOnlineOrder PaymentMethod = "online_order"
)

// Transaction carries one vendor transaction in normalized form.
// DurationMinutes is nil when neither timestamps nor an explicit vendor
// duration are available.
type Transaction struct {
	ID              string                 `json:"id"`
	TransactionID   string                 `json:"transaction_id"`
	Date            time.Time              `json:"date"`
	StartTime       *time.Time             `json:"start_time,omitempty"`
	EndTime         *time.Time             `json:"end_time,omitempty"`
	PumpID          string                 `json:"pump_id,omitempty"`
	PumpName        string                 `json:"pump_name,omitempty"`
	FuelType        string                 `json:"fuel_type"`
	Volume          float64                `json:"volume"`
	Price           float64                `json:"price"`
	Total           float64                `json:"total"`
	CardNumber      string                 `json:"card_number,omitempty"`
	ReceiptNumber   string                 `json:"receipt_number,omitempty"`
	Status          TransactionStatus      `json:"status"`
	OperationType   OperationType          `json:"operation_type"`
	PaymentMethod   PaymentMethod          `json:"payment_method,omitempty"`
	NetworkID       string                 `json:"network_id,omitempty"`
	TradingPointID  string                 `json:"trading_point_id,omitempty"`
	OperatorName    string                 `json:"operator_name,omitempty"`
	DurationMinutes *float64               `json:"duration_minutes,omitempty"`
	APIData         map[string]interface{} `json:"api_data,omitempty"`
}

// DeviceStatus is the normalized state of one auxiliary terminal device.
type DeviceStatus struct {
	Name   string `json:"name"`
	Online bool   `json:"online"`
	Status string `json:"status"` // "ok" or "error"
}

type ShiftState struct {
	Open     bool   `json:"open"`
	Number   string `json:"number,omitempty"`
	OpenedAt string `json:"opened_at,omitempty"`
	Operator string `json:"operator,omitempty"`
}

type POSStatus struct {
	Name   string     `json:"name"`
	Online bool       `json:"online"`
	Shift  ShiftState `json:"shift"`
}

type TerminalInfo struct {
	TerminalID        string                 `json:"terminal_id"`
	Name              string                 `json:"name"`
	Online            bool                   `json:"online"`
	POS               POSStatus              `json:"pos"`
	FiscalRegister    DeviceStatus           `json:"fiscal_register"`
	BillAcceptor      DeviceStatus           `json:"bill_acceptor"`
	CardReader        DeviceStatus           `json:"card_reader"`
	ContactlessReader DeviceStatus           `json:"contactless_reader"`
	APIData           map[string]interface{} `json:"api_data,omitempty"`
}

// Selection identifies which vendor account/station a request concerns.
// It is supplied per call by the caller and never persisted here.
type Selection struct {
	NetworkID      string `json:"network_id,omitempty"`
	TradingPointID string `json:"trading_point_id,omitempty"`
}
