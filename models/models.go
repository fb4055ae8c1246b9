package models

import "time"

type AdminUser struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	RoleID       *int      `json:"role_id"`
	RoleName     string    `json:"role_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Role struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Network struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	ExternalID string    `json:"external_id"`
	Notes      string    `json:"notes"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type TradingPoint struct {
	ID               int       `json:"id"`
	NetworkID        int       `json:"network_id"`
	Name             string    `json:"name"`
	ExternalNumber   string    `json:"external_number"`
	Address          string    `json:"address"`
	ConnectionType   string    `json:"connection_type"`
	ConnectionConfig string    `json:"connection_config"`
	Notes            string    `json:"notes"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Coupon struct {
	ID            int       `json:"id"`
	Code          string    `json:"code"`
	Description   string    `json:"description"`
	DiscountType  string    `json:"discount_type"`
	DiscountValue float64   `json:"discount_value"`
	FuelCode      string    `json:"fuel_code"`
	ValidFrom     string    `json:"valid_from"`
	ValidTo       string    `json:"valid_to"`
	UsageLimit    int       `json:"usage_limit"`
	UsageCount    int       `json:"usage_count"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type PriceList struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	NetworkID      *int            `json:"network_id"`
	TradingPointID *int            `json:"trading_point_id"`
	EffectiveFrom  string          `json:"effective_from"`
	Status         string          `json:"status"`
	Author         string          `json:"author"`
	Items          []PriceListItem `json:"items,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type PriceListItem struct {
	ID          int     `json:"id"`
	PriceListID int     `json:"price_list_id"`
	FuelCode    string  `json:"fuel_code"`
	FuelName    string  `json:"fuel_name"`
	Price       float64 `json:"price"`
}

type CachedTransaction struct {
	ID              int        `json:"id"`
	TransactionID   string     `json:"transaction_id"`
	NetworkID       *int       `json:"network_id"`
	TradingPointID  *int       `json:"trading_point_id"`
	TransactionDate *time.Time `json:"transaction_date"`
	PumpName        string     `json:"pump_name"`
	FuelType        string     `json:"fuel_type"`
	Volume          float64    `json:"volume"`
	Price           float64    `json:"price"`
	Total           float64    `json:"total"`
	Status          string     `json:"status"`
	OperationType   string     `json:"operation_type"`
	PaymentMethod   string     `json:"payment_method"`
	OperatorName    string     `json:"operator_name"`
	CreatedAt       time.Time  `json:"created_at"`
}

type TankReading struct {
	ID             int       `json:"id"`
	TradingPointID int       `json:"trading_point_id"`
	TankNumber     int       `json:"tank_number"`
	ReadingTime    time.Time `json:"reading_time"`
	LevelMm        float64   `json:"level_mm"`
	VolumeL        float64   `json:"volume_l"`
	TemperatureC   float64   `json:"temperature_c"`
	WaterLevelMm   float64   `json:"water_level_mm"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
}
