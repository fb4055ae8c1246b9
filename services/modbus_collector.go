package services

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// ModbusCollector polls automatic tank gauges over Modbus TCP and
// stores the readings in tank_readings. Trading points opt in with
// connection_type = 'modbus' and a connection_config describing the
// gauge's register map.
type ModbusCollector struct {
	db              *sql.DB
	gauges          map[int]*TankGauge
	mu              sync.RWMutex
	pollTicker      *time.Ticker
	reconnectTicker *time.Ticker
	stopCh          chan struct{}
}

type TankGauge struct {
	tradingPointID int
	pointName      string
	handler        *modbus.TCPClientHandler
	client         modbus.Client
	ipAddress      string
	port           int
	unitID         byte
	tanks          []TankRegisterMap
	isConnected    bool
	lastReadTime   time.Time
	lastError      string
	mu             sync.Mutex
}

// TankRegisterMap describes where one tank's values live in the gauge's
// holding registers. Each value is a 32-bit IEEE 754 float spanning two
// registers.
type TankRegisterMap struct {
	TankNumber     int    `json:"tank_number"`
	LevelRegister  uint16 `json:"level_register"`
	VolumeRegister uint16 `json:"volume_register"`
	TempRegister   uint16 `json:"temperature_register"`
	WaterRegister  uint16 `json:"water_register"`
}

type tankGaugeConfig struct {
	IPAddress string
	Port      int
	UnitID    int
	Tanks     []TankRegisterMap
}

func NewModbusCollector(db *sql.DB) *ModbusCollector {
	return &ModbusCollector{
		db:              db,
		gauges:          make(map[int]*TankGauge),
		pollTicker:      time.NewTicker(60 * time.Second),
		reconnectTicker: time.NewTicker(30 * time.Second),
		stopCh:          make(chan struct{}),
	}
}

func (mc *ModbusCollector) Start() {
	log.Println("=== Modbus Tank Gauge Collector Starting ===")

	mc.initializeGaugeConnections()

	go mc.pollRoutine()
	go mc.reconnectionRoutine()

	log.Println("=== Modbus Tank Gauge Collector Started ===")
}

func (mc *ModbusCollector) initializeGaugeConnections() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, gauge := range mc.gauges {
		if gauge.handler != nil {
			gauge.handler.Close()
		}
	}
	mc.gauges = make(map[int]*TankGauge)

	rows, err := mc.db.Query(`
		SELECT id, name, connection_config
		FROM trading_points
		WHERE is_active = 1 AND connection_type = 'modbus'
	`)
	if err != nil {
		log.Printf("ERROR: Failed to query Modbus trading points: %v", err)
		return
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id int
		var name string
		var configJSON sql.NullString
		if err := rows.Scan(&id, &name, &configJSON); err != nil {
			continue
		}

		config, err := parseTankGaugeConfig(configJSON.String)
		if err != nil {
			log.Printf("ERROR: Failed to parse gauge config for trading point '%s': %v", name, err)
			continue
		}

		gauge := mc.createGauge(id, name, config)
		mc.gauges[id] = gauge
		count++

		if err := gauge.connect(); err != nil {
			log.Printf("WARNING: Failed initial connection to gauge '%s': %v", name, err)
		} else {
			log.Printf("SUCCESS: Connected to tank gauge '%s' at %s:%d",
				name, config.IPAddress, config.Port)
		}
	}

	log.Printf("Found %d trading points with Modbus tank gauges", count)
}

func (mc *ModbusCollector) createGauge(tradingPointID int, name string, config tankGaugeConfig) *TankGauge {
	handler := modbus.NewTCPClientHandler(fmt.Sprintf("%s:%d", config.IPAddress, config.Port))
	handler.Timeout = 10 * time.Second
	handler.SlaveId = byte(config.UnitID)

	return &TankGauge{
		tradingPointID: tradingPointID,
		pointName:      name,
		handler:        handler,
		ipAddress:      config.IPAddress,
		port:           config.Port,
		unitID:         byte(config.UnitID),
		tanks:          config.Tanks,
	}
}

func (mc *ModbusCollector) pollRoutine() {
	for {
		select {
		case <-mc.stopCh:
			return
		case <-mc.pollTicker.C:
			mc.pollAll()
		}
	}
}

func (mc *ModbusCollector) pollAll() {
	mc.mu.RLock()
	gauges := make([]*TankGauge, 0, len(mc.gauges))
	for _, gauge := range mc.gauges {
		gauges = append(gauges, gauge)
	}
	mc.mu.RUnlock()

	for _, gauge := range gauges {
		readings, err := gauge.readTanks()
		if err != nil {
			log.Printf("ERROR: Gauge poll failed for '%s': %v", gauge.pointName, err)
			continue
		}
		for _, reading := range readings {
			mc.storeReading(gauge.tradingPointID, reading)
		}
	}
}

// GaugeReading is one tank snapshot from an ATG poll.
type GaugeReading struct {
	TankNumber   int
	LevelMm      float64
	VolumeL      float64
	TemperatureC float64
	WaterLevelMm float64
}

func (mc *ModbusCollector) storeReading(tradingPointID int, reading GaugeReading) {
	_, err := mc.db.Exec(`
		INSERT INTO tank_readings
			(trading_point_id, tank_number, reading_time, level_mm, volume_l, temperature_c, water_level_mm, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'modbus')`,
		tradingPointID, reading.TankNumber, time.Now().Format("2006-01-02 15:04:05"),
		reading.LevelMm, reading.VolumeL, reading.TemperatureC, reading.WaterLevelMm)
	if err != nil {
		log.Printf("ERROR: Failed to store tank reading (point %d, tank %d): %v",
			tradingPointID, reading.TankNumber, err)
	}
}

func (mc *ModbusCollector) reconnectionRoutine() {
	for {
		select {
		case <-mc.stopCh:
			return
		case <-mc.reconnectTicker.C:
			mc.mu.RLock()
			gauges := make([]*TankGauge, 0, len(mc.gauges))
			for _, gauge := range mc.gauges {
				gauges = append(gauges, gauge)
			}
			mc.mu.RUnlock()

			for _, gauge := range gauges {
				gauge.mu.Lock()
				if !gauge.isConnected {
					log.Printf("Attempting to reconnect to tank gauge '%s'...", gauge.pointName)
					if err := gauge.connect(); err != nil {
						log.Printf("Reconnection failed for '%s': %v", gauge.pointName, err)
					} else {
						log.Printf("Successfully reconnected to '%s'", gauge.pointName)
					}
				}
				gauge.mu.Unlock()
			}
		}
	}
}

func (mc *ModbusCollector) RestartConnections() {
	log.Println("Restarting Modbus tank gauge connections...")
	mc.initializeGaugeConnections()
}

func (mc *ModbusCollector) GetConnectionStatus() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	status := make(map[string]interface{})

	for pointID, gauge := range mc.gauges {
		gauge.mu.Lock()
		status[fmt.Sprintf("trading_point_%d", pointID)] = map[string]interface{}{
			"point_name":   gauge.pointName,
			"address":      fmt.Sprintf("%s:%d", gauge.ipAddress, gauge.port),
			"is_connected": gauge.isConnected,
			"tanks":        len(gauge.tanks),
			"last_update":  gauge.lastReadTime.Format("2006-01-02 15:04:05"),
			"last_error":   gauge.lastError,
		}
		gauge.mu.Unlock()
	}

	return status
}

func (mc *ModbusCollector) Stop() {
	log.Println("Stopping Modbus Tank Gauge Collector...")

	close(mc.stopCh)
	mc.pollTicker.Stop()
	mc.reconnectTicker.Stop()

	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, gauge := range mc.gauges {
		if gauge.handler != nil {
			gauge.handler.Close()
		}
	}

	log.Println("Modbus Tank Gauge Collector stopped")
}

// TankGauge methods

func (g *TankGauge) connect() error {
	if err := g.handler.Connect(); err != nil {
		g.isConnected = false
		g.lastError = err.Error()
		return err
	}

	g.client = modbus.NewClient(g.handler)
	g.isConnected = true
	g.lastError = ""
	return nil
}

func (g *TankGauge) readTanks() ([]GaugeReading, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.isConnected {
		if err := g.connect(); err != nil {
			return nil, fmt.Errorf("not connected: %v", err)
		}
	}

	readings := make([]GaugeReading, 0, len(g.tanks))
	for _, tank := range g.tanks {
		reading := GaugeReading{TankNumber: tank.TankNumber}

		var err error
		if reading.LevelMm, err = g.readFloat32(tank.LevelRegister); err != nil {
			g.isConnected = false
			g.lastError = err.Error()
			return readings, err
		}
		if reading.VolumeL, err = g.readFloat32(tank.VolumeRegister); err != nil {
			g.isConnected = false
			g.lastError = err.Error()
			return readings, err
		}
		if tank.TempRegister > 0 {
			if reading.TemperatureC, err = g.readFloat32(tank.TempRegister); err != nil {
				g.isConnected = false
				g.lastError = err.Error()
				return readings, err
			}
		}
		if tank.WaterRegister > 0 {
			if reading.WaterLevelMm, err = g.readFloat32(tank.WaterRegister); err != nil {
				g.isConnected = false
				g.lastError = err.Error()
				return readings, err
			}
		}

		readings = append(readings, reading)
	}

	g.lastReadTime = time.Now()
	g.lastError = ""
	return readings, nil
}

// readFloat32 reads a 32-bit IEEE 754 float from two consecutive
// holding registers (function code 3).
func (g *TankGauge) readFloat32(address uint16) (float64, error) {
	results, err := g.client.ReadHoldingRegisters(address, 2)
	if err != nil {
		return 0, err
	}
	if len(results) < 4 {
		return 0, fmt.Errorf("short register read at %d: %d bytes", address, len(results))
	}
	bits := binary.BigEndian.Uint32(results)
	return float64(math.Float32frombits(bits)), nil
}

// Helper functions

func parseTankGaugeConfig(configJSON string) (tankGaugeConfig, error) {
	result := tankGaugeConfig{
		Port:   502, // Default Modbus port
		UnitID: 1,
	}

	var rawConfig struct {
		IPAddress string            `json:"ip_address"`
		Port      int               `json:"port"`
		UnitID    int               `json:"unit_id"`
		Tanks     []TankRegisterMap `json:"tanks"`
	}
	if err := json.Unmarshal([]byte(configJSON), &rawConfig); err != nil {
		return result, err
	}

	result.IPAddress = rawConfig.IPAddress
	if rawConfig.Port > 0 {
		result.Port = rawConfig.Port
	}
	if rawConfig.UnitID > 0 {
		result.UnitID = rawConfig.UnitID
	}
	result.Tanks = rawConfig.Tanks

	if result.IPAddress == "" {
		return result, fmt.Errorf("ip_address is required")
	}
	if len(result.Tanks) == 0 {
		return result, fmt.Errorf("at least one tank register map is required")
	}

	return result, nil
}
