package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTCollector subscribes to tank telemetry published by station
// controllers and stores readings in tank_readings. Trading points opt
// in with connection_type = 'mqtt'; their connection_config names the
// broker. Each controller publishes to azs/{external_number}/tank/{n}.
type MQTTCollector struct {
	db            *sql.DB
	clients       map[string]mqtt.Client // broker URL -> MQTT client
	isRunning     bool
	mu            sync.RWMutex
	lastReadings  map[string]TankTelemetry // "pointID/tankNumber" -> last reading
	pointNumbers  map[string]int           // external_number -> trading_point_id
	subscriptions map[string][]string      // broker URL -> topics
	stopChan      chan bool
}

// TankTelemetry is one tank snapshot as published by a station
// controller.
type TankTelemetry struct {
	LevelMm      float64 `json:"level_mm"`
	VolumeL      float64 `json:"volume_l"`
	TemperatureC float64 `json:"temperature_c"`
	WaterLevelMm float64 `json:"water_level_mm"`
	Timestamp    int64   `json:"timestamp"`
	LastUpdated  time.Time
}

func NewMQTTCollector(db *sql.DB) *MQTTCollector {
	return &MQTTCollector{
		db:            db,
		clients:       make(map[string]mqtt.Client),
		lastReadings:  make(map[string]TankTelemetry),
		pointNumbers:  make(map[string]int),
		subscriptions: make(map[string][]string),
		stopChan:      make(chan bool),
	}
}

func (mc *MQTTCollector) Start() {
	mc.mu.Lock()
	if mc.isRunning {
		mc.mu.Unlock()
		return
	}
	mc.isRunning = true
	mc.mu.Unlock()

	log.Println("=== MQTT Collector Starting ===")

	if err := mc.connectToAllBrokers(); err != nil {
		log.Printf("ERROR: Failed to initialize MQTT connections: %v", err)
		return
	}

	log.Println("=== MQTT Collector Started Successfully ===")
}

func (mc *MQTTCollector) Stop() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if !mc.isRunning {
		return
	}

	log.Println("Stopping MQTT Collector...")
	mc.isRunning = false

	for brokerURL, client := range mc.clients {
		if client != nil && client.IsConnected() {
			log.Printf("Disconnecting from MQTT broker: %s", brokerURL)
			client.Disconnect(250)
		}
	}

	close(mc.stopChan)
	log.Println("MQTT Collector stopped")
}

// Restart reloads trading point configs and reconnects. Called after
// trading points are edited.
func (mc *MQTTCollector) Restart() {
	log.Println("Restarting MQTT Collector...")

	mc.mu.Lock()
	for _, client := range mc.clients {
		if client != nil && client.IsConnected() {
			client.Disconnect(250)
		}
	}
	mc.clients = make(map[string]mqtt.Client)
	mc.pointNumbers = make(map[string]int)
	mc.subscriptions = make(map[string][]string)
	mc.mu.Unlock()

	if err := mc.connectToAllBrokers(); err != nil {
		log.Printf("ERROR: Failed to reconnect MQTT brokers: %v", err)
	}
}

func (mc *MQTTCollector) connectToAllBrokers() error {
	rows, err := mc.db.Query(`
		SELECT id, external_number, connection_config
		FROM trading_points
		WHERE is_active = 1 AND connection_type = 'mqtt'
	`)
	if err != nil {
		return fmt.Errorf("failed to query MQTT trading points: %v", err)
	}
	defer rows.Close()

	// broker URL -> config; several points may share one broker
	brokerConfigs := make(map[string]map[string]interface{})
	brokerTopics := make(map[string][]string)

	for rows.Next() {
		var id int
		var externalNumber, configJSON sql.NullString
		if err := rows.Scan(&id, &externalNumber, &configJSON); err != nil {
			continue
		}
		if externalNumber.String == "" {
			log.Printf("WARNING: Trading point %d has MQTT enabled but no external number, skipping", id)
			continue
		}

		var config map[string]interface{}
		if err := json.Unmarshal([]byte(configJSON.String), &config); err != nil {
			log.Printf("ERROR: Failed to parse MQTT config for trading point %d: %v", id, err)
			continue
		}

		broker, _ := config["mqtt_broker"].(string)
		port, _ := config["mqtt_port"].(float64)
		if broker == "" {
			broker = "localhost"
		}
		if port == 0 {
			port = 1883
		}

		brokerURL := fmt.Sprintf("tcp://%s:%.0f", broker, port)
		brokerConfigs[brokerURL] = config
		brokerTopics[brokerURL] = append(brokerTopics[brokerURL],
			fmt.Sprintf("azs/%s/tank/+", externalNumber.String))

		mc.mu.Lock()
		mc.pointNumbers[externalNumber.String] = id
		mc.mu.Unlock()
	}

	if len(brokerConfigs) == 0 {
		log.Println("No MQTT brokers configured")
		return nil
	}

	for brokerURL, config := range brokerConfigs {
		mc.mu.Lock()
		mc.subscriptions[brokerURL] = brokerTopics[brokerURL]
		mc.mu.Unlock()

		if err := mc.connectToBroker(brokerURL, config); err != nil {
			log.Printf("ERROR: Failed to connect to broker %s: %v", brokerURL, err)
			// Continue with other brokers even if one fails
		}
	}

	return nil
}

func (mc *MQTTCollector) connectToBroker(brokerURL string, config map[string]interface{}) error {
	clientID := fmt.Sprintf("azs-backoffice-%d-%s", time.Now().Unix(), strings.ReplaceAll(brokerURL, ":", "_"))

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetWriteTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("WARNING: Lost connection to MQTT broker %s: %v", brokerURL, err)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("Connected to MQTT broker %s", brokerURL)
		mc.subscribeTopics(client, brokerURL)
	})

	username, _ := config["mqtt_username"].(string)
	password, _ := config["mqtt_password"].(string)
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return fmt.Errorf("connection timeout")
	}
	if token.Error() != nil {
		return token.Error()
	}

	mc.mu.Lock()
	mc.clients[brokerURL] = client
	mc.mu.Unlock()

	return nil
}

func (mc *MQTTCollector) subscribeTopics(client mqtt.Client, brokerURL string) {
	mc.mu.RLock()
	topics := mc.subscriptions[brokerURL]
	mc.mu.RUnlock()

	for _, topic := range topics {
		token := client.Subscribe(topic, 1, mc.handleTankMessage)
		if token.WaitTimeout(10*time.Second) && token.Error() == nil {
			log.Printf("Subscribed to %s on %s", topic, brokerURL)
		} else {
			log.Printf("ERROR: Failed to subscribe to %s on %s: %v", topic, brokerURL, token.Error())
		}
	}
}

// handleTankMessage parses azs/{external_number}/tank/{n} payloads and
// stores them.
func (mc *MQTTCollector) handleTankMessage(client mqtt.Client, msg mqtt.Message) {
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) != 4 || parts[0] != "azs" || parts[2] != "tank" {
		log.Printf("WARNING: Unexpected MQTT topic: %s", msg.Topic())
		return
	}

	externalNumber := parts[1]
	tankNumber, err := strconv.Atoi(parts[3])
	if err != nil {
		log.Printf("WARNING: Non-numeric tank number in topic %s", msg.Topic())
		return
	}

	mc.mu.RLock()
	tradingPointID, known := mc.pointNumbers[externalNumber]
	mc.mu.RUnlock()
	if !known {
		log.Printf("WARNING: Telemetry for unknown trading point %s, ignoring", externalNumber)
		return
	}

	var telemetry TankTelemetry
	if err := json.Unmarshal(msg.Payload(), &telemetry); err != nil {
		log.Printf("ERROR: Failed to parse tank telemetry on %s: %v", msg.Topic(), err)
		return
	}
	telemetry.LastUpdated = time.Now()

	readingTime := time.Now()
	if telemetry.Timestamp > 0 {
		readingTime = time.UnixMilli(telemetry.Timestamp)
	}

	_, err = mc.db.Exec(`
		INSERT INTO tank_readings
			(trading_point_id, tank_number, reading_time, level_mm, volume_l, temperature_c, water_level_mm, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'mqtt')`,
		tradingPointID, tankNumber, readingTime.Format("2006-01-02 15:04:05"),
		telemetry.LevelMm, telemetry.VolumeL, telemetry.TemperatureC, telemetry.WaterLevelMm)
	if err != nil {
		log.Printf("ERROR: Failed to store MQTT tank reading (point %d, tank %d): %v",
			tradingPointID, tankNumber, err)
		return
	}

	mc.mu.Lock()
	mc.lastReadings[fmt.Sprintf("%d/%d", tradingPointID, tankNumber)] = telemetry
	mc.mu.Unlock()
}

// GetConnectionStatus reports broker connectivity and last readings for
// the settings screen.
func (mc *MQTTCollector) GetConnectionStatus() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	brokers := make(map[string]bool)
	for brokerURL, client := range mc.clients {
		brokers[brokerURL] = client != nil && client.IsConnected()
	}

	readings := make(map[string]interface{})
	for key, telemetry := range mc.lastReadings {
		readings[key] = map[string]interface{}{
			"level_mm":      telemetry.LevelMm,
			"volume_l":      telemetry.VolumeL,
			"temperature_c": telemetry.TemperatureC,
			"last_updated":  telemetry.LastUpdated.Format("2006-01-02 15:04:05"),
		}
	}

	points := make(map[string]int)
	for number, id := range mc.pointNumbers {
		points[number] = id
	}

	return map[string]interface{}{
		"running":  mc.isRunning,
		"brokers":  brokers,
		"points":   points,
		"readings": readings,
	}
}
