package database

import (
	"database/sql"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS admin_users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			full_name TEXT,
			role_id INTEGER,
			is_active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (role_id) REFERENCES roles(id)
		)`,

		`CREATE TABLE IF NOT EXISTS roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			description TEXT,
			permissions TEXT NOT NULL DEFAULT '[]',
			is_system INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS networks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			external_id TEXT,
			notes TEXT,
			is_active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS trading_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			network_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			external_number TEXT,
			address TEXT,
			connection_type TEXT DEFAULT 'none',
			connection_config TEXT DEFAULT '{}',
			notes TEXT,
			is_active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (network_id) REFERENCES networks(id)
		)`,

		`CREATE TABLE IF NOT EXISTS coupons (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT UNIQUE NOT NULL,
			description TEXT,
			discount_type TEXT NOT NULL CHECK(discount_type IN ('percent', 'fixed', 'liters')),
			discount_value REAL NOT NULL CHECK(discount_value >= 0),
			fuel_code TEXT,
			valid_from DATE,
			valid_to DATE,
			usage_limit INTEGER DEFAULT 0,
			usage_count INTEGER DEFAULT 0,
			is_active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS price_lists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			network_id INTEGER,
			trading_point_id INTEGER,
			effective_from DATE,
			status TEXT DEFAULT 'draft' CHECK(status IN ('draft', 'active', 'archived')),
			author TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (network_id) REFERENCES networks(id),
			FOREIGN KEY (trading_point_id) REFERENCES trading_points(id)
		)`,

		`CREATE TABLE IF NOT EXISTS price_list_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			price_list_id INTEGER NOT NULL,
			fuel_code TEXT NOT NULL,
			fuel_name TEXT,
			price REAL NOT NULL CHECK(price >= 0),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (price_list_id) REFERENCES price_lists(id) ON DELETE CASCADE,
			UNIQUE(price_list_id, fuel_code)
		)`,

		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS sts_transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id TEXT NOT NULL,
			network_id INTEGER,
			trading_point_id INTEGER,
			transaction_date DATETIME,
			pump_name TEXT,
			fuel_type TEXT,
			volume REAL DEFAULT 0,
			price REAL DEFAULT 0,
			total REAL DEFAULT 0,
			status TEXT,
			operation_type TEXT,
			payment_method TEXT,
			raw_data TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(transaction_id, network_id, trading_point_id)
		)`,

		`CREATE TABLE IF NOT EXISTS tank_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trading_point_id INTEGER NOT NULL,
			tank_number INTEGER NOT NULL,
			reading_time DATETIME NOT NULL,
			level_mm REAL DEFAULT 0,
			volume_l REAL DEFAULT 0,
			temperature_c REAL DEFAULT 0,
			water_level_mm REAL DEFAULT 0,
			source TEXT DEFAULT 'mqtt',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (trading_point_id) REFERENCES trading_points(id)
		)`,

		`CREATE TABLE IF NOT EXISTS activity_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			details TEXT,
			user_id INTEGER,
			ip_address TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for performance
		`CREATE INDEX IF NOT EXISTS idx_trading_points_network ON trading_points(network_id)`,
		`CREATE INDEX IF NOT EXISTS idx_coupons_code ON coupons(code)`,
		`CREATE INDEX IF NOT EXISTS idx_coupons_active ON coupons(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_price_list_items_list ON price_list_items(price_list_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sts_transactions_date ON sts_transactions(transaction_date)`,
		`CREATE INDEX IF NOT EXISTS idx_sts_transactions_point ON sts_transactions(trading_point_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tank_readings_time ON tank_readings(reading_time)`,
		`CREATE INDEX IF NOT EXISTS idx_tank_readings_point ON tank_readings(trading_point_id, tank_number)`,
	}

	// Execute all migrations
	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			// Log but don't fail on already-exists errors
			if !contains(err.Error(), "already exists") && !contains(err.Error(), "duplicate") {
				log.Printf("Migration %d warning: %v", i+1, err)
			}
		}
	}

	log.Println("✅ Base tables and indexes created/verified")

	// Run additional migrations for new columns
	if err := addOperatorColumn(db); err != nil {
		log.Printf("⚠️  Operator column migration: %v", err)
	}

	// Create triggers
	if err := createTriggers(db); err != nil {
		log.Printf("Note: Triggers creation: %v", err)
	}

	// Seed built-in roles before the default admin references one
	if err := seedDefaultRoles(db); err != nil {
		return fmt.Errorf("failed to seed roles: %v", err)
	}

	// Create default admin
	if err := createDefaultAdmin(db); err != nil {
		return fmt.Errorf("failed to create default admin: %v", err)
	}

	log.Println("✅ All migrations completed successfully")
	return nil
}

// addOperatorColumn adds the operator name column to cached transactions
func addOperatorColumn(db *sql.DB) error {
	var tableSql string
	err := db.QueryRow(`
		SELECT sql FROM sqlite_master
		WHERE type='table' AND name='sts_transactions'
	`).Scan(&tableSql)

	if err != nil {
		return err
	}

	if !contains(tableSql, "operator_name") {
		log.Println("Adding operator_name column to sts_transactions table...")
		_, err := db.Exec(`ALTER TABLE sts_transactions ADD COLUMN operator_name TEXT`)
		if err != nil {
			if contains(err.Error(), "duplicate column") {
				log.Println("✅ operator_name column already exists")
				return nil
			}
			return fmt.Errorf("failed to add operator_name column: %v", err)
		}
		log.Println("✅ operator_name column added successfully")
	} else {
		log.Println("✅ operator_name column already exists")
	}

	return nil
}

func createTriggers(db *sql.DB) error {
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS update_coupons_timestamp
		AFTER UPDATE ON coupons
		FOR EACH ROW
		BEGIN
			UPDATE coupons
			SET updated_at = CURRENT_TIMESTAMP
			WHERE id = NEW.id;
		END`,

		`CREATE TRIGGER IF NOT EXISTS update_price_lists_timestamp
		AFTER UPDATE ON price_lists
		FOR EACH ROW
		BEGIN
			UPDATE price_lists
			SET updated_at = CURRENT_TIMESTAMP
			WHERE id = NEW.id;
		END`,

		`CREATE TRIGGER IF NOT EXISTS update_app_settings_timestamp
		AFTER UPDATE ON app_settings
		FOR EACH ROW
		BEGIN
			UPDATE app_settings
			SET updated_at = CURRENT_TIMESTAMP
			WHERE key = NEW.key;
		END`,
	}

	for _, trigger := range triggers {
		if _, err := db.Exec(trigger); err != nil {
			return err
		}
	}

	return nil
}

func seedDefaultRoles(db *sql.DB) error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM roles").Scan(&count)
	if err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	roles := []struct {
		name        string
		description string
		permissions string
	}{
		{"administrator", "Full access to all sections", `["*"]`},
		{"manager", "Coupons, price lists and dashboards", `["coupons", "price_lists", "dashboard", "sts_data"]`},
		{"operator", "Read-only dashboards", `["dashboard", "sts_data"]`},
	}

	for _, r := range roles {
		_, err := db.Exec(`
			INSERT INTO roles (name, description, permissions, is_system)
			VALUES (?, ?, ?, 1)
		`, r.name, r.description, r.permissions)
		if err != nil {
			return err
		}
	}

	log.Println("✅ Built-in roles created")
	return nil
}

func createDefaultAdmin(db *sql.DB) error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM admin_users").Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		var roleID int
		if err := db.QueryRow("SELECT id FROM roles WHERE name = 'administrator'").Scan(&roleID); err != nil {
			roleID = 1
		}

		_, err = db.Exec(`
			INSERT INTO admin_users (username, password_hash, full_name, role_id)
			VALUES (?, ?, ?, ?)
		`, "admin", string(hashedPassword), "Administrator", roleID)

		if err != nil {
			return err
		}

		log.Println("✅ Default admin user created")
		log.Println("   Username: admin")
		log.Println("   Password: admin123")
		log.Println("   ⚠️  IMPORTANT: Change the default password immediately!")
	}

	return nil
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && containsHelper(s, substr)
}

func containsHelper(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
