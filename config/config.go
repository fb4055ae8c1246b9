package config

import (
	"os"
)

type Config struct {
	DatabasePath  string
	ServerAddress string
	JWTSecret     string
}

func Load() *Config {
	return &Config{
		DatabasePath:  getEnv("DATABASE_PATH", "./azs-backoffice.db"),
		ServerAddress: getEnv("SERVER_ADDRESS", ":8082"),
		JWTSecret:     getEnv("JWT_SECRET", "azs-backoffice-secret-change-in-production"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
