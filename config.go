package main

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config carries environment defaults for values not given as flags.
// Loaded from a .env file when present, otherwise from the process
// environment.
type Config struct {
	Server   string
	User     string
	Password string
	LogFile  string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug(".env file not found, using environment variables only")
	}

	return &Config{
		Server:   getEnv("FTPMIRROR_SERVER", ""),
		User:     getEnv("FTPMIRROR_USER", ""),
		Password: getEnv("FTPMIRROR_PASSWORD", ""),
		LogFile:  getEnv("FTPMIRROR_LOG_FILE", "ftpmirror.log"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
