package config

import (
	"os"
	"strings"
	"time"
)

// Config captures everything the server reads from the environment so main
// stays lean.
type Config struct {
	Addr               string
	DatabaseURL        string
	RedisURL           string
	KafkaBrokers       []string
	DeltakerTopic      string
	ProgresjonInterval time.Duration
	LogLevel           string
}

// FromEnv builds the configuration from environment variables with local
// development defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOrDefault("DELTAKELSE_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		DeltakerTopic:      envOrDefault("DELTAKER_TOPIC", "deltakelse.deltaker-hendelser"),
		ProgresjonInterval: time.Hour,
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if interval := os.Getenv("PROGRESJON_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.ProgresjonInterval = d
		}
	}
	return cfg
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
