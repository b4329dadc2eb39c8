package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	ServiceName string

	// StoreDriver is "postgres" (default) or "memory" for local runs
	// without a database.
	StoreDriver string
	DatabaseURL string
	DBTimeZone  string

	JWTSecret   string
	JWTTTL      time.Duration
	SessionIdle time.Duration

	RedisAddr       string
	KafkaBrokers    []string
	KafkaOrderTopic string

	SeedAdminEmail    string
	SeedAdminPassword string
}

// Load reads .env when present, then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return Config{
		Port:              getenv("PORT", "8080"),
		ServiceName:       getenv("SERVICE_NAME", "go-fulfillment-ws"),
		StoreDriver:       getenv("STORE_DRIVER", "postgres"),
		DatabaseURL:       databaseURL(),
		DBTimeZone:        getenv("DB_TIMEZONE", "UTC"),
		JWTSecret:         getenv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		JWTTTL:            time.Duration(getint("JWT_TTL_HOURS", 24)) * time.Hour,
		SessionIdle:       time.Duration(getint("SESSION_IDLE_MINUTES", 5)) * time.Minute,
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		KafkaBrokers:      splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic:   getenv("KAFKA_ORDER_TOPIC", "fulfillment.order.events"),
		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
	}
}

// databaseURL prefers DATABASE_URL and falls back to the DB_* parts.
func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		getenv("DB_HOST", "localhost"),
		getenv("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		getenv("DB_NAME", "fulfillment"),
		getenv("DB_PORT", "5432"),
		getenv("DB_TIMEZONE", "UTC"),
	)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("config: ignoring invalid %s=%q, using %d", k, v, def)
		return def
	}
	return n
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
