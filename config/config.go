package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries everything the process reads from the environment.
// Built once in main and handed to the packages that need it; nothing
// below the route layer reads os.Getenv directly.
type Config struct {
	Port      string
	MongoURI  string
	MongoDB   string
	RedisAddr string
	JWTSecret string
	// ReceiptSecret signs the QR payload embedded in order receipts.
	ReceiptSecret string
	// NotifyChannel is the Redis pub/sub channel notification events go to.
	NotifyChannel string
	// RateLimitRPS caps per-IP requests per second on write routes.
	RateLimitRPS int
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	cfg := Config{
		Port:          getenv("PORT", "8080"),
		MongoURI:      getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:       getenv("MONGODB_DB", "mandidb"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:     getenv("JWT_SECRET", "dev-only-secret"),
		ReceiptSecret: getenv("RECEIPT_SECRET", "dev-only-receipt-secret"),
		NotifyChannel: getenv("NOTIFY_CHANNEL", "notification-events"),
		RateLimitRPS:  5,
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitRPS = n
		}
	}
	if cfg.Port[0] != ':' {
		cfg.Port = ":" + cfg.Port
	}
	return cfg
}

func (c Config) Addr() string {
	return fmt.Sprintf("http://localhost%s", c.Port)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
