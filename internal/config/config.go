package config

import (
	"os"
	"strings"
)

// Config holds every runtime setting the API reads from the environment.
type Config struct {
	Env          string
	HTTPAddr     string
	DBDSN        string
	JWTSecret    string
	RedisAddr    string
	KafkaBrokers []string
	CORSOrigin   string

	PaystackSecretKey string
	MTNAPIURL         string
	MTNConsumerKey    string
	MTNConsumerSecret string

	GeminiAPIKey string
}

func Load() Config {
	return Config{
		Env:          getenv("APP_ENV", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		DBDSN:        getenv("DB_DSN", "root:secret@tcp(127.0.0.1:3306)/breakfast_factory?parseTime=true"),
		JWTSecret:    getenv("JWT_SECRET", ""),
		RedisAddr:    getenv("REDIS_ADDR", "127.0.0.1:6379"),
		KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "127.0.0.1:9092")),
		CORSOrigin:   getenv("CORS_ORIGIN", "http://localhost:5173"),

		PaystackSecretKey: getenv("PAYSTACK_SECRET_KEY", ""),
		MTNAPIURL:         getenv("MTN_API_URL", ""),
		MTNConsumerKey:    getenv("MTN_CONSUMER_KEY", ""),
		MTNConsumerSecret: getenv("MTN_CONSUMER_SECRET", ""),

		GeminiAPIKey: getenv("GEMINI_API_KEY", ""),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
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
