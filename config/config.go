package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	MongoURI string
	MongoDB  string

	PayHereMerchantID     string
	PayHereMerchantSecret string
	PayHereReturnURL      string
	PayHereCancelURL      string
	PayHereNotifyURL      string

	GeocodingAPIKey  string
	GeocodingBaseURL string

	OrderServiceURL string
	JWTSecret       string
}

// LoadConfig reads configuration from the environment (and a local .env file
// if present) and validates the values the service cannot run without.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8087"),
		Env:      getEnv("NODE_ENV", "development"),
		MongoURI: os.Getenv("MONGODB_URI"),
		MongoDB:  getEnv("MONGODB_DB", "payment-service"),

		PayHereMerchantID:     os.Getenv("PAYHERE_MERCHANT_ID"),
		PayHereMerchantSecret: os.Getenv("PAYHERE_MERCHANT_SECRET"),
		PayHereReturnURL:      os.Getenv("PAYHERE_RETURN_URL"),
		PayHereCancelURL:      os.Getenv("PAYHERE_CANCEL_URL"),
		PayHereNotifyURL:      os.Getenv("PAYHERE_NOTIFY_URL"),

		GeocodingAPIKey:  os.Getenv("GEOCODING_API_KEY"),
		GeocodingBaseURL: getEnv("GEOCODING_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),

		OrderServiceURL: getEnv("ORDER_SERVICE_URL", "http://order-service:8084"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.PayHereMerchantID == "" || cfg.PayHereMerchantSecret == "" {
		return nil, fmt.Errorf("PayHere merchant credentials incomplete")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
