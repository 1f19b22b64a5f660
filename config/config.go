package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string

	DefaultPIN       string
	LockoutThreshold int
	LockoutWindow    time.Duration
	OTPTTL           time.Duration
	OTPDigits        int

	IdentityProviderURL   string
	IdentityServiceSecret string
	IdentityIssuer        string

	ResendAPIKey string
	NotifyFrom   string
}

// Load reads configuration from the environment, with a .env file as a
// development convenience.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %s", err)
	}

	cfg := &Config{
		HTTPAddr:              envOr("HTTP_ADDR", ":8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		DefaultPIN:            os.Getenv("DEFAULT_PIN"),
		LockoutThreshold:      envIntOr("LOCKOUT_THRESHOLD", 5),
		LockoutWindow:         envDurationOr("LOCKOUT_WINDOW", 15*time.Minute),
		OTPTTL:                envDurationOr("OTP_TTL", 10*time.Minute),
		OTPDigits:             envIntOr("OTP_DIGITS", 6),
		IdentityProviderURL:   os.Getenv("IDENTITY_PROVIDER_URL"),
		IdentityServiceSecret: os.Getenv("IDENTITY_SERVICE_SECRET"),
		IdentityIssuer:        envOr("IDENTITY_ISSUER", "badgeauth"),
		ResendAPIKey:          os.Getenv("RESEND_API_KEY"),
		NotifyFrom:            os.Getenv("NOTIFY_FROM"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DefaultPIN == "" {
		return nil, fmt.Errorf("DEFAULT_PIN is required")
	}
	if cfg.IdentityProviderURL == "" {
		return nil, fmt.Errorf("IDENTITY_PROVIDER_URL is required")
	}
	if cfg.IdentityServiceSecret == "" {
		return nil, fmt.Errorf("IDENTITY_SERVICE_SECRET is required")
	}
	return cfg, nil
}

func envOr(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return parsed
}
