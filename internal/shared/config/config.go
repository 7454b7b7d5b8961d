package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL           string
	WhatsAppStoreURL      string
	WhatsAppProvider      string
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppVerifyToken   string
	BusinessPhone         string
	StoreBaseURL          string
	Port                  string
	Env                   string
	CartReminderHours     int
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		WhatsAppStoreURL:      os.Getenv("WHATSAPP_STORE_URL"),
		WhatsAppProvider:      os.Getenv("WHATSAPP_PROVIDER"),
		WhatsAppAccessToken:   os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		WhatsAppPhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		WhatsAppVerifyToken:   os.Getenv("WHATSAPP_VERIFY_TOKEN"),
		BusinessPhone:         os.Getenv("BUSINESS_PHONE"),
		StoreBaseURL:          os.Getenv("STORE_BASE_URL"),
		Port:                  os.Getenv("PORT"),
		Env:                   os.Getenv("ENV"),
		CartReminderHours:     envInt("CART_REMINDER_HOURS", 24),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.WhatsAppProvider == "" {
		cfg.WhatsAppProvider = "cloudapi"
	}
	if cfg.WhatsAppStoreURL == "" {
		// Default to main database if not specified
		cfg.WhatsAppStoreURL = cfg.DatabaseURL
	}

	return cfg
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("⚠️ Invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return n
}
