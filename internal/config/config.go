package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
)

const defaultFirebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// Config holds everything main needs to wire the server.
type Config struct {
	Port              string
	MongoURI          string
	DatabaseName      string
	MongoTransactions bool

	PaymentAPIKey   string
	PaymentCurrency string
	SiteDomain      string

	FirebaseProjectID string
	FirebaseCertsURL  string

	CORSOrigins []string
	LogLevel    string
	LogFile     string

	TrackingQueueSize   int
	TrackingMaxAttempts int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		logger.Warning("no .env loaded, using process environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		MongoURI:          os.Getenv("MONGOURI"),
		DatabaseName:      getEnv("MONGO_DATABASE", "zapshiftdb"),
		MongoTransactions: getBool("MONGO_TRANSACTIONS", false),

		PaymentAPIKey:   os.Getenv("PAYMENT_GATEWAY_API_KEY"),
		PaymentCurrency: strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
		SiteDomain:      strings.TrimRight(os.Getenv("SITE_DOMAIN"), "/"),

		FirebaseProjectID: os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCertsURL:  getEnv("FIREBASE_CERTS_URL", defaultFirebaseCertsURL),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),

		TrackingQueueSize:   getInt("TRACKING_QUEUE_SIZE", 100),
		TrackingMaxAttempts: getInt("TRACKING_MAX_ATTEMPTS", 3),

		ReadTimeout:     getDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	var missing []error
	for name, value := range map[string]string{
		"MONGOURI":                cfg.MongoURI,
		"PAYMENT_GATEWAY_API_KEY": cfg.PaymentAPIKey,
		"SITE_DOMAIN":             cfg.SiteDomain,
		"FIREBASE_PROJECT_ID":     cfg.FirebaseProjectID,
	} {
		if value == "" {
			missing = append(missing, errors.New(name+" environment variable not set"))
		}
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
