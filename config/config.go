package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"drocsid/core/log"
)

type CredentialsConfig struct {
	Email    string
	Password string
}

// IsConfigured returns true if a login can be attempted without a stored session
func (c CredentialsConfig) IsConfigured() bool {
	return c.Email != "" && c.Password != ""
}

type SyncConfig struct {
	CacheCapacity        int
	TypingTimeout        time.Duration
	AckDebounce          time.Duration
	DetectZombieSessions bool
}

type StatusConfig struct {
	ListenAddr         string
	CORSAllowedOrigins string
}

// IsConfigured returns true if the local status endpoint should be served
func (c StatusConfig) IsConfigured() bool {
	return c.ListenAddr != ""
}

type AlertsConfig struct {
	ErrorWebhookURL  string
	NotifyWebhookURL string
}

type AppConfig struct {
	APIURL      string
	GatewayURL  string
	DataDir     string
	Environment string

	Credentials CredentialsConfig
	Sync        SyncConfig
	Status      StatusConfig
	Alerts      AlertsConfig
}

// LoadConfig reads configuration from envFile (if present) and the environment.
// An empty envFile means ".env" in the working directory.
func LoadConfig(envFile string) (*AppConfig, error) {
	files := []string{}
	if envFile != "" {
		files = append(files, envFile)
	}
	if err := godotenv.Load(files...); err != nil {
		log.Warn("⚠️ Could not load .env file, continuing with system env vars")
	}

	dataDir, err := defaultDataDir()
	if err != nil {
		return nil, err
	}

	cacheCapacity, err := getEnvInt("DROCSID_CACHE_CAPACITY", 5)
	if err != nil {
		return nil, err
	}
	if cacheCapacity < 1 {
		return nil, fmt.Errorf("DROCSID_CACHE_CAPACITY must be at least 1, got %d", cacheCapacity)
	}

	typingTimeoutMs, err := getEnvInt("DROCSID_TYPING_TIMEOUT_MS", 8000)
	if err != nil {
		return nil, err
	}

	ackDebounceMs, err := getEnvInt("DROCSID_ACK_DEBOUNCE_MS", 500)
	if err != nil {
		return nil, err
	}

	config := &AppConfig{
		APIURL:      getEnvWithDefault("DROCSID_API_URL", "http://localhost:8080/api/v1"),
		GatewayURL:  getEnvWithDefault("DROCSID_GATEWAY_URL", "ws://localhost:8080/gateway"),
		DataDir:     getEnvWithDefault("DROCSID_DATA_DIR", dataDir),
		Environment: getEnvWithDefault("DROCSID_ENVIRONMENT", "dev"),

		Credentials: CredentialsConfig{
			Email:    os.Getenv("DROCSID_EMAIL"),
			Password: os.Getenv("DROCSID_PASSWORD"),
		},

		Sync: SyncConfig{
			CacheCapacity:        cacheCapacity,
			TypingTimeout:        time.Duration(typingTimeoutMs) * time.Millisecond,
			AckDebounce:          time.Duration(ackDebounceMs) * time.Millisecond,
			DetectZombieSessions: getEnvWithDefault("DROCSID_DETECT_ZOMBIE", "true") == "true",
		},

		Status: StatusConfig{
			ListenAddr:         os.Getenv("DROCSID_STATUS_ADDR"),
			CORSAllowedOrigins: getEnvWithDefault("DROCSID_CORS_ALLOWED_ORIGINS", "*"),
		},

		Alerts: AlertsConfig{
			ErrorWebhookURL:  os.Getenv("DROCSID_ALERT_WEBHOOK_URL"),
			NotifyWebhookURL: os.Getenv("DROCSID_NOTIFY_WEBHOOK_URL"),
		},
	}

	if config.Credentials.IsConfigured() {
		log.Info("✅ Login credentials configured")
	} else {
		log.Info("⚠️ Login credentials not configured - a stored session is required")
	}

	if config.Status.IsConfigured() {
		log.Info("✅ Status endpoint configured", "addr", config.Status.ListenAddr)
	}

	if config.Alerts.ErrorWebhookURL == "" {
		log.Info("⚠️ Error alert webhook not configured - alerts will only be logged")
	}

	return config, nil
}

func defaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}
	return filepath.Join(base, "drocsid"), nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}
