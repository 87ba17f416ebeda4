// Package config loads the console configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all console configuration
type Config struct {
	API      APIConfig
	Geo      GeoConfig
	Firebase FirebaseConfig
	MQTT     MQTTConfig
	Map      MapConfig
	Report   ReportConfig
	Logging  LoggingConfig
}

type APIConfig struct {
	BaseURL       string
	Timeout       time.Duration
	SessionCookie string
	RedirectDelay time.Duration
	SessionFile   string
}

type GeoConfig struct {
	ORSAPIKey   string
	ORSBaseURL  string
	OSRMBaseURL string
	Provider    string
	Concurrency int
}

type FirebaseConfig struct {
	ProjectID       string
	Bucket          string
	CredentialsPath string
	UploadPrefix    string
}

// Enabled reports whether photo uploads can go to Firebase Storage.
func (c FirebaseConfig) Enabled() bool {
	return c.Bucket != ""
}

type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
}

// Enabled reports whether notifications are mirrored to MQTT.
func (c MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

type MapConfig struct {
	Addr              string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type ReportConfig struct {
	Company string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Directions providers.
const (
	ProviderORS  = "ors"
	ProviderOSRM = "osrm"
)

// LoadDotEnv loads variables from the given .env files, or ./.env when none
// are given. Variables already set in the environment win. A missing file is
// not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
		log.WithField("file", f).Debug("Loaded environment file")
	}
	return nil
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:       getEnv("CONSOLE_API_URL", "http://localhost:5000/api"),
			Timeout:       parseDuration(getEnv("CONSOLE_API_TIMEOUT", "15s"), 15*time.Second),
			SessionCookie: getEnv("CONSOLE_SESSION_COOKIE", "token"),
			RedirectDelay: parseDuration(getEnv("CONSOLE_REDIRECT_DELAY", "2s"), 2*time.Second),
			SessionFile:   getEnv("CONSOLE_SESSION_FILE", defaultSessionFile()),
		},
		Geo: GeoConfig{
			ORSAPIKey:   getEnv("ORS_API_KEY", ""),
			ORSBaseURL:  getEnv("ORS_BASE_URL", "https://api.openrouteservice.org"),
			OSRMBaseURL: getEnv("OSRM_BASE_URL", "https://router.project-osrm.org"),
			Provider:    getEnv("DIRECTIONS_PROVIDER", ProviderORS),
			Concurrency: parseInt(getEnv("DIRECTIONS_CONCURRENCY", "4"), 4),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			Bucket:          getEnv("FIREBASE_STORAGE_BUCKET", ""),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			UploadPrefix:    getEnv("UPLOAD_PREFIX", "item_images"),
		},
		MQTT: MQTTConfig{
			Broker:   getEnv("MQTT_BROKER", ""),
			ClientID: getEnv("MQTT_CLIENT_ID", "fleet-console"),
			Topic:    getEnv("MQTT_TOPIC", "fleet/console/notifications"),
		},
		Map: MapConfig{
			Addr:              getEnv("MAP_ADDR", ":8090"),
			RateLimitRequests: parseInt(getEnv("MAP_RATE_LIMIT_REQUESTS", "30"), 30),
			RateLimitWindow:   parseDuration(getEnv("MAP_RATE_LIMIT_WINDOW", "60s"), 60*time.Second),
		},
		Report: ReportConfig{
			Company: getEnv("REPORT_COMPANY", "Fish Delivery System"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fleet-console-session.json"
	}
	return filepath.Join(home, ".fleet-console", "session.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	// a bare number is seconds
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CONSOLE_API_URL must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("CONSOLE_API_TIMEOUT must be positive")
	}
	switch c.Geo.Provider {
	case ProviderORS, ProviderOSRM:
	default:
		return fmt.Errorf("DIRECTIONS_PROVIDER must be %q or %q, got %q", ProviderORS, ProviderOSRM, c.Geo.Provider)
	}
	if c.Geo.Concurrency <= 0 {
		return errors.New("DIRECTIONS_CONCURRENCY must be positive")
	}
	if c.Map.RateLimitRequests <= 0 || c.Map.RateLimitWindow <= 0 {
		return errors.New("MAP_RATE_LIMIT_REQUESTS and MAP_RATE_LIMIT_WINDOW must be positive")
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if c.Firebase.Enabled() && c.Firebase.CredentialsPath != "" {
		if _, err := os.Stat(c.Firebase.CredentialsPath); err != nil {
			return fmt.Errorf("firebase credentials file not found: %s", c.Firebase.CredentialsPath)
		}
	}
	return nil
}

// RequireGeocoding reports an error when the OpenRouteService key is missing.
func (c *Config) RequireGeocoding() error {
	if c.Geo.ORSAPIKey == "" {
		return errors.New("ORS_API_KEY must be set")
	}
	return nil
}

// ConfigureLogging applies the level and format to the standard logger.
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.Logging.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
