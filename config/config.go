package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all process-wide settings. It is built once at startup and
// passed by reference into both listeners; it is never mutated afterwards.
type Config struct {
	// Core settings
	RedirectURL    string `yaml:"redirect_url"`
	RedirectStatus int    `yaml:"redirect_status"`
	RedirectPort   int    `yaml:"redirect_port"`
	DashboardPort  int    `yaml:"dashboard_port"`
	Host           string `yaml:"host"`

	// Campaign settings
	Campaign string `yaml:"campaign"`

	// Dashboard settings
	DashboardAuth string `yaml:"dashboard_auth"` // "user:password", empty disables auth

	// Storage settings
	DBDriver     string `yaml:"db_driver"` // "sqlite" (default) or "postgres"
	DatabasePath string `yaml:"database_path"`

	// Capture settings
	StoreBody        bool     `yaml:"store_body"`
	MaxBodySize      int      `yaml:"max_body_size"`
	TrustProxyHeader bool     `yaml:"trust_proxy_header"`
	RedactHeaders    []string `yaml:"redact_headers"` // extra denylist on top of the built-in set

	// Query settings
	DefaultPerPage int `yaml:"default_per_page"`
	MaxPerPage     int `yaml:"max_per_page"`
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variable overrides, in that order. An empty path skips the
// file stage.
func Load(path string) (*Config, error) {
	// .env is optional, same as the rest of the env overrides.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Campaign == "" {
		cfg.Campaign = GenerateCampaignName()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the baseline configuration before file and env overrides.
func Default() *Config {
	return &Config{
		RedirectURL:    "https://example.com",
		RedirectStatus: 302,
		RedirectPort:   8080,
		DashboardPort:  3000,
		Host:           "0.0.0.0",
		DBDriver:       "sqlite",
		DatabasePath:   "logs.db",
		MaxBodySize:    10 * 1024 * 1024, // 10MB
		DefaultPerPage: 50,
		MaxPerPage:     200,
	}
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.RedirectURL, "REDIRECT_URL")
	setInt(&cfg.RedirectStatus, "REDIRECT_STATUS")
	setInt(&cfg.RedirectPort, "REDIRECT_PORT")
	setInt(&cfg.DashboardPort, "DASHBOARD_PORT")
	setString(&cfg.Host, "APP_HOST")
	setString(&cfg.Campaign, "CAMPAIGN")
	setString(&cfg.DashboardAuth, "DASHBOARD_AUTH")
	setString(&cfg.DBDriver, "DB_DRIVER")
	setString(&cfg.DatabasePath, "DATABASE_PATH")
	setBool(&cfg.StoreBody, "STORE_BODY")
	setInt(&cfg.MaxBodySize, "MAX_BODY_SIZE")
	setBool(&cfg.TrustProxyHeader, "TRUST_PROXY_HEADER")
	setInt(&cfg.DefaultPerPage, "DEFAULT_PER_PAGE")
	setInt(&cfg.MaxPerPage, "MAX_PER_PAGE")

	if v := os.Getenv("REDACT_HEADERS"); v != "" {
		var names []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		cfg.RedactHeaders = names
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate checks the configuration and returns a descriptive error on the
// first violation. A failed validation is fatal at startup.
func (c *Config) Validate() error {
	if c.RedirectURL == "" {
		return fmt.Errorf("redirect_url is required")
	}
	if c.RedirectStatus < 300 || c.RedirectStatus > 399 {
		return fmt.Errorf("redirect_status must be a 3xx status code, got %d", c.RedirectStatus)
	}
	if c.RedirectPort < 1 || c.RedirectPort > 65535 {
		return fmt.Errorf("redirect_port must be between 1 and 65535")
	}
	if c.DashboardPort < 1 || c.DashboardPort > 65535 {
		return fmt.Errorf("dashboard_port must be between 1 and 65535")
	}
	if c.RedirectPort == c.DashboardPort {
		return fmt.Errorf("redirect_port and dashboard_port must be different")
	}
	if c.DashboardAuth != "" && !strings.Contains(c.DashboardAuth, ":") {
		return fmt.Errorf("dashboard_auth must be in format 'user:password'")
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("db_driver must be 'sqlite' or 'postgres', got %q", c.DBDriver)
	}
	if c.DBDriver == "sqlite" && c.DatabasePath == "" {
		return fmt.Errorf("database_path is required for the sqlite driver")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max_body_size must not be negative")
	}
	if c.DefaultPerPage < 1 {
		return fmt.Errorf("default_per_page must be at least 1")
	}
	if c.MaxPerPage < c.DefaultPerPage {
		return fmt.Errorf("max_per_page must not be smaller than default_per_page")
	}
	if c.Campaign == "" {
		return fmt.Errorf("campaign must not be empty")
	}
	return nil
}

// AuthEnabled reports whether dashboard basic auth is configured.
func (c *Config) AuthEnabled() bool {
	return c.DashboardAuth != ""
}

// AuthUser returns the username part of dashboard_auth.
func (c *Config) AuthUser() string {
	user, _, _ := strings.Cut(c.DashboardAuth, ":")
	return user
}

// AuthPassword returns the password part of dashboard_auth.
func (c *Config) AuthPassword() string {
	_, pass, _ := strings.Cut(c.DashboardAuth, ":")
	return pass
}

// GenerateCampaignName builds a timestamped default campaign label. The uuid
// suffix keeps two processes started in the same minute apart.
func GenerateCampaignName() string {
	return fmt.Sprintf("campaign-%s-%s",
		time.Now().Format("20060102-1504"),
		uuid.NewString()[:8])
}
