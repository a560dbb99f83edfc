package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the profile service
type Config struct {
	// Instagram session and request identity
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Scrape behaviour tuning knobs
	Scraper ScraperConfig `yaml:"scraper" json:"scraper"`

	// SOCKS5 proxy pool settings
	Proxy ProxyConfig `yaml:"proxy" json:"proxy"`

	// HTTP serving settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Snapshot persistence settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds session cookies and the web application ID
type InstagramConfig struct {
	SessionID  string `yaml:"session_id" json:"session_id"`
	CSRFToken  string `yaml:"csrf_token" json:"csrf_token"`
	DSUserID   string `yaml:"ds_user_id" json:"ds_user_id"`
	AppID      string `yaml:"app_id" json:"app_id"`
	Username   string `yaml:"username" json:"username"`
	Password   string `yaml:"password" json:"password"`
	CookieFile string `yaml:"cookie_file" json:"cookie_file"`
}

// ScraperConfig holds retrieval tuning knobs
type ScraperConfig struct {
	MinDelay       time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay       time.Duration `yaml:"max_delay" json:"max_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	Retries        int           `yaml:"retries" json:"retries"`
}

// ProxyConfig holds the SOCKS5 pool settings. Username/Password/Port are
// the static credentials applied to every endpoint in the ring.
type ProxyConfig struct {
	Username   string        `yaml:"username" json:"username"`
	Password   string        `yaml:"password" json:"password"`
	Port       int           `yaml:"port" json:"port"`
	Pool       []string      `yaml:"pool" json:"pool"`
	RetryLimit int           `yaml:"retry_limit" json:"retry_limit"`
	Cooldown   time.Duration `yaml:"cooldown" json:"cooldown"`
	Backoff    time.Duration `yaml:"backoff" json:"backoff"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr       string `yaml:"addr" json:"addr"`
	AuthHeader string `yaml:"auth_header" json:"auth_header"`
	AuthKey    string `yaml:"auth_key" json:"auth_key"`
	Workers    int    `yaml:"workers" json:"workers"`
}

// StorageConfig holds snapshot persistence paths
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" json:"database_path"`
	ImagesDir    string `yaml:"images_dir" json:"images_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			AppID:      "936619743392459",
			CookieFile: "data/instagram_cookies.json",
		},
		Scraper: ScraperConfig{
			MinDelay:       2500 * time.Millisecond,
			MaxDelay:       6500 * time.Millisecond,
			RequestTimeout: 20 * time.Second,
			Retries:        3,
		},
		Proxy: ProxyConfig{
			Port:       1080,
			RetryLimit: 5,
			Cooldown:   10 * time.Minute,
			Backoff:    2 * time.Second,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			AuthHeader: "X-API-Key",
			Workers:    4,
		},
		Storage: StorageConfig{
			DatabasePath: "data/scrapes.db",
			ImagesDir:    "data/images",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SOCKS5URL builds the proxy connection URL for an endpoint hostname.
// Returns an empty string when credentials or port are missing.
func (c *ProxyConfig) SOCKS5URL(host string) string {
	if host == "" || c.Port == 0 || c.Username == "" || c.Password == "" {
		return ""
	}
	return fmt.Sprintf("socks5://%s:%s@%s:%d", c.Username, c.Password, host, c.Port)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("IGPROFILE_SESSION_ID"); v != "" {
		c.Instagram.SessionID = v
	}
	if v := os.Getenv("IGPROFILE_CSRF_TOKEN"); v != "" {
		c.Instagram.CSRFToken = v
	}
	if v := os.Getenv("IGPROFILE_DS_USER_ID"); v != "" {
		c.Instagram.DSUserID = v
	}
	if v := os.Getenv("IGPROFILE_APP_ID"); v != "" {
		c.Instagram.AppID = v
	}
	if v := os.Getenv("IGPROFILE_IG_USERNAME"); v != "" {
		c.Instagram.Username = v
	}
	if v := os.Getenv("IGPROFILE_IG_PASSWORD"); v != "" {
		c.Instagram.Password = v
	}
	if v := os.Getenv("IGPROFILE_COOKIE_FILE"); v != "" {
		c.Instagram.CookieFile = v
	}

	if v := os.Getenv("IGPROFILE_MIN_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Scraper.MinDelay = d
		}
	}
	if v := os.Getenv("IGPROFILE_MAX_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Scraper.MaxDelay = d
		}
	}
	if v := os.Getenv("IGPROFILE_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Scraper.RequestTimeout = d
		}
	}
	if v := os.Getenv("IGPROFILE_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Scraper.Retries = n
		}
	}

	if v := os.Getenv("IGPROFILE_PROXY_USERNAME"); v != "" {
		c.Proxy.Username = v
	}
	if v := os.Getenv("IGPROFILE_PROXY_PASSWORD"); v != "" {
		c.Proxy.Password = v
	}
	if v := os.Getenv("IGPROFILE_PROXY_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Proxy.Port = n
		}
	}
	if v := os.Getenv("IGPROFILE_PROXY_POOL"); v != "" {
		c.Proxy.Pool = splitCSV(v)
	}
	if v := os.Getenv("IGPROFILE_PROXY_RETRY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Proxy.RetryLimit = n
		}
	}
	if v := os.Getenv("IGPROFILE_PROXY_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Proxy.Cooldown = d
		}
	}
	if v := os.Getenv("IGPROFILE_PROXY_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Proxy.Backoff = d
		}
	}

	if v := os.Getenv("IGPROFILE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("IGPROFILE_AUTH_HEADER"); v != "" {
		c.Server.AuthHeader = v
	}
	if v := os.Getenv("IGPROFILE_AUTH_KEY"); v != "" {
		c.Server.AuthKey = v
	}
	if v := os.Getenv("IGPROFILE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.Workers = n
		}
	}

	if v := os.Getenv("IGPROFILE_DATABASE_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("IGPROFILE_IMAGES_DIR"); v != "" {
		c.Storage.ImagesDir = v
	}

	if v := os.Getenv("IGPROFILE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igprofile.yaml",
		".igprofile.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igprofile", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igprofile", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Scraper.MinDelay < 0 || c.Scraper.MaxDelay < 0 {
		errs = append(errs, errors.New("request delays cannot be negative"))
	}
	if c.Scraper.MaxDelay < c.Scraper.MinDelay {
		errs = append(errs, errors.New("max delay must not be below min delay"))
	}
	if c.Scraper.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Scraper.Retries < 0 {
		errs = append(errs, errors.New("retries cannot be negative"))
	}

	if c.Proxy.RetryLimit < 0 {
		errs = append(errs, errors.New("proxy retry limit cannot be negative"))
	}
	if c.Proxy.Cooldown < 0 {
		errs = append(errs, errors.New("proxy cooldown cannot be negative"))
	}
	if c.Proxy.Port < 0 || c.Proxy.Port > 65535 {
		errs = append(errs, errors.New("proxy port out of range"))
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Server.Workers <= 0 {
		errs = append(errs, errors.New("worker count must be positive"))
	}

	if c.Storage.DatabasePath == "" {
		errs = append(errs, errors.New("database path is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Environment variables > .env file > Config file > Defaults
func Load(configPath string) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igprofile.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitCSV(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
