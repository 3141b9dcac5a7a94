// Package config loads electionctl configuration from TOML and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. ELECTION_API_BASE_URL.
const EnvPrefix = "ELECTION"

// Config holds all application configuration
type Config struct {
	App     AppConfig
	API     APIConfig
	Log     LogConfig
	Metrics MetricsConfig
	Deploy  DeployConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// APIConfig describes the election REST backend the client talks to.
type APIConfig struct {
	BaseURL        string
	Prefix         string        // path prefix for versioned endpoints, e.g. /api/v1
	Timeout        time.Duration // zero keeps the transport default
	UserAgent      string
	RateLimitQPS   float64 // zero disables client-side limiting
	RateLimitBurst int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console; empty picks by app.env
	Output string // stdout, stderr, or file path
}

// MetricsConfig controls the Prometheus client metrics.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// DeployConfig holds the parameters used by the deployment runbooks.
type DeployConfig struct {
	Domain        string
	Email         string
	ServerIP      string // expected public address, used by domain diagnostics
	AppPort       int
	StaticRoot    string
	NginxSitesDir string
	NginxEnabled  string
	BackendCmd    string
	PIDFile       string
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with ELECTION_ prefix (e.g., ELECTION_API_BASE_URL)
// 2. configFile, or config.toml found in . and /etc/electionctl
// 3. Built-in defaults
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/electionctl")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		API: APIConfig{
			BaseURL:        v.GetString("api.base_url"),
			Prefix:         v.GetString("api.prefix"),
			Timeout:        v.GetDuration("api.timeout"),
			UserAgent:      v.GetString("api.user_agent"),
			RateLimitQPS:   v.GetFloat64("api.rate_limit_qps"),
			RateLimitBurst: v.GetInt("api.rate_limit_burst"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Metrics: MetricsConfig{
			Enabled:   v.GetBool("metrics.enabled"),
			Namespace: v.GetString("metrics.namespace"),
		},
		Deploy: DeployConfig{
			Domain:        v.GetString("deploy.domain"),
			Email:         v.GetString("deploy.email"),
			ServerIP:      v.GetString("deploy.server_ip"),
			AppPort:       v.GetInt("deploy.app_port"),
			StaticRoot:    v.GetString("deploy.static_root"),
			NginxSitesDir: v.GetString("deploy.nginx_sites_dir"),
			NginxEnabled:  v.GetString("deploy.nginx_enabled_dir"),
			BackendCmd:    v.GetString("deploy.backend_cmd"),
			PIDFile:       v.GetString("deploy.pid_file"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a configuration with every default applied and no file or
// environment input.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "electionctl"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	if cfg.API.Prefix == "" {
		cfg.API.Prefix = "/api/v1"
	}
	if cfg.API.UserAgent == "" {
		cfg.API.UserAgent = "electionctl/1.0"
	}
	if cfg.API.RateLimitQPS > 0 && cfg.API.RateLimitBurst == 0 {
		cfg.API.RateLimitBurst = 1
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "electionctl"
	}
	if cfg.Deploy.AppPort == 0 {
		cfg.Deploy.AppPort = 8000
	}
	if cfg.Deploy.StaticRoot == "" {
		cfg.Deploy.StaticRoot = "/var/www/election/dist"
	}
	if cfg.Deploy.NginxSitesDir == "" {
		cfg.Deploy.NginxSitesDir = "/etc/nginx/sites-available"
	}
	if cfg.Deploy.NginxEnabled == "" {
		cfg.Deploy.NginxEnabled = "/etc/nginx/sites-enabled"
	}
	if cfg.Deploy.BackendCmd == "" {
		cfg.Deploy.BackendCmd = "uvicorn app.main:app --host 127.0.0.1 --port {port}"
	}
	if cfg.Deploy.PIDFile == "" {
		cfg.Deploy.PIDFile = "/var/run/election-backend.pid"
	}
}

// Validate checks the values Load would reject.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api.base_url %q: scheme must be http or https", c.API.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q: missing host", c.API.BaseURL)
	}
	if !strings.HasPrefix(c.API.Prefix, "/") {
		return fmt.Errorf("api.prefix must start with '/', got %q", c.API.Prefix)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.API.RateLimitQPS < 0 {
		return fmt.Errorf("api.rate_limit_qps must not be negative")
	}
	if c.Deploy.AppPort < 1 || c.Deploy.AppPort > 65535 {
		return fmt.Errorf("deploy.app_port out of range: %d", c.Deploy.AppPort)
	}
	return nil
}

// IsProduction reports whether the app runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
