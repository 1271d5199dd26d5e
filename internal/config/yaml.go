package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level hutch configuration file.
type YAMLConfig struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	WebRTC    WebRTCConfig    `yaml:"webrtc" mapstructure:"webrtc"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	MCP       MCPConfig       `yaml:"mcp" mapstructure:"mcp"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host" mapstructure:"host"`
	Port            int        `yaml:"port" mapstructure:"port"`
	ShutdownTimeout string     `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	EnableUI        bool       `yaml:"enable_ui" mapstructure:"enable_ui"`
	CORS            CORSConfig `yaml:"cors" mapstructure:"cors"`
	RateLimit       RateLimit  `yaml:"rate_limit" mapstructure:"rate_limit"`
	// TrustProxy takes client IPs from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `yaml:"trust_proxy" mapstructure:"trust_proxy"`
}

// RateLimit holds per-IP request budgets, in requests per minute. Zero
// disables the limiter for that route.
type RateLimit struct {
	Login  int `yaml:"login" mapstructure:"login"`
	Events int `yaml:"events" mapstructure:"events"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins" mapstructure:"origins"`
}

// AuthConfig controls admin session settings. SecretKey is normally supplied
// through ADMIN_SECRET_KEY rather than written to the file.
type AuthConfig struct {
	SecretKey    string `yaml:"secret_key,omitempty" mapstructure:"secret_key"`
	SessionTTL   string `yaml:"session_ttl" mapstructure:"session_ttl"`
	CookieSecure bool   `yaml:"cookie_secure" mapstructure:"cookie_secure"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	URL          string `yaml:"url,omitempty" mapstructure:"url"`
	MaxOpenConns int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
}

// WebRTCConfig points the WHEP proxy at the media server.
type WebRTCConfig struct {
	UpstreamURL string `yaml:"upstream_url" mapstructure:"upstream_url"`
	Timeout     string `yaml:"timeout" mapstructure:"timeout"`
}

// ReconcileConfig tunes how events are folded into the current state.
type ReconcileConfig struct {
	MaxRetries       int  `yaml:"max_retries" mapstructure:"max_retries"`
	RejectOutOfOrder bool `yaml:"reject_out_of_order" mapstructure:"reject_out_of_order"`
}

// MCPConfig controls the MCP (Model Context Protocol) server.
type MCPConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Transport string `yaml:"transport" mapstructure:"transport"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before parsing.
// Fields missing from the file keep their default values.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: "30s",
			EnableUI:        true,
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
			RateLimit: RateLimit{
				Login:  10,
				Events: 120,
			},
		},
		Auth: AuthConfig{
			SessionTTL:   "2h",
			CookieSecure: false,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
		},
		WebRTC: WebRTCConfig{
			UpstreamURL: "http://localhost:8889",
			Timeout:     "10s",
		},
		Reconcile: ReconcileConfig{
			MaxRetries:       3,
			RejectOutOfOrder: false,
		},
		MCP: MCPConfig{
			Enabled:   true,
			Transport: "stdio",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Masked returns a copy of c with secrets replaced, suitable for display.
func (c *YAMLConfig) Masked() *YAMLConfig {
	out := *c
	out.Server.CORS.Origins = append([]string(nil), c.Server.CORS.Origins...)
	if out.Auth.SecretKey != "" {
		out.Auth.SecretKey = "********"
	}
	out.Database.URL = MaskURL(out.Database.URL)
	return &out
}

// Marshal encodes c as YAML.
func (c *YAMLConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	data, err := DefaultYAMLConfig().Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
