// Package config loads the research agent configuration from an optional
// YAML file, the environment and a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Protocol-Lattice/research-agent/pkg/history"
)

// EnvPrefix namespaces environment overrides, e.g. RESEARCH_AGENT_SERVER_PORT.
const EnvPrefix = "RESEARCH_AGENT"

// Config holds the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Models  ModelsConfig  `mapstructure:"models" yaml:"models"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Tools   ToolsConfig   `mapstructure:"tools" yaml:"tools"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Tunnel  TunnelConfig  `mapstructure:"tunnel" yaml:"tunnel"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	CORSOrigins    []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	RateLimit      float64  `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second per client, 0 disables
	RateBurst      int      `mapstructure:"rate_burst" yaml:"rate_burst"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	UploadDir      string   `mapstructure:"upload_dir" yaml:"upload_dir"` // keep originals here when set
	RedactUploads  bool     `mapstructure:"redact_uploads" yaml:"redact_uploads"`
}

// ModelsConfig selects the provider and the three model roles: pro for
// deep reasoning, flash for routing and synthesis, live for the live
// search tool.
type ModelsConfig struct {
	Provider      string        `mapstructure:"provider" yaml:"provider"`
	ProModel      string        `mapstructure:"pro_model" yaml:"pro_model"`
	FlashModel    string        `mapstructure:"flash_model" yaml:"flash_model"`
	LiveModel     string        `mapstructure:"live_model" yaml:"live_model"`
	APIKey        string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL       string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RouterCache   int           `mapstructure:"router_cache" yaml:"router_cache"` // entries, 0 disables
	RouterTTL     time.Duration `mapstructure:"router_ttl" yaml:"router_ttl"`
	SystemPrompt  string        `mapstructure:"system_prompt" yaml:"system_prompt"`
	KnowledgeBase string        `mapstructure:"knowledge_base" yaml:"knowledge_base"` // path to a text file
}

type HistoryConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	DSN        string `mapstructure:"dsn" yaml:"dsn"`
	Database   string `mapstructure:"database" yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
	Username   string `mapstructure:"username" yaml:"username"`
	Password   string `mapstructure:"password" yaml:"password"`
	Limit      int    `mapstructure:"limit" yaml:"limit"`
}

type ToolsConfig struct {
	SerperAPIKey  string        `mapstructure:"serper_api_key" yaml:"serper_api_key"`
	SerperURL     string        `mapstructure:"serper_url" yaml:"serper_url"`
	ImageURL      string        `mapstructure:"image_url" yaml:"image_url"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UTCPProviders string        `mapstructure:"utcp_providers" yaml:"utcp_providers"`
	UTCPTools     []string      `mapstructure:"utcp_tools" yaml:"utcp_tools"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json or console
}

type TunnelConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	AuthToken string `mapstructure:"authtoken" yaml:"authtoken"`
	Domain    string `mapstructure:"domain" yaml:"domain"`
}

// DefaultConfig returns a new configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			CORSOrigins:    []string{"*"},
			RateLimit:      2,
			RateBurst:      10,
			MaxUploadBytes: 100 << 20,
		},
		Models: ModelsConfig{
			Provider:    "gemini",
			ProModel:    "gemini-2.5-pro",
			FlashModel:  "gemini-2.5-flash",
			LiveModel:   "gemini-2.5-flash",
			Timeout:     2 * time.Minute,
			RouterCache: 512,
			RouterTTL:   10 * time.Minute,
		},
		History: HistoryConfig{
			Backend:    "sqlite",
			DSN:        "chat_history.db",
			Database:   "research_agent",
			Collection: "chat_history",
			Limit:      history.DefaultLimit,
		},
		Tools: ToolsConfig{
			SerperURL: "https://google.serper.dev/search",
			ImageURL:  "https://image.pollinations.ai/prompt",
			Timeout:   90 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// rawEnv maps the unprefixed variables the deployment .env files use.
var rawEnv = map[string][]string{
	"models.api_key":       {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"tools.serper_api_key": {"SERPER_API_KEY"},
	"tunnel.authtoken":     {"NGROK_AUTHTOKEN"},
	"history.dsn":          {"DATABASE_URL"},
}

// Load reads configPath (optional), the environment and ./.env. Values
// from the environment win over the file.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range rawEnv {
		args := append([]string{key, EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/research-agent")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// WriteDefault writes the default configuration as YAML to path.
func WriteDefault(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var providers = map[string]bool{
	"gemini": true, "google": true, "openai": true, "anthropic": true,
	"claude": true, "ollama": true, "dummy": true,
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if !providers[strings.ToLower(c.Models.Provider)] {
		return fmt.Errorf("invalid model provider: %s", c.Models.Provider)
	}
	if c.Models.ProModel == "" || c.Models.FlashModel == "" {
		return fmt.Errorf("pro and flash models are required")
	}
	if !history.Supported(c.History.Backend) {
		return fmt.Errorf("%w: %s (must be one of %s)", history.ErrUnknownBackend,
			c.History.Backend, strings.Join(history.Backends(), ", "))
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history limit must not be negative")
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logging.Format)
	}
	if c.Tunnel.Enabled && c.Tunnel.AuthToken == "" {
		return fmt.Errorf("tunnel enabled without an ngrok authtoken")
	}
	return nil
}

// HistoryOptions converts the history section for history.Open.
func (c *Config) HistoryOptions() history.Config {
	return history.Config{
		Backend:    c.History.Backend,
		DSN:        c.History.DSN,
		Database:   c.History.Database,
		Collection: c.History.Collection,
		Username:   c.History.Username,
		Password:   c.History.Password,
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.upload_dir", d.Server.UploadDir)
	v.SetDefault("server.redact_uploads", d.Server.RedactUploads)
	v.SetDefault("models.provider", d.Models.Provider)
	v.SetDefault("models.pro_model", d.Models.ProModel)
	v.SetDefault("models.flash_model", d.Models.FlashModel)
	v.SetDefault("models.live_model", d.Models.LiveModel)
	v.SetDefault("models.api_key", "")
	v.SetDefault("models.base_url", "")
	v.SetDefault("models.timeout", d.Models.Timeout)
	v.SetDefault("models.router_cache", d.Models.RouterCache)
	v.SetDefault("models.router_ttl", d.Models.RouterTTL)
	v.SetDefault("models.system_prompt", "")
	v.SetDefault("models.knowledge_base", "")
	v.SetDefault("history.backend", d.History.Backend)
	v.SetDefault("history.dsn", d.History.DSN)
	v.SetDefault("history.database", d.History.Database)
	v.SetDefault("history.collection", d.History.Collection)
	v.SetDefault("history.username", "")
	v.SetDefault("history.password", "")
	v.SetDefault("history.limit", d.History.Limit)
	v.SetDefault("tools.serper_api_key", "")
	v.SetDefault("tools.serper_url", d.Tools.SerperURL)
	v.SetDefault("tools.image_url", d.Tools.ImageURL)
	v.SetDefault("tools.timeout", d.Tools.Timeout)
	v.SetDefault("tools.utcp_providers", "")
	v.SetDefault("tools.utcp_tools", []string{})
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("tunnel.enabled", false)
	v.SetDefault("tunnel.authtoken", "")
	v.SetDefault("tunnel.domain", "")
}
