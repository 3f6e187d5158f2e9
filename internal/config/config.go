// Package config handles configuration loading for crmreport.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for all environment variable overrides.
const EnvPrefix = "CRMREPORT"

// DefaultCategories lists the service categories recognised in free-text
// answers when no explicit list is configured.
var DefaultCategories = []string{
	"Recreation and leisure",
	"Trees",
	"Roads",
	"Engineering",
	"Building",
	"City General",
}

// Config represents the complete application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm"`
	Report  ReportConfig  `mapstructure:"report"  yaml:"report"`
	Data    DataConfig    `mapstructure:"data"    yaml:"data"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig holds generative-text provider configuration.
type LLMConfig struct {
	Enabled           bool    `mapstructure:"enabled"             yaml:"enabled"`
	Primary           string  `mapstructure:"primary"             yaml:"primary"` // "gemini", "openai", "anthropic", "ollama"
	GeminiKey         string  `mapstructure:"gemini_key"          yaml:"gemini_key"`
	OpenAIKey         string  `mapstructure:"openai_key"          yaml:"openai_key"`
	AnthropicKey      string  `mapstructure:"anthropic_key"       yaml:"anthropic_key"`
	OllamaURL         string  `mapstructure:"ollama_url"          yaml:"ollama_url"`
	Model             string  `mapstructure:"model"               yaml:"model"`
	Temperature       float64 `mapstructure:"temperature"         yaml:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"          yaml:"max_tokens"`
	TimeoutSec        int     `mapstructure:"timeout_sec"         yaml:"timeout_sec"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute" yaml:"requests_per_minute"` // 0 disables limiting
}

// ReportConfig holds document generation settings.
type ReportConfig struct {
	Title           string   `mapstructure:"title"            yaml:"title"`
	Compress        bool     `mapstructure:"compress"         yaml:"compress"`
	KnownCategories []string `mapstructure:"known_categories" yaml:"known_categories"`
	Concurrency     int      `mapstructure:"concurrency"      yaml:"concurrency"` // batch mode workers
}

// DataConfig holds tabular data source settings.
type DataConfig struct {
	Dirs      []string `mapstructure:"dirs"       yaml:"dirs"`
	Catalog   string   `mapstructure:"catalog"    yaml:"catalog"`    // optional YAML product catalog
	SQLite    string   `mapstructure:"sqlite"     yaml:"sqlite"`     // optional database with one table per product
	RemoteURL string   `mapstructure:"remote_url" yaml:"remote_url"` // optional base URL serving <file>
	CacheTTL  int      `mapstructure:"cache_ttl"  yaml:"cache_ttl"`  // seconds, 0 disables caching
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.crmreport/config.yaml (home directory)
//  3. /etc/crmreport/config.yaml (system)
//
// Environment variables override config file values.
// Format: CRMREPORT_<SECTION>_<KEY>, e.g., CRMREPORT_LLM_GEMINI_KEY
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".crmreport"))
	v.AddConfigPath("/etc/crmreport")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults + env vars.
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// SaveToFile writes cfg as YAML to path, creating parent directories.
// Secrets are written as-is; callers decide whether to blank them first.
func SaveToFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// ConfigFilePath returns the per-user config file location.
func ConfigFilePath() string {
	return filepath.Join(homeDir(), ".crmreport", "config.yaml")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.primary", "gemini")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout_sec", 30)
	v.SetDefault("llm.requests_per_minute", 0)

	// Report defaults
	v.SetDefault("report.title", "CRM Analytics Report")
	v.SetDefault("report.compress", true)
	v.SetDefault("report.known_categories", DefaultCategories)
	v.SetDefault("report.concurrency", 4)

	// Data defaults
	v.SetDefault("data.dirs", []string{".", "./data"})
	v.SetDefault("data.cache_ttl", 300) // 5 minutes

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// The bare GEMINI_API_KEY / GOOGLE_API_KEY names are honoured as well, the
// prefixed variable wins when both are set.
func overrideFromEnv(cfg *Config) {
	if cfg.LLM.GeminiKey == "" {
		for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if key := os.Getenv(name); key != "" {
				cfg.LLM.GeminiKey = key
				break
			}
		}
	}
	if key := os.Getenv(EnvPrefix + "_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
	if key := os.Getenv(EnvPrefix + "_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv(EnvPrefix + "_LLM_ANTHROPIC_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
