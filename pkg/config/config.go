package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Logging LoggingConfig  `mapstructure:"logging"`
	LLM     LLMConfig      `mapstructure:"llm"`
	Session SessionConfig  `mapstructure:"session"`
	Store   StoreConfig    `mapstructure:"store"`
	Widgets []WidgetConfig `mapstructure:"widgets"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// LLMConfig selects and configures the streaming chat backend
type LLMConfig struct {
	Provider string        `mapstructure:"provider"` // proxy, ollama, openai
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SessionConfig holds chat session tunables
type SessionConfig struct {
	FilterSettleDelay time.Duration `mapstructure:"filter_settle_delay"`
	MaxStringLength   int           `mapstructure:"max_string_length"`
	MaxSuggestions    int           `mapstructure:"max_suggestions"`
	SystemPrompt      string        `mapstructure:"system_prompt"`
	ContextPrompt     string        `mapstructure:"context_prompt"`
	TokenModel        string        `mapstructure:"token_model"`
}

// StoreConfig holds conversation archive configuration
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// WidgetConfig describes one dashboard widget that can be attached as context
type WidgetConfig struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	AutoReplace bool   `mapstructure:"auto_replace"`
}

const (
	// MaxSuggestionsLimit is the largest accepted session.max_suggestions
	MaxSuggestionsLimit = 10

	// DefaultBaseURL is the chat proxy address used when llm.base_url is unset
	DefaultBaseURL = "http://localhost:8080"

	DefaultSystemPrompt  = "คุณคือผู้ช่วย AI ของระบบบริหารจัดการร้านรับจำนำ ตอบเป็นภาษาไทยอย่างกระชับ ชัดเจน และถูกต้อง"
	DefaultContextPrompt = "คุณคือผู้ช่วย AI ของระบบบริหารจัดการร้านรับจำนำ ผู้ใช้ได้แนบข้อมูลจากแดชบอร์ดมาให้ ใช้ข้อมูลเหล่านี้วิเคราะห์และตอบเป็นภาษาไทยอย่างกระชับและถูกต้อง"
)

var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.pawnassist")
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "pawnassist"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.SetEnvPrefix("PAWNASSIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnvironmentVariables()

	if err := viper.ReadInConfig(); err != nil && !isMissingConfig(err, cfgFile) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(loaded); err != nil {
		return nil, err
	}

	cfg = loaded
	return cfg, nil
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("logging.log_file", "./.pawnassist/system.log")
	viper.SetDefault("logging.preserve", false)
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("llm.provider", "proxy")
	viper.SetDefault("llm.base_url", DefaultBaseURL)
	viper.SetDefault("llm.model", "qwen3:latest")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.timeout", "90s")

	viper.SetDefault("session.filter_settle_delay", "800ms")
	viper.SetDefault("session.max_string_length", 1000)
	viper.SetDefault("session.max_suggestions", 10)
	viper.SetDefault("session.system_prompt", DefaultSystemPrompt)
	viper.SetDefault("session.context_prompt", DefaultContextPrompt)
	viper.SetDefault("session.token_model", "gpt-4")

	viper.SetDefault("store.enabled", true)
	viper.SetDefault("store.path", "./.pawnassist/conversations.db")
}

// bindEnvironmentVariables binds environment variables that do not follow the prefix scheme
func bindEnvironmentVariables() {
	viper.BindEnv("llm.api_key", "PAWNASSIST_LLM_API_KEY", "OPENAI_API_KEY")
}

// isMissingConfig reports whether a read error only means there is no settings file
func isMissingConfig(err error, cfgFile string) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	if cfgFile != "" {
		if _, statErr := os.Stat(cfgFile); os.IsNotExist(statErr) {
			return true
		}
	}
	return false
}

func validate(c *Config) error {
	switch c.LLM.Provider {
	case "proxy", "ollama", "openai":
	default:
		return fmt.Errorf("invalid llm.provider %q: must be proxy, ollama or openai", c.LLM.Provider)
	}
	if c.Session.FilterSettleDelay < 0 {
		return fmt.Errorf("invalid session.filter_settle_delay: must not be negative")
	}
	if c.Session.MaxStringLength <= 0 {
		return fmt.Errorf("invalid session.max_string_length: must be positive")
	}
	if c.Session.MaxSuggestions <= 0 || c.Session.MaxSuggestions > MaxSuggestionsLimit {
		return fmt.Errorf("invalid session.max_suggestions: must be between 1 and %d", MaxSuggestionsLimit)
	}
	seen := make(map[string]bool, len(c.Widgets))
	for _, w := range c.Widgets {
		if w.ID == "" {
			return fmt.Errorf("invalid widgets entry: id is required")
		}
		if seen[w.ID] {
			return fmt.Errorf("invalid widgets entry: duplicate id %q", w.ID)
		}
		seen[w.ID] = true
	}
	return nil
}

// GetConfigFileUsed returns the path to the config file being used
func GetConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
