package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/form32/internal/fallback"
	"github.com/jackzampolin/form32/internal/providers"
)

// ErrInvalid is returned by Validate for settings outside their allowed range.
var ErrInvalid = errors.New("invalid config")

// EnvPrefix is the prefix for environment overrides, e.g.
// FORM32_PIPELINE_ASSIST_MODE=true.
const EnvPrefix = "FORM32"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v *viper.Viper

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config. An
// empty cfgFile searches ./config.yaml then $HOME/.form32/config.yaml; a
// missing file is not an error.
func NewManager(cfgFile string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    logger,
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	defaults := DefaultConfig()
	v.SetDefault("ocr_providers", defaults.OCRProviders)
	v.SetDefault("llm_providers", defaults.LLMProviders)
	for _, e := range DefaultEntries() {
		v.SetDefault(e.Key, e.Value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.form32")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// File returns the config file in use, or "" when running on defaults.
func (cm *Manager) File() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. A reload that fails to
// parse or validate keeps the previous config.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			cm.logger.Warn("config reload rejected", "file", e.Name, "error", err)
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		cm.logger.Info("config reloaded", "file", e.Name)
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string
	p := c.Pipeline

	if p.RenderDPI < 50 || p.RenderDPI > 1200 {
		problems = append(problems, fmt.Sprintf("pipeline.render_dpi %d outside 50..1200", p.RenderDPI))
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("pipeline.temperature %g outside 0..2", p.Temperature))
	}
	for group, th := range p.Checkbox.Thresholds {
		if th <= 0 || th > 1 {
			problems = append(problems, fmt.Sprintf("pipeline.checkbox.thresholds.%s %g outside (0, 1]", group, th))
		}
	}
	if len(p.Patterns) > 0 {
		if _, err := fallback.NewExtractor(c.Patterns()); err != nil {
			problems = append(problems, fmt.Sprintf("pipeline.patterns: %v", err))
		}
	}
	if c.Defaults.MaxWorkers < 1 {
		problems = append(problems, fmt.Sprintf("defaults.max_workers %d must be at least 1", c.Defaults.MaxWorkers))
	}
	if _, err := ParseLevel(c.Defaults.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if name := c.Defaults.LLMProvider; name != "" {
		if _, ok := c.LLMProviders[name]; !ok {
			problems = append(problems, fmt.Sprintf("defaults.llm_provider %q is not configured", name))
		}
	}
	if name := c.Defaults.OCRProvider; name != "" {
		if _, ok := c.OCRProviders[name]; !ok {
			problems = append(problems, fmt.Sprintf("defaults.ocr_provider %q is not configured", name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// ParseLevel maps a log_level setting to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("defaults.log_level %q is not one of debug, info, warn, error", s)
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig(logger *slog.Logger) providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		Logger:       logger,
		OCRProviders: make(map[string]providers.OCRProviderConfig),
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, ocr := range c.OCRProviders {
		cfg.OCRProviders[name] = providers.OCRProviderConfig{
			Type:      ocr.Type,
			Model:     ocr.Model,
			BaseURL:   ocr.BaseURL,
			APIKey:    ResolveEnvVars(ocr.APIKey),
			RateLimit: ocr.RateLimit,
			Enabled:   ocr.Enabled,
		}
	}

	for name, llm := range c.LLMProviders {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:       llm.Type,
			Model:      llm.Model,
			BaseURL:    llm.BaseURL,
			APIKey:     ResolveEnvVars(llm.APIKey),
			RateLimit:  llm.RateLimit,
			MaxRetries: llm.MaxRetries,
			Enabled:    llm.Enabled,
		}
	}

	return cfg
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := DefaultConfig().Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# form32 configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENROUTER_API_KEY=xxx MISTRAL_API_KEY=xxx
# Any scalar setting can also be overridden as FORM32_<SECTION>_<KEY>.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
