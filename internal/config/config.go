// Package config loads problembook settings from a YAML file and PROBLEMBOOK_
// environment variables, and hot-reloads them when the file changes.
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

	"github.com/jackzampolin/problembook/internal/providers"
)

// EnvPrefix prefixes environment overrides, e.g. PROBLEMBOOK_SERVER_PORT.
const EnvPrefix = "PROBLEMBOOK"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v *viper.Viper

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
// An empty cfgFile searches ./config.yaml and $HOME/.problembook/config.yaml;
// a missing file leaves the defaults in place.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    slog.Default(),
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
	d := DefaultConfig()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("paths.resources_dir", d.Paths.ResourcesDir)
	v.SetDefault("paths.preview_dir", d.Paths.PreviewDir)
	v.SetDefault("paths.ocr_cache_dir", d.Paths.OCRCacheDir)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.defra_url", d.Storage.DefraURL)
	v.SetDefault("storage.defra_docker", d.Storage.DefraDocker)
	v.SetDefault("defra.container_name", d.Defra.ContainerName)
	v.SetDefault("defra.image", d.Defra.Image)
	v.SetDefault("defra.port", d.Defra.Port)
	v.SetDefault("ocr.provider", d.OCR.Provider)
	v.SetDefault("ocr.model", d.OCR.Model)
	v.SetDefault("ocr.mistral_api_key", d.OCR.MistralAPIKey)
	v.SetDefault("ocr.concurrency", d.OCR.Concurrency)
	v.SetDefault("ocr.rate_limit", d.OCR.RateLimit)
	v.SetDefault("parser.ai_provider", d.Parser.AIProvider)
	v.SetDefault("parser.ai_model", d.Parser.AIModel)
	for name, p := range d.Providers {
		key := "providers." + name + "."
		v.SetDefault(key+"api_key", p.APIKey)
		v.SetDefault(key+"model", p.Model)
		v.SetDefault(key+"base_url", p.BaseURL)
		v.SetDefault(key+"rate_limit", p.RateLimit)
	}
	v.SetDefault("batch.solve_delay", d.Batch.SolveDelay)
	v.SetDefault("cache.parse_ttl", d.Cache.ParseTTL)
	v.SetDefault("cache.search_ttl", d.Cache.SearchTTL)
	v.SetDefault("cache.export_ttl", d.Cache.ExportTTL)
	v.SetDefault("log_level", d.LogLevel)

	// Environment variables with PROBLEMBOOK_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.problembook")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(cfgFile != "" && errors.Is(err, os.ErrNotExist)) {
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
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file the config was read from, or "" when running
// on defaults.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. A file that fails to
// parse or validate keeps the previous config.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cm.reload(e.Name)
	})
	cm.v.WatchConfig()
}

func (cm *Manager) reload(source string) {
	cfg, err := cm.load()
	if err != nil {
		cm.logger.Warn("ignoring config change", "file", source, "error", err)
		return
	}

	cm.mu.Lock()
	cm.config = cfg
	callbacks := make([]func(*Config), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	cm.logger.Info("config reloaded", "file", source)
	for _, fn := range callbacks {
		fn(cfg)
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		OCRProviders: make(map[string]providers.OCRProviderConfig),
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, p := range c.Providers {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:      name,
			Model:     p.Model,
			BaseURL:   p.BaseURL,
			APIKey:    ResolveEnvVars(p.APIKey),
			RateLimit: p.RateLimit,
		}
	}

	if c.OCR.Provider == providers.MistralOCRName {
		cfg.OCRProviders[c.OCR.Provider] = providers.OCRProviderConfig{
			Type:      providers.MistralOCRName,
			Model:     c.OCR.Model,
			APIKey:    ResolveEnvVars(c.OCR.MistralAPIKey),
			RateLimit: c.OCR.RateLimit,
		}
	}

	return cfg
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# problembook configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export MISTRAL_API_KEY=xxx ANTHROPIC_API_KEY=xxx OPENAI_API_KEY=xxx
# Any key can be overridden as PROBLEMBOOK_<SECTION>_<KEY>, e.g. PROBLEMBOOK_SERVER_PORT=9090

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
