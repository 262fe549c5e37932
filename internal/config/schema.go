package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds problembook configuration.
// Stored at: ./config.yaml or $HOME/.problembook/config.yaml
type Config struct {
	Server    ServerConfig              `mapstructure:"server" yaml:"server"`
	Paths     PathsConfig               `mapstructure:"paths" yaml:"paths"`
	Storage   StorageConfig             `mapstructure:"storage" yaml:"storage"`
	Defra     DefraConfig               `mapstructure:"defra" yaml:"defra"`
	OCR       OCRConfig                 `mapstructure:"ocr" yaml:"ocr"`
	Parser    ParserConfig              `mapstructure:"parser" yaml:"parser"`
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
	Batch     BatchConfig               `mapstructure:"batch" yaml:"batch"`
	Cache     CacheConfig               `mapstructure:"cache" yaml:"cache"`
	LogLevel  string                    `mapstructure:"log_level" yaml:"log_level"`
}

// ServerConfig is the HTTP listen address.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// PathsConfig locates book PDFs and derived files. Empty preview and OCR
// cache paths resolve under the resources directory.
type PathsConfig struct {
	ResourcesDir string `mapstructure:"resources_dir" yaml:"resources_dir"`
	PreviewDir   string `mapstructure:"preview_dir" yaml:"preview_dir"`
	OCRCacheDir  string `mapstructure:"ocr_cache_dir" yaml:"ocr_cache_dir"`
}

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendDefra  = "defra"
)

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`         // sqlite, memory or defra
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"` // empty means {home}/problembook.db
	DefraURL   string `mapstructure:"defra_url" yaml:"defra_url"`
	// DefraDocker starts the DefraDB container before connecting.
	DefraDocker bool `mapstructure:"defra_docker" yaml:"defra_docker"`
}

// DefraConfig holds DefraDB container configuration.
type DefraConfig struct {
	// ContainerName is the Docker container name (default: problembook-defra)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: sourcenetwork/defradb:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 9181)
	Port string `mapstructure:"port" yaml:"port"`
}

// OCRConfig configures page text extraction.
type OCRConfig struct {
	Provider      string `mapstructure:"provider" yaml:"provider"`
	Model         string `mapstructure:"model" yaml:"model"`
	MistralAPIKey string `mapstructure:"mistral_api_key" yaml:"mistral_api_key"` // supports ${ENV_VAR} syntax
	Concurrency   int    `mapstructure:"concurrency" yaml:"concurrency"`
	RateLimit     int    `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per minute
}

// ParserConfig selects the chat provider behind the AI page parser.
// An empty AIProvider disables AI parsing.
type ParserConfig struct {
	AIProvider string `mapstructure:"ai_provider" yaml:"ai_provider"`
	AIModel    string `mapstructure:"ai_model" yaml:"ai_model"`
}

// ProviderConfig configures one chat provider.
type ProviderConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	Model     string `mapstructure:"model" yaml:"model"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per minute
}

// BatchConfig tunes the batch pipelines.
type BatchConfig struct {
	SolveDelay time.Duration `mapstructure:"solve_delay" yaml:"solve_delay"`
}

// MarshalYAML writes durations in their string form.
func (b BatchConfig) MarshalYAML() (interface{}, error) {
	return yaml.MapSlice{{Key: "solve_delay", Value: b.SolveDelay.String()}}, nil
}

// CacheConfig sets cache lifetimes.
type CacheConfig struct {
	ParseTTL  time.Duration `mapstructure:"parse_ttl" yaml:"parse_ttl"`
	SearchTTL time.Duration `mapstructure:"search_ttl" yaml:"search_ttl"`
	ExportTTL time.Duration `mapstructure:"export_ttl" yaml:"export_ttl"`
}

// MarshalYAML writes durations in their string form.
func (c CacheConfig) MarshalYAML() (interface{}, error) {
	return yaml.MapSlice{
		{Key: "parse_ttl", Value: c.ParseTTL.String()},
		{Key: "search_ttl", Value: c.SearchTTL.String()},
		{Key: "export_ttl", Value: c.ExportTTL.String()},
	}, nil
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
		Paths: PathsConfig{
			ResourcesDir: "./resources",
			PreviewDir:   "./resources/.preview",
			OCRCacheDir:  "./resources/.ocr_cache",
		},
		Storage: StorageConfig{
			Backend:  BackendSQLite,
			DefraURL: "http://localhost:9181",
		},
		Defra: DefraConfig{
			ContainerName: "problembook-defra",
			Image:         "sourcenetwork/defradb:latest",
			Port:          "9181",
		},
		OCR: OCRConfig{
			Provider:      "mistral",
			Model:         "mistral-ocr-latest",
			MistralAPIKey: "${MISTRAL_API_KEY}",
			Concurrency:   4,
			RateLimit:     60,
		},
		Parser: ParserConfig{},
		Providers: map[string]ProviderConfig{
			"claude": {
				APIKey:    "${ANTHROPIC_API_KEY}",
				Model:     "claude-sonnet-4-20250514",
				RateLimit: 50,
			},
			"openai": {
				APIKey:    "${OPENAI_API_KEY}",
				Model:     "gpt-4o",
				RateLimit: 60,
			},
			"mistral": {
				APIKey:    "${MISTRAL_API_KEY}",
				Model:     "mistral-large-latest",
				RateLimit: 60,
			},
			"deepseek": {
				APIKey:    "${DEEPSEEK_API_KEY}",
				Model:     "deepseek-chat",
				RateLimit: 60,
			},
		},
		Batch: BatchConfig{SolveDelay: 500 * time.Millisecond},
		Cache: CacheConfig{
			ParseTTL:  7 * 24 * time.Hour,
			SearchTTL: time.Hour,
			ExportTTL: 24 * time.Hour,
		},
		LogLevel: "info",
	}
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendMemory, BackendDefra:
	default:
		return fmt.Errorf("storage.backend %q: must be sqlite, memory or defra", c.Storage.Backend)
	}
	// Port 0 binds an ephemeral port.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.OCR.Concurrency < 0 {
		return fmt.Errorf("ocr.concurrency must not be negative")
	}
	if c.Parser.AIProvider != "" {
		if _, ok := c.Providers[c.Parser.AIProvider]; !ok {
			return fmt.Errorf("parser.ai_provider %q is not a configured provider", c.Parser.AIProvider)
		}
	}
	return nil
}

// GetProvider returns a chat provider config by name.
func (c *Config) GetProvider(name string) (ProviderConfig, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}
