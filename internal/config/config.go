package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete codesnap configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	Root    string `json:"root" mapstructure:"root"`

	QueueResolver QueueResolverConfig `json:"queueResolver" mapstructure:"queueResolver"`
	Scan          ScanConfig          `json:"scan" mapstructure:"scan"`
	Logging       LoggingConfig       `json:"logging" mapstructure:"logging"`
}

// QueueResolverConfig controls how async-function and topic names are mapped
// to queue identifiers at build time.
type QueueResolverConfig struct {
	// Mode selects the resolver backing: "endpoint" (HTTP lookup) or "store"
	// (the queue_mapping table). Empty means endpoint when any endpoint is
	// configured, store otherwise.
	Mode             string `json:"mode" mapstructure:"mode"`
	FunctionEndpoint string `json:"functionEndpoint" mapstructure:"functionEndpoint"`
	TopicEndpoint    string `json:"topicEndpoint" mapstructure:"topicEndpoint"`
	HTTPTimeoutMs    int    `json:"httpTimeoutMs" mapstructure:"httpTimeoutMs"`
	MaxAttempts      int    `json:"maxAttempts" mapstructure:"maxAttempts"`
	InitialBackoffMs int    `json:"initialBackoffMs" mapstructure:"initialBackoffMs"`
}

// ScanConfig contains scan ingestion configuration
type ScanConfig struct {
	// KnownTopicResolutions is the recognized topicResolution vocabulary.
	// Values outside this set are logged during processing; any value other
	// than RESOLVED maps to the unknown-topic placeholder either way.
	KnownTopicResolutions []string `json:"knownTopicResolutions" mapstructure:"knownTopicResolutions"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

const (
	// ModeEndpoint resolves queue names via the HTTP endpoints.
	ModeEndpoint = "endpoint"
	// ModeStore resolves queue names via the queue_mapping table.
	ModeStore = "store"

	currentConfigVersion = 1
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: currentConfigVersion,
		Root:    ".",
		QueueResolver: QueueResolverConfig{
			Mode:             "",
			HTTPTimeoutMs:    2000,
			MaxAttempts:      3,
			InitialBackoffMs: 200,
		},
		Scan: ScanConfig{
			KnownTopicResolutions: []string{"RESOLVED", "UNKNOWN_VARIABLE", "UNKNOWN_CONSTANT"},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <root>/.codesnap/config.json.
// Endpoint settings may also come from the environment
// (CODESNAP_QUEUE_FUNCTION_RESOLVER_URL, CODESNAP_QUEUE_TOPIC_RESOLVER_URL).
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("root", root)
	v.SetDefault("queueResolver.httpTimeoutMs", defaults.QueueResolver.HTTPTimeoutMs)
	v.SetDefault("queueResolver.maxAttempts", defaults.QueueResolver.MaxAttempts)
	v.SetDefault("queueResolver.initialBackoffMs", defaults.QueueResolver.InitialBackoffMs)
	v.SetDefault("scan.knownTopicResolutions", defaults.Scan.KnownTopicResolutions)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".codesnap"))

	v.SetEnvPrefix("codesnap")
	_ = v.BindEnv("queueResolver.functionEndpoint", "CODESNAP_QUEUE_FUNCTION_RESOLVER_URL")
	_ = v.BindEnv("queueResolver.topicEndpoint", "CODESNAP_QUEUE_TOPIC_RESOLVER_URL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file: defaults plus any environment overrides.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Root = root

	return &cfg, nil
}

// Save writes the configuration to <root>/.codesnap/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".codesnap")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != currentConfigVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	switch c.QueueResolver.Mode {
	case "", ModeEndpoint, ModeStore:
	default:
		return &ConfigError{Field: "queueResolver.mode", Message: "must be \"endpoint\" or \"store\""}
	}
	if c.QueueResolver.MaxAttempts < 1 {
		return &ConfigError{Field: "queueResolver.maxAttempts", Message: "must be positive"}
	}
	if c.QueueResolver.HTTPTimeoutMs < 0 || c.QueueResolver.InitialBackoffMs < 0 {
		return &ConfigError{Field: "queueResolver", Message: "timeouts must not be negative"}
	}
	return nil
}

// ResolverMode returns the effective queue-resolver mode.
func (c *Config) ResolverMode() string {
	if c.QueueResolver.Mode != "" {
		return c.QueueResolver.Mode
	}
	if c.QueueResolver.FunctionEndpoint != "" || c.QueueResolver.TopicEndpoint != "" {
		return ModeEndpoint
	}
	return ModeStore
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
