package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys
const EnvPrefix = "MAIL_LENS"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. A .env file in the working
// directory is loaded first when present; existing variables win.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mail-lens/")
	v.AddConfigPath("$HOME/.mail-lens")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromFile creates a configuration from an explicit YAML file
func NewFromFile(path string) (*Config, error) {
	v := NewEmptyViper()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Folder layout
	v.SetDefault("paths.input_dir", "data_input")
	v.SetDefault("paths.output_dir", "data_output")
	v.SetDefault("paths.categories_file", "categories/new_cats.txt")
	v.SetDefault("paths.clear_output", true)

	// Classification defaults
	v.SetDefault("classification.top_n", 5)
	v.SetDefault("classification.threshold", 0.25)
	v.SetDefault("classification.other_category", "Other")
	v.SetDefault("classification.other_threshold", 0.4)
	v.SetDefault("classification.display_threshold", 0.3)
	v.SetDefault("classification.empty_label", "Empty email")
	v.SetDefault("classification.error_label", "Classification error")
	v.SetDefault("classification.max_text_length", 4000)
	v.SetDefault("classification.retry_truncate_length", 3000)
	v.SetDefault("classification.preview_length", 300)

	// Embedding model chain, most capable first
	v.SetDefault("embedding.models", []string{
		"sbert:paraphrase-multilingual-mpnet-base-v2",
		"sbert:paraphrase-multilingual-MiniLM-L12-v2",
		"sbert:all-MiniLM-L6-v2",
	})
	v.SetDefault("embedding.probe_text", "test")

	// Local sentence-transformers worker
	v.SetDefault("sbert.python", "python3")
	v.SetDefault("sbert.cache_dir", "models")
	v.SetDefault("sbert.device", "cpu")
	v.SetDefault("sbert.batch_size", 32)
	v.SetDefault("sbert.startup_timeout", "5m")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.dimensions", 1024)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.dimensions", 0)

	// Circuit breaker for remote providers
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", "1m")
	v.SetDefault("breaker.timeout", "30s")
	v.SetDefault("breaker.failure_threshold", 5)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "720h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "data_cache/embeddings.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/mail_lens")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_prefix", "mail-lens:emb:")

	// Export defaults
	v.SetDefault("export.formats", []string{"json", "csv"})
	v.SetDefault("export.prefix", "mail_lens_results")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.prefix", "metrics")

	// Vocabulary builder defaults
	v.SetDefault("vocab.input_dir", "data_input")
	v.SetDefault("vocab.output_file", "categories/vocab.txt")
	v.SetDefault("vocab.top_words", 50)

	// Dashboard defaults
	v.SetDefault("dashboard.listen_address", "127.0.0.1:8501")

	// Schedule defaults
	v.SetDefault("schedule.cron", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
}

// Set overrides a configuration value, used by command-line flags
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
