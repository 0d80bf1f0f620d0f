package config

import (
	"fmt"
	"strings"
	"time"
)

// PathsConfig represents the folder layout of a run
type PathsConfig struct {
	InputDir       string
	OutputDir      string
	CategoriesFile string
	ClearOutput    bool
}

// ClassificationConfig represents the thresholds and limits of the classifier
type ClassificationConfig struct {
	TopN                int
	Threshold           float64
	OtherCategory       string
	OtherThreshold      float64
	DisplayThreshold    float64
	EmptyLabel          string
	ErrorLabel          string
	MaxTextLength       int
	RetryTruncateLength int
	PreviewLength       int
}

// ModelCandidate is one entry of the embedding fallback chain
type ModelCandidate struct {
	Provider string
	Model    string
}

func (m ModelCandidate) String() string {
	return m.Provider + ":" + m.Model
}

// EmbeddingConfig represents the embedding model chain
type EmbeddingConfig struct {
	Candidates []ModelCandidate
	ProbeText  string
}

// SBERTConfig represents the configuration for the local sentence-transformers worker
type SBERTConfig struct {
	Python         string
	CacheDir       string
	Device         string
	BatchSize      int
	StartupTimeout time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region     string
	Dimensions int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Dimensions int
}

// BreakerConfig represents the circuit breaker around remote providers
type BreakerConfig struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// CacheConfig represents the embedding cache backend
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisPrefix      string
}

// ExportConfig represents result export settings
type ExportConfig struct {
	Formats []string
	Prefix  string
}

// MetricsConfig represents evaluation settings
type MetricsConfig struct {
	Enabled bool
	Prefix  string
}

// VocabConfig represents keyword dictionary builder settings
type VocabConfig struct {
	InputDir   string
	OutputFile string
	TopWords   int
}

// DashboardConfig represents the dashboard HTTP server
type DashboardConfig struct {
	ListenAddress string
}

// ScheduleConfig represents periodic batch re-runs
type ScheduleConfig struct {
	Cron string
}

// GetPaths returns the folder layout
func (c *Config) GetPaths() PathsConfig {
	return PathsConfig{
		InputDir:       c.GetString("paths.input_dir"),
		OutputDir:      c.GetString("paths.output_dir"),
		CategoriesFile: c.GetString("paths.categories_file"),
		ClearOutput:    c.GetBool("paths.clear_output"),
	}
}

// GetClassification returns the classifier configuration
func (c *Config) GetClassification() ClassificationConfig {
	return ClassificationConfig{
		TopN:                c.GetInt("classification.top_n"),
		Threshold:           c.GetFloat64("classification.threshold"),
		OtherCategory:       c.GetString("classification.other_category"),
		OtherThreshold:      c.GetFloat64("classification.other_threshold"),
		DisplayThreshold:    c.GetFloat64("classification.display_threshold"),
		EmptyLabel:          c.GetString("classification.empty_label"),
		ErrorLabel:          c.GetString("classification.error_label"),
		MaxTextLength:       c.GetInt("classification.max_text_length"),
		RetryTruncateLength: c.GetInt("classification.retry_truncate_length"),
		PreviewLength:       c.GetInt("classification.preview_length"),
	}
}

// GetEmbedding returns the embedding chain configuration
func (c *Config) GetEmbedding() (EmbeddingConfig, error) {
	var candidates []ModelCandidate
	for _, raw := range c.GetStringSlice("embedding.models") {
		candidate, err := ParseModelCandidate(raw)
		if err != nil {
			return EmbeddingConfig{}, err
		}
		candidates = append(candidates, candidate)
	}
	if len(candidates) == 0 {
		return EmbeddingConfig{}, fmt.Errorf("embedding.models must list at least one model")
	}
	return EmbeddingConfig{
		Candidates: candidates,
		ProbeText:  c.GetString("embedding.probe_text"),
	}, nil
}

// ParseModelCandidate parses "provider:model". The provider defaults to sbert.
func ParseModelCandidate(raw string) (ModelCandidate, error) {
	raw = strings.TrimSpace(raw)
	provider, model, ok := strings.Cut(raw, ":")
	if !ok {
		provider, model = "sbert", raw
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	model = strings.TrimSpace(model)
	if provider == "" || model == "" {
		return ModelCandidate{}, fmt.Errorf("invalid embedding model %q, expected provider:model", raw)
	}
	return ModelCandidate{Provider: provider, Model: model}, nil
}

// GetSBERT returns the local worker configuration
func (c *Config) GetSBERT() SBERTConfig {
	timeout, err := c.GetDuration("sbert.startup_timeout")
	if err != nil {
		timeout = 5 * time.Minute
	}
	return SBERTConfig{
		Python:         c.GetString("sbert.python"),
		CacheDir:       c.GetString("sbert.cache_dir"),
		Device:         c.GetString("sbert.device"),
		BatchSize:      c.GetInt("sbert.batch_size"),
		StartupTimeout: timeout,
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:     c.GetString("bedrock.region"),
		Dimensions: c.GetInt("bedrock.dimensions"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey: c.GetString("gemini.api_key"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:     c.GetString("openai.api_key"),
		BaseURL:    c.GetString("openai.base_url"),
		Dimensions: c.GetInt("openai.dimensions"),
	}
}

// GetBreaker returns the circuit breaker configuration
func (c *Config) GetBreaker() (BreakerConfig, error) {
	interval, err := c.GetDuration("breaker.interval")
	if err != nil {
		return BreakerConfig{}, fmt.Errorf("invalid breaker interval: %w", err)
	}
	timeout, err := c.GetDuration("breaker.timeout")
	if err != nil {
		return BreakerConfig{}, fmt.Errorf("invalid breaker timeout: %w", err)
	}
	return BreakerConfig{
		Enabled:          c.GetBool("breaker.enabled"),
		MaxRequests:      uint32(c.GetInt("breaker.max_requests")),
		Interval:         interval,
		Timeout:          timeout,
		FailureThreshold: uint32(c.GetInt("breaker.failure_threshold")),
	}, nil
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache ttl: %w", err)
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		Type:             c.GetString("cache.type"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddr:        c.GetString("cache.redis_addr"),
		RedisPassword:    c.GetString("cache.redis_password"),
		RedisDB:          c.GetInt("cache.redis_db"),
		RedisPrefix:      c.GetString("cache.redis_prefix"),
	}, nil
}

// GetExport returns the export configuration
func (c *Config) GetExport() ExportConfig {
	return ExportConfig{
		Formats: c.GetStringSlice("export.formats"),
		Prefix:  c.GetString("export.prefix"),
	}
}

// GetMetrics returns the metrics configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		Enabled: c.GetBool("metrics.enabled"),
		Prefix:  c.GetString("metrics.prefix"),
	}
}

// GetVocab returns the vocabulary builder configuration
func (c *Config) GetVocab() VocabConfig {
	return VocabConfig{
		InputDir:   c.GetString("vocab.input_dir"),
		OutputFile: c.GetString("vocab.output_file"),
		TopWords:   c.GetInt("vocab.top_words"),
	}
}

// GetDashboard returns the dashboard configuration
func (c *Config) GetDashboard() DashboardConfig {
	return DashboardConfig{
		ListenAddress: c.GetString("dashboard.listen_address"),
	}
}

// GetSchedule returns the re-run schedule. An empty cron expression means a single run.
func (c *Config) GetSchedule() ScheduleConfig {
	return ScheduleConfig{
		Cron: c.GetString("schedule.cron"),
	}
}
