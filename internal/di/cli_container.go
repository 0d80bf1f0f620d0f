package di

import (
	"context"
	"flag"
	"io"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-lens/internal/adapters/console"
	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/factory"
	"github.com/mikey/mail-lens/internal/logging"
)

// DefaultCLIThreshold is the base filter threshold of the single-file tool
const DefaultCLIThreshold = 0.1

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Embedding flags
	Models    string
	OpenAIKey string
	CacheDir  string

	// Classification flags
	Categories string
	Threshold  float64
	TopN       int

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags(fs *flag.FlagSet, args []string) (*CLIFlags, error) {
	flags := &CLIFlags{}

	// Embedding flags
	fs.StringVar(&flags.Models, "models", "", "Comma separated provider:model chain (default from config)")
	fs.StringVar(&flags.OpenAIKey, "openai-api-key", "", "API key for OpenAI embedding models")
	fs.StringVar(&flags.CacheDir, "model-cache", "models", "Folder for downloaded local models")

	// Classification flags
	fs.StringVar(&flags.Categories, "categories", "categories/new_cats.txt", "Category definitions file")
	fs.Float64Var(&flags.Threshold, "threshold", DefaultCLIThreshold, "Minimum confidence; negative values are raw cosine thresholds")
	fs.IntVar(&flags.TopN, "top", core.DefaultTopN, "Number of ranked categories to show")

	// Input flags
	fs.StringVar(&flags.InputFile, "file", "", "Input .eml or .msg file")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if flags.InputFile == "" && fs.NArg() > 0 {
		flags.InputFile = fs.Arg(0)
	}
	return flags, nil
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags, out io.Writer) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// Register embedding provider
	if err := container.Provide(func(f *factory.EmbeddingFactory) (core.EmbeddingProvider, error) {
		return f.CreateProvider(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register classifier service
	if err := container.Provide(func(f *factory.ServiceFactory, provider core.EmbeddingProvider) *core.ClassifierService {
		return f.CreateClassifierService(provider)
	}); err != nil {
		return nil, err
	}

	// Register console printer
	if err := container.Provide(func(service *core.ClassifierService, logger *zap.Logger, flags *CLIFlags) *console.Printer {
		return console.NewPrinter(service, logger, out, flags.Verbose)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	if flags.Models != "" {
		v.Set("embedding.models", strings.Split(flags.Models, ","))
	}
	if flags.OpenAIKey != "" {
		v.Set("openai.api_key", flags.OpenAIKey)
	}
	v.Set("sbert.cache_dir", flags.CacheDir)

	v.Set("paths.categories_file", flags.Categories)
	v.Set("classification.threshold", flags.Threshold)
	v.Set("classification.top_n", flags.TopN)

	return config.NewFromViper(v)
}
