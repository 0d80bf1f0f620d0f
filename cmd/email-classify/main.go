package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mikey/mail-lens/internal/adapters/console"
	"github.com/mikey/mail-lens/internal/adapters/parser"
	"github.com/mikey/mail-lens/internal/categories"
	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/di"
	"github.com/mikey/mail-lens/internal/factory"
	"github.com/mikey/mail-lens/internal/ports"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags, os.Stdout)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	flags *di.CLIFlags,
	cfg *config.Config,
	logger *zap.Logger,
	source ports.EmailSource,
	loader *categories.Loader,
	services *factory.ServiceFactory,
	printer *console.Printer,
	provider core.EmbeddingProvider,
) error {
	defer logger.Sync()
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Error("Failed to close embedding provider", zap.Error(err))
		}
	}()

	ctx := context.Background()

	// Read email from file or stdin
	var (
		email core.EmailRecord
		err   error
	)
	if flags.InputFile != "" {
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
		email, err = source.LoadFile(ctx, flags.InputFile)
	} else {
		logger.Info("Reading email from stdin")
		email, err = parser.ParseEML(os.Stdin)
		email.Filename = "stdin"
	}
	if err != nil {
		return fmt.Errorf("failed to parse email: %w", err)
	}

	categorySet, err := loader.LoadFile(cfg.GetPaths().CategoriesFile)
	if err != nil {
		return err
	}

	_, err = printer.ProcessEmail(ctx, email, categorySet, services.CreateBatchOptions())
	return err
}
