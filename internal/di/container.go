package di

import (
	"context"
	"io"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-lens/internal/adapters/dashboard"
	"github.com/mikey/mail-lens/internal/adapters/export"
	"github.com/mikey/mail-lens/internal/categories"
	"github.com/mikey/mail-lens/internal/check"
	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/factory"
	"github.com/mikey/mail-lens/internal/logging"
	"github.com/mikey/mail-lens/internal/pipeline"
	"github.com/mikey/mail-lens/internal/ports"
	"github.com/mikey/mail-lens/internal/vocab"
)

// BuildContainer creates and configures a dependency injection container.
// The embedding provider is only loaded when something depends on it.
func BuildContainer(cfg *config.Config, out io.Writer) (*dig.Container, error) {
	container := dig.New()

	// Register configuration and report output
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() io.Writer { return out }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
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

	// Register batch pipeline
	if err := container.Provide(func(
		cfg *config.Config,
		f *factory.ServiceFactory,
		source ports.EmailSource,
		loader *categories.Loader,
		service *core.ClassifierService,
		exporter *export.Manager,
		logger *zap.Logger,
		out io.Writer,
	) *pipeline.Runner {
		return pipeline.NewRunner(cfg, f.CreateBatchOptions(), source, loader, service, exporter, logger, out)
	}); err != nil {
		return nil, err
	}

	// Register dashboard
	if err := container.Provide(func(
		cfg *config.Config,
		runner *pipeline.Runner,
		loader *categories.Loader,
		logger *zap.Logger,
	) *dashboard.Server {
		// the dashboard reads back whatever the runner writes
		paths := runner.Paths()
		return dashboard.NewServer(runner, loader, dashboard.Options{
			ListenAddress:  cfg.GetDashboard().ListenAddress,
			OutputDir:      paths.OutputDir,
			ExportPrefix:   runner.ExportPrefix(),
			MetricsPrefix:  runner.MetricsPrefix(),
			CategoriesFile: paths.CategoriesFile,
		}, logger)
	}); err != nil {
		return nil, err
	}

	// Register environment checker
	if err := container.Provide(check.NewChecker); err != nil {
		return nil, err
	}

	// Register vocabulary builder
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *vocab.Builder {
		return vocab.NewBuilder(cfg.GetVocab().TopWords, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCommon registers factories and adapters shared by every binary
func provideCommon(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewEmbeddingFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewServiceFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewIOFactory); err != nil {
		return err
	}

	// Register email source
	if err := container.Provide(func(f *factory.IOFactory) ports.EmailSource {
		return f.CreateEmailSource()
	}); err != nil {
		return err
	}

	// Register exporters
	if err := container.Provide(func(f *factory.IOFactory) (*export.Manager, error) {
		return f.CreateExportManager()
	}); err != nil {
		return err
	}

	// Register category loader
	return container.Provide(categories.NewLoader)
}
