package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/mail-lens/internal/adapters/dashboard"
	"github.com/mikey/mail-lens/internal/check"
	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/di"
	"github.com/mikey/mail-lens/internal/pipeline"
	"github.com/mikey/mail-lens/internal/ports"
	"github.com/mikey/mail-lens/internal/vocab"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "mail-lens",
	Short:         "mail-lens - embedding based email classification",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify every email in the input folder and export the results",
	RunE:  runClassify,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the results dashboard",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify folders, category file and model runtime",
	RunE:  runCheck,
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Build keyword dictionaries from labelled sample emails",
	RunE:  runVocab,
}

var (
	configFile string

	inputDir       string
	outputDir      string
	categoriesFile string
	threshold      float64
	topN           int
	keepOutput     bool
	cronSpec       string

	listenAddress string

	vocabOutput string
	topWords    int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&inputDir, "input", "", "Input folder with .eml/.msg files")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "", "Output folder for exported results")
	rootCmd.PersistentFlags().StringVar(&categoriesFile, "categories", "", "Category definitions file")

	classifyCmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum confidence; negative values are raw cosine thresholds")
	classifyCmd.Flags().IntVar(&topN, "top", 0, "Number of ranked categories kept per email")
	classifyCmd.Flags().BoolVar(&keepOutput, "keep-output", false, "Do not clear the output folder before the run")
	classifyCmd.Flags().StringVar(&cronSpec, "cron", "", "Repeat the run on a cron schedule, e.g. \"0 * * * *\"")

	serveCmd.Flags().StringVar(&listenAddress, "listen", "", "Dashboard listen address")

	vocabCmd.Flags().StringVar(&vocabOutput, "vocab-output", "", "File to write the dictionaries to")
	vocabCmd.Flags().IntVar(&topWords, "top-words", 0, "Words kept per category")

	rootCmd.AddCommand(classifyCmd, serveCmd, checkCmd, vocabCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies command line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.NewFromFile(configFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Set("paths.input_dir", inputDir)
		cfg.Set("vocab.input_dir", inputDir)
	}
	if flags.Changed("output") {
		cfg.Set("paths.output_dir", outputDir)
	}
	if flags.Changed("categories") {
		cfg.Set("paths.categories_file", categoriesFile)
	}
	if flags.Changed("threshold") {
		cfg.Set("classification.threshold", threshold)
	}
	if flags.Changed("top") {
		cfg.Set("classification.top_n", topN)
	}
	if flags.Changed("keep-output") {
		cfg.Set("paths.clear_output", !keepOutput)
	}
	if flags.Changed("cron") {
		cfg.Set("schedule.cron", cronSpec)
	}
	if flags.Changed("listen") {
		cfg.Set("dashboard.listen_address", listenAddress)
	}
	if flags.Changed("vocab-output") {
		cfg.Set("vocab.output_file", vocabOutput)
	}
	if flags.Changed("top-words") {
		cfg.Set("vocab.top_words", topWords)
	}
	return cfg, nil
}

func buildContainer(cmd *cobra.Command) (*dig.Container, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	container, err := di.BuildContainer(cfg, cmd.OutOrStdout())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build dependency container: %w", err)
	}
	return container, cfg, nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	container, cfg, err := buildContainer(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return container.Invoke(func(logger *zap.Logger, runner *pipeline.Runner, provider core.EmbeddingProvider) error {
		defer logger.Sync()
		defer closeProvider(logger, provider)

		schedule := cfg.GetSchedule().Cron
		if schedule == "" {
			_, err := runner.Run(ctx)
			return err
		}
		return runScheduled(ctx, schedule, runner, logger)
	})
}

// runScheduled runs once immediately and then on every tick of schedule until interrupted.
// Ticks that arrive while a run is active are skipped.
func runScheduled(ctx context.Context, schedule string, runner *pipeline.Runner, logger *zap.Logger) error {
	runOnce := func() {
		if _, err := runner.TryRun(ctx); err != nil {
			switch {
			case errors.Is(err, pipeline.ErrRunInProgress):
				logger.Warn("Previous run still active, skipping tick")
			case errors.Is(err, context.Canceled):
			default:
				logger.Error("Scheduled run failed", zap.Error(err))
			}
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(schedule, runOnce); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	runOnce()
	scheduler.Start()
	logger.Info("Scheduled classification started", zap.String("cron", schedule))

	<-ctx.Done()
	logger.Info("Shutting down...")
	<-scheduler.Stop().Done()
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	container, _, err := buildContainer(cmd)
	if err != nil {
		return err
	}

	return container.Invoke(func(logger *zap.Logger, server *dashboard.Server, provider core.EmbeddingProvider) error {
		defer logger.Sync()
		defer closeProvider(logger, provider)

		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}

		// Handle graceful shutdown
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("Shutting down...")

		if err := server.Stop(); err != nil {
			logger.Error("Failed to stop dashboard", zap.Error(err))
		}
		logger.Info("Shutdown complete")
		return nil
	})
}

func runCheck(cmd *cobra.Command, args []string) error {
	container, _, err := buildContainer(cmd)
	if err != nil {
		return err
	}

	return container.Invoke(func(checker *check.Checker) error {
		results := checker.Run()
		check.Print(cmd.OutOrStdout(), results)
		if !check.Passed(results) {
			return errors.New("environment check failed")
		}
		return nil
	})
}

func runVocab(cmd *cobra.Command, args []string) error {
	container, cfg, err := buildContainer(cmd)
	if err != nil {
		return err
	}

	return container.Invoke(func(logger *zap.Logger, source ports.EmailSource, builder *vocab.Builder) error {
		defer logger.Sync()

		vocabCfg := cfg.GetVocab()
		emails, err := source.LoadDir(cmd.Context(), vocabCfg.InputDir)
		if err != nil {
			return err
		}
		dictionaries := builder.Build(emails)

		if err := vocab.WriteFile(vocabCfg.OutputFile, dictionaries); err != nil {
			return err
		}

		logger.Info("Vocabulary written",
			zap.String("file", vocabCfg.OutputFile),
			zap.Int("categories", len(dictionaries)))
		return nil
	})
}

func closeProvider(logger *zap.Logger, provider core.EmbeddingProvider) {
	if err := provider.Close(); err != nil {
		logger.Error("Failed to close embedding provider", zap.Error(err))
	}
}
