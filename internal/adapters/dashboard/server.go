package dashboard

import (
	"context"
	"errors"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mikey/mail-lens/internal/adapters/export"
	"github.com/mikey/mail-lens/internal/categories"
	"github.com/mikey/mail-lens/internal/metrics"
	"github.com/mikey/mail-lens/internal/pipeline"
	"github.com/mikey/mail-lens/internal/report"
	"go.uber.org/zap"
)

// RunStarter launches batch runs in the background
type RunStarter interface {
	Start(ctx context.Context, done func(*pipeline.Outcome, error)) error
	Active() bool
}

// Options locates the files the dashboard reads
type Options struct {
	ListenAddress  string
	OutputDir      string
	ExportPrefix   string
	MetricsPrefix  string
	CategoriesFile string
}

// Server serves run results over HTTP
type Server struct {
	app    *fiber.App
	runs   RunStarter
	loader *categories.Loader
	opts   Options
	logger *zap.Logger
	page   *template.Template

	// runCtx outlives single requests so that triggered runs are not cut short
	runCtx    context.Context
	cancelRun context.CancelFunc
}

// NewServer creates a new dashboard server
func NewServer(runs RunStarter, loader *categories.Loader, opts Options, logger *zap.Logger) *Server {
	runCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "mail-lens",
			DisableStartupMessage: true,
		}),
		runs:      runs,
		loader:    loader,
		opts:      opts,
		logger:    logger,
		page:      template.Must(template.New("index").Parse(indexTemplate)),
		runCtx:    runCtx,
		cancelRun: cancel,
	}
	s.Register(s.app)
	return s
}

// App returns the underlying fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// Register registers dashboard routes
func (s *Server) Register(router fiber.Router) {
	router.Get("/", s.Index)

	api := router.Group("/api")
	api.Get("/results", s.GetResults)
	api.Get("/stats", s.GetStats)
	api.Get("/metrics", s.GetMetrics)
	api.Get("/categories", s.GetCategories)
	api.Get("/runs", s.GetRunState)
	api.Post("/runs", s.StartRun)
}

// Start starts listening in the background
func (s *Server) Start() error {
	s.logger.Info("Dashboard starting", zap.String("address", s.opts.ListenAddress))
	go func() {
		if err := s.app.Listen(s.opts.ListenAddress); err != nil {
			s.logger.Error("Dashboard server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop cancels triggered runs and shuts the server down
func (s *Server) Stop() error {
	s.cancelRun()
	return s.app.Shutdown()
}

// Index renders the summary page of the latest run
func (s *Server) Index(c *fiber.Ctx) error {
	view := indexView{Running: s.runs.Active()}
	doc, path, err := s.latestDocument()
	switch {
	case err == nil:
		summary := report.Generate(doc.Results)
		view.HasResults = true
		view.File = filepath.Base(path)
		view.Metadata = doc.Metadata
		view.Summary = summary
		view.Results = doc.Results
	case !errors.Is(err, os.ErrNotExist):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	var buf strings.Builder
	if err := s.page.Execute(&buf, view); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Type("html", "utf-8")
	return c.SendString(buf.String())
}

// GetResults returns the latest exported JSON document
func (s *Server) GetResults(c *fiber.Ctx) error {
	doc, _, err := s.latestDocument()
	if err != nil {
		return documentError(err)
	}
	return c.JSON(doc)
}

// GetStats returns the summary and run counters of the latest export
func (s *Server) GetStats(c *fiber.Ctx) error {
	doc, path, err := s.latestDocument()
	if err != nil {
		return documentError(err)
	}
	return c.JSON(fiber.Map{
		"file":     filepath.Base(path),
		"metadata": doc.Metadata,
		"summary":  report.Generate(doc.Results),
	})
}

// GetMetrics returns the saved evaluation report
func (s *Server) GetMetrics(c *fiber.Ctx) error {
	rep, err := metrics.Load(filepath.Join(s.opts.OutputDir, s.opts.MetricsPrefix+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fiber.NewError(fiber.StatusNotFound, "No metrics available")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(rep)
}

type categoryView struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// GetCategories returns the category file as parsed for classification
func (s *Server) GetCategories(c *fiber.Ctx) error {
	f, err := os.Open(s.opts.CategoriesFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fiber.NewError(fiber.StatusNotFound, "Categories file not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	defer f.Close()

	lines, err := categories.ReadLines(f)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	views := make([]categoryView, 0, len(lines))
	for _, line := range lines {
		d := categories.ParseLine(line)
		views = append(views, categoryView{
			Name:        d.Name,
			Description: d.Description,
			Keywords:    categories.Keywords(line),
		})
	}
	return c.JSON(fiber.Map{
		"categories": views,
		"total":      len(views),
	})
}

// GetRunState reports whether a run is active
func (s *Server) GetRunState(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"running": s.runs.Active()})
}

// StartRun triggers one batch run over the input folder
func (s *Server) StartRun(c *fiber.Ctx) error {
	err := s.runs.Start(s.runCtx, func(outcome *pipeline.Outcome, err error) {
		if err != nil {
			return
		}
		s.logger.Info("Dashboard run finished",
			zap.String("run_id", outcome.Batch.Stats.RunID),
			zap.Int("emails", outcome.Batch.Stats.Total))
	})
	if errors.Is(err, pipeline.ErrRunInProgress) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"running": true})
}

func (s *Server) latestDocument() (*export.Document, string, error) {
	path, err := export.LatestFile(s.opts.OutputDir, s.opts.ExportPrefix, "json")
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	doc, err := export.ReadDocument(f)
	if err != nil {
		return nil, "", err
	}
	return doc, path, nil
}

func documentError(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fiber.NewError(fiber.StatusNotFound, "No results exported yet")
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
