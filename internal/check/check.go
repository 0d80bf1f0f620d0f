package check

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/mikey/mail-lens/internal/adapters/parser"
	"github.com/mikey/mail-lens/internal/config"
	"go.uber.org/zap"
)

// Status of a single check
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Result is the outcome of one environment check
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Checker verifies that the folders, category file and runtime a run needs are present
type Checker struct {
	paths      config.PathsConfig
	candidates []config.ModelCandidate
	python     string
	logger     *zap.Logger
	lookPath   func(string) (string, error)
}

// NewChecker creates a new environment checker
func NewChecker(cfg *config.Config, logger *zap.Logger) (*Checker, error) {
	embCfg, err := cfg.GetEmbedding()
	if err != nil {
		return nil, err
	}
	return &Checker{
		paths:      cfg.GetPaths(),
		candidates: embCfg.Candidates,
		python:     cfg.GetSBERT().Python,
		logger:     logger,
		lookPath:   exec.LookPath,
	}, nil
}

// Run executes every check in order
func (c *Checker) Run() []Result {
	results := []Result{
		checkDir("input folder", c.paths.InputDir, false),
		checkDir("output folder", c.paths.OutputDir, true),
		c.checkCategories(),
		c.checkInputs(),
	}
	if c.needsPython() {
		results = append(results, c.checkPython())
	}

	for _, r := range results {
		c.logger.Debug("Environment check",
			zap.String("check", r.Name),
			zap.String("status", string(r.Status)),
			zap.String("detail", r.Detail))
	}
	return results
}

// Passed reports whether no check failed
func Passed(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return false
		}
	}
	return true
}

// Print writes the results as a plain list
func Print(w io.Writer, results []Result) {
	fmt.Fprintf(w, "\n=== Environment Check ===\n")
	for _, r := range results {
		fmt.Fprintf(w, "[%-4s] %-20s %s\n", r.Status, r.Name, r.Detail)
	}
}

// checkDir reports whether dir exists. An output folder may be missing since runs create it.
func checkDir(name, dir string, creatable bool) Result {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return Result{Name: name, Status: StatusOK, Detail: dir}
	case err == nil:
		return Result{Name: name, Status: StatusFail, Detail: dir + " is not a folder"}
	case os.IsNotExist(err) && creatable:
		return Result{Name: name, Status: StatusWarn, Detail: dir + " will be created"}
	case os.IsNotExist(err):
		return Result{Name: name, Status: StatusFail, Detail: dir + " does not exist"}
	default:
		return Result{Name: name, Status: StatusFail, Detail: err.Error()}
	}
}

func (c *Checker) checkCategories() Result {
	const name = "categories file"
	info, err := os.Stat(c.paths.CategoriesFile)
	if err != nil {
		return Result{Name: name, Status: StatusFail, Detail: err.Error()}
	}
	if info.IsDir() || info.Size() == 0 {
		return Result{Name: name, Status: StatusFail, Detail: c.paths.CategoriesFile + " is empty"}
	}
	return Result{Name: name, Status: StatusOK, Detail: c.paths.CategoriesFile}
}

func (c *Checker) checkInputs() Result {
	const name = "input emails"
	entries, err := os.ReadDir(c.paths.InputDir)
	if err != nil {
		return Result{Name: name, Status: StatusFail, Detail: err.Error()}
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && parser.IsSupported(e.Name()) {
			count++
		}
	}
	if count == 0 {
		return Result{Name: name, Status: StatusWarn, Detail: "no .eml or .msg files"}
	}
	return Result{Name: name, Status: StatusOK, Detail: fmt.Sprintf("%d files", count)}
}

func (c *Checker) needsPython() bool {
	for _, candidate := range c.candidates {
		if candidate.Provider == "sbert" {
			return true
		}
	}
	return false
}

func (c *Checker) checkPython() Result {
	const name = "python runtime"
	path, err := c.lookPath(c.python)
	if err != nil {
		return Result{Name: name, Status: StatusFail, Detail: fmt.Sprintf("%s not found, required by sbert models", c.python)}
	}
	return Result{Name: name, Status: StatusOK, Detail: path}
}
