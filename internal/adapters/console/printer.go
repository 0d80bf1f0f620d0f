package console

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/utils"
	"go.uber.org/zap"
)

const verbosePreviewLength = 500

// Printer classifies a single email and writes a human-readable report
type Printer struct {
	service *core.ClassifierService
	logger  *zap.Logger
	out     io.Writer
	verbose bool
}

// NewPrinter creates a new console printer
func NewPrinter(service *core.ClassifierService, logger *zap.Logger, out io.Writer, verbose bool) *Printer {
	return &Printer{
		service: service,
		logger:  logger,
		out:     out,
		verbose: verbose,
	}
}

// ProcessEmail classifies an email and displays the ranked categories
func (p *Printer) ProcessEmail(ctx context.Context, email core.EmailRecord, categories *core.CategorySet, opts core.BatchOptions) (*core.ClassificationResult, error) {
	p.logger.Debug("Processing email", zap.String("file", email.Filename))

	fmt.Fprintf(p.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(p.out, "File: %s\n", email.Filename)
	fmt.Fprintf(p.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(p.out, "Body length: %d characters\n", utils.RuneLen(email.Body))

	if p.verbose {
		preview := utils.TruncateRunes(email.Body, verbosePreviewLength)
		if preview != email.Body {
			preview += "..."
		}
		fmt.Fprintf(p.out, "\nBody preview:\n%s\n", preview)
	}

	fmt.Fprintf(p.out, "\n=== Classification ===\n")
	fmt.Fprintf(p.out, "Model: %s\n", p.service.ModelName())
	fmt.Fprintf(p.out, "Categories: %d, threshold: %.2f (effective %.3f)\n",
		categories.Len(), opts.Threshold, core.EffectiveThreshold(opts.Threshold))

	startTime := time.Now()
	result, err := p.service.ClassifyEmail(ctx, email, categories, opts)
	if err != nil {
		p.logger.Error("Failed to classify email", zap.Error(err))
		fmt.Fprintf(p.out, "Error: %v\n", err)
		return nil, err
	}
	duration := time.Since(startTime)

	p.PrintResult(&result)
	fmt.Fprintf(p.out, "Processing time: %v\n", duration.Round(time.Millisecond))

	return &result, nil
}

// PrintResult writes the ranked list of one result
func (p *Printer) PrintResult(result *core.ClassificationResult) {
	fmt.Fprintf(p.out, "\n=== Results ===\n")
	if result.SubjectDecoded != "" {
		fmt.Fprintf(p.out, "Decoded subject: %s\n", result.SubjectDecoded)
	}
	fmt.Fprintf(p.out, "Outcome: %s\n", result.Outcome)
	if result.Error != "" {
		fmt.Fprintf(p.out, "Note: %s\n", result.Error)
	}
	for i, c := range result.Categories {
		fmt.Fprintf(p.out, "%d. %-40s %.4f\n", i+1, c.Category, c.Confidence)
	}
	if result.IsOtherCategory {
		fmt.Fprintf(p.out, "Assigned to the fallback category\n")
	}
}
