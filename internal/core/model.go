package core

import (
	"time"
)

// EmailRecord represents one parsed email handed to the classifier
type EmailRecord struct {
	Filename string
	Subject  string // raw header value, possibly RFC 2047 encoded
	Body     string
}

// Embedding is a fixed-length vector produced by an embedding model
type Embedding []float32

// ScoredCategory pairs a category name with a confidence in [0, 1]
type ScoredCategory struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Outcome tags how a single email left the classifier
type Outcome string

const (
	// OutcomeClassified means the email was scored and a category was assigned
	OutcomeClassified Outcome = "classified"
	// OutcomeEmpty means the email had no usable text
	OutcomeEmpty Outcome = "empty"
	// OutcomeFailed means classification raised an error for this email
	OutcomeFailed Outcome = "failed"
)

// ClassificationResult represents the result of classifying one email.
// Categories is never empty: empty and failed emails carry a placeholder entry.
type ClassificationResult struct {
	Filename        string           `json:"filename"`
	Subject         string           `json:"subject"`
	SubjectDecoded  string           `json:"subject_decoded"`
	BodyPreview     string           `json:"body_preview"`
	Outcome         Outcome          `json:"outcome"`
	Processed       bool             `json:"processed"`
	Categories      []ScoredCategory `json:"categories"`
	Confidence      float64          `json:"confidence"`
	IsOtherCategory bool             `json:"is_other_category"`
	Error           string           `json:"error,omitempty"`
}

// TopCategory returns the first ranked entry, or false when there is none
func (r *ClassificationResult) TopCategory() (ScoredCategory, bool) {
	if len(r.Categories) == 0 {
		return ScoredCategory{}, false
	}
	return r.Categories[0], true
}

// ConfidenceSummary describes the spread of best-category confidences in a run
type ConfidenceSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
}

// RunStats aggregates counters for one batch run
type RunStats struct {
	RunID             string            `json:"run_id"`
	Model             string            `json:"model"`
	Total             int               `json:"total"`
	Successful        int               `json:"successful"`
	Errors            int               `json:"errors"`
	Empty             int               `json:"empty"`
	ReassignedToOther int               `json:"reassigned_to_other"`
	Confidence        ConfidenceSummary `json:"confidence"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        time.Time         `json:"finished_at"`
}

// SuccessRate returns the share of emails classified without error, in percent
func (s *RunStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Total) * 100
}

// OtherRate returns the share of successful emails routed to the Other category, in percent
func (s *RunStats) OtherRate() float64 {
	if s.Successful == 0 {
		return 0
	}
	return float64(s.ReassignedToOther) / float64(s.Successful) * 100
}

// BatchResult bundles the per-email results of a run with its statistics
type BatchResult struct {
	Results []ClassificationResult `json:"results"`
	Stats   RunStats               `json:"stats"`
}

// CacheEntry is a cached embedding vector for one model and input text
type CacheEntry struct {
	Key       string
	Model     string
	Vector    Embedding
	CreatedAt time.Time
	ExpiresAt time.Time
}
