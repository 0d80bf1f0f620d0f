package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/mikey/mail-lens/internal/core"
)

// maxTopCategories is the number of categories listed in a summary
const maxTopCategories = 10

// CategoryCount is how many processed emails ended up in a category
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ConfidenceStats summarizes top-entry confidences of processed emails
type ConfidenceStats struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Summary is the human-facing digest of a run
type Summary struct {
	TotalEmails   int              `json:"total_emails"`
	Successful    int              `json:"successful"`
	Failed        int              `json:"failed"`
	SuccessRate   float64          `json:"success_rate"`
	TopCategories []CategoryCount  `json:"top_categories"`
	Confidence    *ConfidenceStats `json:"confidence,omitempty"`
}

// Generate builds a summary from results. Confidence statistics cover the
// top entry of every processed email and are nil when there is none.
func Generate(results []core.ClassificationResult) Summary {
	s := Summary{TotalEmails: len(results)}
	counts := make(map[string]int)
	var scores []float64

	for i := range results {
		r := &results[i]
		if !r.Processed {
			s.Failed++
			continue
		}
		s.Successful++
		if top, ok := r.TopCategory(); ok {
			counts[top.Category]++
			scores = append(scores, top.Confidence)
		}
	}

	if s.TotalEmails > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.TotalEmails) * 100
	}

	for name, n := range counts {
		s.TopCategories = append(s.TopCategories, CategoryCount{Category: name, Count: n})
	}
	sort.Slice(s.TopCategories, func(i, j int) bool {
		if s.TopCategories[i].Count != s.TopCategories[j].Count {
			return s.TopCategories[i].Count > s.TopCategories[j].Count
		}
		return s.TopCategories[i].Category < s.TopCategories[j].Category
	})
	if len(s.TopCategories) > maxTopCategories {
		s.TopCategories = s.TopCategories[:maxTopCategories]
	}

	if len(scores) > 0 {
		c := &ConfidenceStats{Min: scores[0], Max: scores[0]}
		sum := 0.0
		for _, v := range scores {
			sum += v
			if v < c.Min {
				c.Min = v
			}
			if v > c.Max {
				c.Max = v
			}
		}
		c.Average = sum / float64(len(scores))
		s.Confidence = c
	}

	return s
}

// Print writes the summary as plain text
func Print(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\n=== Classification Summary ===\n")
	fmt.Fprintf(w, "Total emails: %d\n", s.TotalEmails)
	fmt.Fprintf(w, "Processed: %d\n", s.Successful)
	fmt.Fprintf(w, "Failed: %d\n", s.Failed)
	fmt.Fprintf(w, "Success rate: %.1f%%\n", s.SuccessRate)

	if s.Confidence != nil {
		fmt.Fprintf(w, "Confidence: avg %.3f, min %.3f, max %.3f\n",
			s.Confidence.Average, s.Confidence.Min, s.Confidence.Max)
	}

	if len(s.TopCategories) > 0 {
		fmt.Fprintf(w, "Top categories:\n")
		for _, c := range s.TopCategories {
			share := 0.0
			if s.Successful > 0 {
				share = float64(c.Count) / float64(s.Successful) * 100
			}
			fmt.Fprintf(w, "  %-40s %5d (%.1f%%)\n", c.Category, c.Count, share)
		}
	}
}

// PrintRunStats writes the classifier's own run counters
func PrintRunStats(w io.Writer, st *core.RunStats) {
	fmt.Fprintf(w, "\n=== Run %s ===\n", st.RunID)
	fmt.Fprintf(w, "Model: %s\n", st.Model)
	fmt.Fprintf(w, "Emails: %d (classified %d, empty %d, errors %d)\n", st.Total, st.Successful, st.Empty, st.Errors)
	fmt.Fprintf(w, "Reassigned to Other: %d (%.1f%% of classified)\n", st.ReassignedToOther, st.OtherRate())
	if st.Confidence.Count > 0 {
		fmt.Fprintf(w, "Best confidence: min %.3f, mean %.3f, max %.3f\n",
			st.Confidence.Min, st.Confidence.Mean, st.Confidence.Max)
	}
	fmt.Fprintf(w, "Elapsed: %s\n", st.FinishedAt.Sub(st.StartedAt).Round(1e6))
}
