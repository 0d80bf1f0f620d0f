package core

const (
	// DefaultOtherCategory is the exceptional fallback label
	DefaultOtherCategory = "Other"
	// DefaultOtherThreshold is the best-confidence floor below which an email goes to Other
	DefaultOtherThreshold = 0.4
	// DefaultDisplayThreshold marks very low confidence in logs only
	DefaultDisplayThreshold = 0.3
)

// DecisionState is the terminal state of the per-email policy
type DecisionState int

const (
	// StateEmpty means the scorer saw no text
	StateEmpty DecisionState = iota
	// StateAboveOtherThreshold keeps the ranked list unchanged
	StateAboveOtherThreshold
	// StateReassignedToOther relabels the best entry as Other, keeping its confidence
	StateReassignedToOther
	// StateNoCandidates means nothing passed the base filter threshold
	StateNoCandidates
)

func (s DecisionState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAboveOtherThreshold:
		return "above_other_threshold"
	case StateReassignedToOther:
		return "reassigned_to_other"
	case StateNoCandidates:
		return "no_candidates"
	default:
		return "unknown"
	}
}

// Decision is the final category assignment for one email
type Decision struct {
	State      DecisionState
	Categories []ScoredCategory
	Confidence float64
	IsOther    bool
	// Best is the scorer's top entry before any reassignment; only for diagnostics
	Best *ScoredCategory
	// LowConfidence is an annotation and never changes the assignment
	LowConfidence bool
}

// Policy applies the threshold rules on top of the scorer output
type Policy struct {
	OtherCategory    string
	OtherThreshold   float64
	DisplayThreshold float64
	EmptyLabel       string
}

// DefaultPolicy returns the policy with the default constants
func DefaultPolicy() Policy {
	return Policy{
		OtherCategory:    DefaultOtherCategory,
		OtherThreshold:   DefaultOtherThreshold,
		DisplayThreshold: DefaultDisplayThreshold,
		EmptyLabel:       DefaultEmptyLabel,
	}
}

// Decide maps a scorer result to the final assignment
func (p Policy) Decide(res ScoreResult) Decision {
	if res.Empty {
		return Decision{
			State:      StateEmpty,
			Categories: []ScoredCategory{{Category: p.EmptyLabel, Confidence: 0}},
		}
	}

	if len(res.Ranked) == 0 {
		return Decision{
			State:         StateNoCandidates,
			Categories:    []ScoredCategory{{Category: p.OtherCategory, Confidence: 0}},
			IsOther:       true,
			LowConfidence: true,
		}
	}

	best := res.Ranked[0]
	low := best.Confidence < p.DisplayThreshold

	if best.Confidence < p.OtherThreshold {
		return Decision{
			State:         StateReassignedToOther,
			Categories:    []ScoredCategory{{Category: p.OtherCategory, Confidence: best.Confidence}},
			Confidence:    best.Confidence,
			IsOther:       true,
			Best:          &best,
			LowConfidence: low,
		}
	}

	ranked := make([]ScoredCategory, len(res.Ranked))
	copy(ranked, res.Ranked)
	return Decision{
		State:         StateAboveOtherThreshold,
		Categories:    ranked,
		Confidence:    best.Confidence,
		IsOther:       best.Category == p.OtherCategory,
		Best:          &best,
		LowConfidence: low,
	}
}
