// Package risk folds weighted issues into graded fraud-risk verdicts.
//
// A verdict's score is the plain sum of issue weights. The score is mapped to
// a level through three ascending cutoffs with inclusive lower bounds. An
// allow or deny list match replaces the level with an override while keeping
// the issues attached for display.
package risk

import (
	"context"
	"time"
)

// Level is the graded outcome of a scan.
type Level string

const (
	LevelSafe            Level = "SAFE"
	LevelLow             Level = "LOW"
	LevelMedium          Level = "MEDIUM"
	LevelHigh            Level = "HIGH"
	LevelOverrideSafe    Level = "OVERRIDE_SAFE"
	LevelOverrideBlocked Level = "OVERRIDE_BLOCKED"
	LevelError           Level = "ERROR"
)

// Rank orders levels for "at least" comparisons (notification filters and
// metrics). Overrides and ERROR sit outside the heuristic scale.
func (l Level) Rank() int {
	switch l {
	case LevelSafe, LevelOverrideSafe:
		return 0
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh, LevelOverrideBlocked:
		return 3
	default:
		return -1
	}
}

// IsOverride reports whether the level came from a list match.
func (l Level) IsOverride() bool {
	return l == LevelOverrideSafe || l == LevelOverrideBlocked
}

// Default thresholds.
const (
	DefaultLowMin    = 2
	DefaultMediumMin = 5
	DefaultHighMin   = 8
)

// OverrideScore is the score reported for override and error verdicts.
const OverrideScore = -1

// Issue is a single weighted finding produced by one extractor.
type Issue struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Weight      int    `json:"weight"`
}

// Verdict is the aggregated outcome of one scan. Verdicts are shared by
// pointer between the cache and callers and must not be modified.
type Verdict struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	Host       string    `json:"host"`
	RiskScore  int       `json:"riskScore"`
	RiskLevel  Level     `json:"riskLevel"`
	Issues     []Issue   `json:"issues"`
	ComputedAt time.Time `json:"computedAt"`
}

// Store persists verdicts for the audit trail.
type Store interface {
	Record(ctx context.Context, v *Verdict) error
	ListByHost(ctx context.Context, host string, limit int) ([]*Verdict, error)
}
