package risk

import (
	"fmt"
	"time"

	"github.com/mbd888/fountainscan/internal/idgen"
	"github.com/mbd888/fountainscan/internal/lists"
)

// Thresholds are the inclusive lower bounds of LOW, MEDIUM and HIGH.
type Thresholds struct {
	LowMin    int `json:"lowMin"`
	MediumMin int `json:"mediumMin"`
	HighMin   int `json:"highMin"`
}

// DefaultThresholds returns the stock cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowMin:    DefaultLowMin,
		MediumMin: DefaultMediumMin,
		HighMin:   DefaultHighMin,
	}
}

// Validate requires strictly ascending, positive cutoffs.
func (t Thresholds) Validate() error {
	if t.LowMin <= 0 {
		return fmt.Errorf("lowMin must be positive, got %d", t.LowMin)
	}
	if t.MediumMin <= t.LowMin {
		return fmt.Errorf("mediumMin (%d) must be greater than lowMin (%d)", t.MediumMin, t.LowMin)
	}
	if t.HighMin <= t.MediumMin {
		return fmt.Errorf("highMin (%d) must be greater than mediumMin (%d)", t.HighMin, t.MediumMin)
	}
	return nil
}

// Classify maps a score onto SAFE, LOW, MEDIUM or HIGH.
func (t Thresholds) Classify(score int) Level {
	switch {
	case score >= t.HighMin:
		return LevelHigh
	case score >= t.MediumMin:
		return LevelMedium
	case score >= t.LowMin:
		return LevelLow
	default:
		return LevelSafe
	}
}

// Score sums issue weights. Negative weights are treated as zero.
func Score(issues []Issue) int {
	total := 0
	for _, is := range issues {
		if is.Weight > 0 {
			total += is.Weight
		}
	}
	return total
}

// Aggregate folds issues into a verdict. A list resolution other than NONE
// decides the level on its own; the issues stay attached for display.
func Aggregate(issues []Issue, res lists.Resolution, t Thresholds, now time.Time) *Verdict {
	v := &Verdict{
		ID:         idgen.WithPrefix("vrd_"),
		Issues:     clampIssues(issues),
		ComputedAt: now,
	}

	switch res {
	case lists.ResolutionAllow:
		v.RiskScore = OverrideScore
		v.RiskLevel = LevelOverrideSafe
	case lists.ResolutionDeny:
		v.RiskScore = OverrideScore
		v.RiskLevel = LevelOverrideBlocked
	default:
		v.RiskScore = Score(v.Issues)
		v.RiskLevel = t.Classify(v.RiskScore)
	}
	return v
}

// ErrorVerdict is returned when a target could not be assessed at all.
func ErrorVerdict(now time.Time) *Verdict {
	return &Verdict{
		ID:         idgen.WithPrefix("vrd_"),
		RiskScore:  OverrideScore,
		RiskLevel:  LevelError,
		Issues:     []Issue{},
		ComputedAt: now,
	}
}

func clampIssues(issues []Issue) []Issue {
	out := make([]Issue, len(issues))
	for i, is := range issues {
		if is.Weight < 0 {
			is.Weight = 0
		}
		out[i] = is
	}
	return out
}
