package signals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/fountainscan/internal/catalog"
	"github.com/mbd888/fountainscan/internal/reputation"
	"github.com/mbd888/fountainscan/internal/risk"
)

// Extractor produces Issues for one aspect of a target. snap may be nil, in
// which case content-based extractors return nothing. Extractors must not
// modify their inputs.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, t Target, snap *Snapshot, c *catalog.Catalog) ([]risk.Issue, error)
}

func newIssue(category string, weight int, format string, args ...any) risk.Issue {
	if weight < 0 {
		weight = 0
	}
	return risk.Issue{
		Category:    category,
		Description: fmt.Sprintf(format, args...),
		Weight:      weight,
	}
}

// phraseIssues matches every phrase category against texts, one Issue per
// distinct term. With escalate set, a category whose escalation partner
// also matched uses its escalated weight.
func phraseIssues(c *catalog.Catalog, where string, escalate bool, texts ...catalog.Text) []risk.Issue {
	var out []risk.Issue
	for _, cat := range c.Phrases() {
		terms := cat.Match(texts...)
		if len(terms) == 0 {
			continue
		}
		weight := cat.Weight
		escalated := false
		if escalate && cat.EscalateWith != "" && cat.EscalatedWeight > 0 {
			if len(c.Category(cat.EscalateWith).Match(texts...)) > 0 {
				weight = cat.EscalatedWeight
				escalated = true
			}
		}
		for _, term := range terms {
			if escalated {
				out = append(out, newIssue(cat.Name, weight, "%s term %q in %s alongside %s terms", cat.Name, term, where, cat.EscalateWith))
				continue
			}
			out = append(out, newIssue(cat.Name, weight, "%s term %q in %s", cat.Name, term, where))
		}
	}
	return out
}

// Defaults returns the standard extractor set. A nil probe disables the
// reputation lookup.
func Defaults(probe reputation.Probe, timeout time.Duration, logger *slog.Logger) []Extractor {
	ex := []Extractor{URLStructure{}, ContentKeyword{}, FormField{}, LinkScript{}}
	if probe != nil {
		ex = append(ex, &Reputation{Probe: probe, Timeout: timeout, Logger: logger})
	}
	return ex
}
