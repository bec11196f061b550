package signals

import (
	"context"

	"github.com/mbd888/fountainscan/internal/catalog"
	"github.com/mbd888/fountainscan/internal/risk"
)

// SensitiveFormMinInputs is the number of sensitive inputs in one form above
// which the form as a whole is flagged.
const SensitiveFormMinInputs = 2

// FormField flags form inputs that ask for sensitive personal or financial data.
type FormField struct{}

func (FormField) Name() string { return "form_field" }

func (FormField) Extract(_ context.Context, _ Target, snap *Snapshot, c *catalog.Catalog) ([]risk.Issue, error) {
	if snap == nil || len(snap.Forms) == 0 {
		return nil, nil
	}

	sensitive := c.Category(catalog.SensitiveDataRequest)
	financial := c.Category(catalog.FinancialInstrument)

	var issues []risk.Issue
	seenTerm := make(map[string]bool)
	seenFinancial := make(map[string]bool)

	for i, form := range snap.Forms {
		flagged := 0
		for _, in := range form.Inputs {
			label := catalog.Prepare(in.Label())

			terms := sensitive.Match(label)
			if len(terms) > 0 {
				flagged++
			}
			for _, term := range terms {
				if seenTerm[term] {
					continue
				}
				seenTerm[term] = true
				issues = append(issues, newIssue(sensitive.Name, sensitive.Weight, "Form field requests %s", term))
			}

			// Escalation only applies to inputs already flagged as sensitive.
			if len(terms) == 0 {
				continue
			}
			first := ""
			for _, f := range financial.Match(label) {
				if !seenFinancial[f] {
					seenFinancial[f] = true
					if first == "" {
						first = f
					}
				}
			}
			if first != "" {
				issues = append(issues, newIssue(financial.Name, financial.Weight, "Form requests financial information (%s)", first))
			}
		}

		if flagged > SensitiveFormMinInputs {
			issues = append(issues, newIssue("sensitive-form", c.Weights.SensitiveForm, "Form %d asks for %d sensitive fields", i+1, flagged))
		}
	}
	return issues, nil
}
