package signals

import (
	"context"

	"github.com/mbd888/fountainscan/internal/catalog"
	"github.com/mbd888/fountainscan/internal/risk"
)

// ContentKeyword matches the phrase categories against the visible page
// text. Script bodies are never part of the text.
type ContentKeyword struct{}

func (ContentKeyword) Name() string { return "content_keyword" }

func (ContentKeyword) Extract(_ context.Context, _ Target, snap *Snapshot, c *catalog.Catalog) ([]risk.Issue, error) {
	if snap == nil || snap.Text == "" {
		return nil, nil
	}
	return phraseIssues(c, "page text", true, catalog.Prepare(snap.Text)), nil
}
