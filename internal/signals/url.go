package signals

import (
	"context"
	"strings"

	"github.com/mbd888/fountainscan/internal/catalog"
	"github.com/mbd888/fountainscan/internal/risk"
)

// MaxHostLabels is the label count above which a host has excessive subdomains.
const MaxHostLabels = 4

var standardPorts = map[int]bool{80: true, 443: true, 8080: true, 8443: true}

// URLStructure inspects the URL itself: transport, host shape and wording.
type URLStructure struct{}

func (URLStructure) Name() string { return "url_structure" }

func (URLStructure) Extract(_ context.Context, t Target, _ *Snapshot, c *catalog.Catalog) ([]risk.Issue, error) {
	var issues []risk.Issue

	if t.Scheme != "https" {
		cat := c.Category(catalog.InsecureTransport)
		issues = append(issues, newIssue(cat.Name, cat.Weight, "Connection is not encrypted (%s instead of https)", t.Scheme))
	}

	if cat := c.Category(catalog.SuspiciousTLD); cat.Weight > 0 {
		if tld, ok := cat.SuffixMatch(t.Host); ok {
			issues = append(issues, newIssue(cat.Name, cat.Weight, "Suspicious domain extension %s", tld))
		}
	}
	if cat := c.Category(catalog.URLShortener); cat.Weight > 0 {
		if s, ok := cat.HostMatch(t.Host); ok {
			issues = append(issues, newIssue(cat.Name, cat.Weight, "URL shortener %s hides the destination", s))
		}
	}
	if cat := c.Category(catalog.KnownScamHost); cat.Weight > 0 {
		if s, ok := cat.HostMatch(t.Host); ok {
			issues = append(issues, newIssue(cat.Name, cat.Weight, "Host %s is a known scam site", s))
		}
	}

	labels := t.Labels()
	if len(labels) > MaxHostLabels {
		issues = append(issues, newIssue("excessive-subdomains", c.Weights.ExcessiveSubdomains, "Host has %d labels", len(labels)))
	}
	if t.Port != 0 && !standardPorts[t.Port] {
		issues = append(issues, newIssue("non-standard-port", c.Weights.NonStandardPort, "Non-standard port %d", t.Port))
	}
	for _, l := range labels {
		if strings.HasPrefix(l, "xn--") {
			issues = append(issues, newIssue("punycode-host", c.Weights.Punycode, "Host uses punycode label %s (possible homograph)", l))
			break
		}
	}

	issues = append(issues, phraseIssues(c, "URL", false, catalog.Prepare(t.Raw), catalog.Prepare(t.Host))...)
	return issues, nil
}
