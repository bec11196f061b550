package signals

import (
	"context"
	"net/url"
	"strings"

	"github.com/mbd888/fountainscan/internal/catalog"
	"github.com/mbd888/fountainscan/internal/risk"
)

const (
	// SuspiciousLinkThreshold is the number of suspicious-host links a page
	// may carry before it is flagged.
	SuspiciousLinkThreshold = 3
	// ObfuscationMinLength is the inline script length from which
	// dynamic-evaluation constructs count as obfuscation.
	ObfuscationMinLength = 1000
)

var obfuscationMarkers = []string{
	"eval(",
	"unescape(",
	"fromcharcode(",
	"atob(",
	"document.write(unescape",
}

// LinkScript looks at where a page links to, what it loads and how its
// scripts and images are built.
type LinkScript struct{}

func (LinkScript) Name() string { return "link_script" }

func (LinkScript) Extract(_ context.Context, _ Target, snap *Snapshot, c *catalog.Catalog) ([]risk.Issue, error) {
	if snap == nil {
		return nil, nil
	}

	var issues []risk.Issue
	issues = append(issues, linkIssues(snap.Links, c)...)
	issues = append(issues, scriptIssues(snap.Scripts, c)...)
	issues = append(issues, imageIssues(snap.Images, c)...)
	return issues, nil
}

func linkIssues(links []string, c *catalog.Catalog) []risk.Issue {
	var issues []risk.Issue
	download := c.Category(catalog.DownloadExtension)
	seen := make(map[string]bool)
	suspicious := 0

	for _, href := range links {
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
		if host != "" && isSuspiciousHost(host, c) {
			suspicious++
		}

		p := strings.ToLower(u.Path)
		if ext, ok := download.SuffixMatch(p); ok && !seen[u.String()] {
			seen[u.String()] = true
			issues = append(issues, newIssue(download.Name, download.Weight, "Download link to %s file: %s", ext, u.String()))
		}
	}

	if suspicious > SuspiciousLinkThreshold {
		issues = append(issues, newIssue("suspicious-links", c.Weights.SuspiciousLinks, "Page links to %d suspicious hosts", suspicious))
	}
	return issues
}

func isSuspiciousHost(host string, c *catalog.Catalog) bool {
	if _, ok := c.Category(catalog.URLShortener).HostMatch(host); ok {
		return true
	}
	if _, ok := c.Category(catalog.KnownScamHost).HostMatch(host); ok {
		return true
	}
	_, ok := c.Category(catalog.SuspiciousTLD).SuffixMatch(host)
	return ok
}

func scriptIssues(scripts []Script, c *catalog.Catalog) []risk.Issue {
	var issues []risk.Issue
	hostCat := c.Category(catalog.SuspiciousScriptHost)
	obfuscated, badHost := false, false

	for _, s := range scripts {
		if !badHost && s.Src != "" {
			if term, ok := hostCat.Contains(strings.ToLower(s.Src)); ok {
				badHost = true
				issues = append(issues, newIssue(hostCat.Name, hostCat.Weight, "Script loaded from suspicious source (%s)", term))
			}
		}
		if !obfuscated && len(s.Body) > ObfuscationMinLength {
			body := strings.ToLower(s.Body)
			for _, m := range obfuscationMarkers {
				if strings.Contains(body, m) {
					obfuscated = true
					issues = append(issues, newIssue("script-obfuscation", c.Weights.Obfuscation, "Inline script uses %s", strings.TrimSuffix(m, "(")))
					break
				}
			}
		}
	}
	return issues
}

func imageIssues(images []Image, c *catalog.Catalog) []risk.Issue {
	var issues []risk.Issue
	official := c.Category(catalog.OfficialImagery)
	deceptive := c.Category(catalog.DeceptiveImagery)
	seenOfficial, seenDeceptive := false, false

	for _, img := range images {
		if !seenOfficial && img.Alt != "" {
			if terms := official.Match(catalog.Prepare(img.Alt)); len(terms) > 0 {
				seenOfficial = true
				issues = append(issues, newIssue(official.Name, official.Weight, "Image presented as %s imagery", terms[0]))
			}
		}
		if !seenDeceptive && img.Src != "" {
			if term, ok := deceptive.Contains(strings.ToLower(img.Src)); ok {
				seenDeceptive = true
				issues = append(issues, newIssue(deceptive.Name, deceptive.Weight, "Image source mentions %q", term))
			}
		}
	}
	return issues
}
