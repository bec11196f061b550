package signals

import (
	"context"
	"log/slog"
	"net"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/mbd888/fountainscan/internal/catalog"
	"github.com/mbd888/fountainscan/internal/reputation"
	"github.com/mbd888/fountainscan/internal/risk"
)

// DefaultProbeTimeout bounds a single reputation lookup.
const DefaultProbeTimeout = 3 * time.Second

// Reputation asks an external probe whether the registrable domain of the
// target is newly registered. Probe failures and timeouts yield no Issue.
type Reputation struct {
	Probe   reputation.Probe
	Timeout time.Duration
	Logger  *slog.Logger
}

func (r *Reputation) Name() string { return "reputation" }

func (r *Reputation) Extract(ctx context.Context, t Target, _ *Snapshot, c *catalog.Catalog) ([]risk.Issue, error) {
	if r.Probe == nil || net.ParseIP(t.Host) != nil {
		return nil, nil
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(t.Host)
	if err != nil {
		domain = t.Host
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	recent, err := reputation.Check(ctx, r.Probe, domain, timeout)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Debug("reputation probe gave no answer", "domain", domain, "error", err)
		}
		return nil, nil
	}
	if !recent {
		return nil, nil
	}
	return []risk.Issue{
		newIssue("recently-registered", c.Weights.RecentlyRegistered, "Domain %s was registered recently", domain),
	}, nil
}
