package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mbd888/fountainscan/internal/circuitbreaker"
	"github.com/mbd888/fountainscan/internal/retry"
)

// DefaultMaxAge is the registration age below which a domain counts as recent.
const DefaultMaxAge = 30 * 24 * time.Hour

// DefaultRDAPFallback is the bootstrap redirector used for TLDs with no
// direct endpoint.
const DefaultRDAPFallback = "https://rdap.org/"

// ErrDomainNotFound is returned when the registry has no record of the domain.
var ErrDomainNotFound = errors.New("domain not found in registry")

// ErrNoRegistrationDate is returned when the registry record has no
// registration event.
var ErrNoRegistrationDate = errors.New("registry record has no registration date")

var directRDAPEndpoints = map[string]string{
	"com":    "https://rdap.verisign.com/com/v1/",
	"net":    "https://rdap.verisign.com/net/v1/",
	"org":    "https://rdap.publicinterestregistry.net/rdap/",
	"io":     "https://rdap.nic.io/",
	"dev":    "https://rdap.nic.google/",
	"app":    "https://rdap.nic.google/",
	"uk":     "https://rdap.nominet.uk/uk/",
	"eu":     "https://rdap.eu/",
	"cc":     "https://rdap.verisign.com/cc/v1/",
	"tv":     "https://rdap.verisign.com/tv/v1/",
	"xyz":    "https://rdap.centralnic.com/xyz/",
	"co":     "https://rdap.nic.co/",
	"me":     "https://rdap.nic.me/",
	"info":   "https://rdap.afilias.net/rdap/info/",
	"biz":    "https://rdap.nic.biz/",
	"site":   "https://rdap.centralnic.com/site/",
	"online": "https://rdap.centralnic.com/online/",
	"top":    "https://rdap.nic.top/",
}

// RDAPProbe looks up registration dates over RDAP.
type RDAPProbe struct {
	client    *http.Client
	endpoints map[string]string
	fallback  string
	maxAge    time.Duration
	breaker   *circuitbreaker.Breaker
	retry     retry.Policy
	now       func() time.Time
	logger    *slog.Logger
}

// RDAPOption configures an RDAPProbe.
type RDAPOption func(*RDAPProbe)

// WithHTTPClient sets the HTTP client used for lookups.
func WithHTTPClient(c *http.Client) RDAPOption {
	return func(p *RDAPProbe) { p.client = c }
}

// WithEndpoints replaces the per-TLD endpoint table.
func WithEndpoints(endpoints map[string]string) RDAPOption {
	return func(p *RDAPProbe) { p.endpoints = endpoints }
}

// WithFallback sets the endpoint for TLDs missing from the table.
func WithFallback(url string) RDAPOption {
	return func(p *RDAPProbe) { p.fallback = url }
}

// WithMaxAge sets the age below which a registration is recent.
func WithMaxAge(d time.Duration) RDAPOption {
	return func(p *RDAPProbe) {
		if d > 0 {
			p.maxAge = d
		}
	}
}

// WithBreaker sets the circuit breaker guarding each TLD endpoint.
func WithBreaker(b *circuitbreaker.Breaker) RDAPOption {
	return func(p *RDAPProbe) { p.breaker = b }
}

// WithRetry sets the attempt count and initial backoff for transient failures.
func WithRetry(attempts int, baseDelay time.Duration) RDAPOption {
	return func(p *RDAPProbe) {
		p.retry.Attempts = attempts
		p.retry.BaseDelay = baseDelay
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RDAPOption {
	return func(p *RDAPProbe) { p.now = now }
}

// NewRDAPProbe creates an RDAP-backed probe.
func NewRDAPProbe(logger *slog.Logger, opts ...RDAPOption) *RDAPProbe {
	p := &RDAPProbe{
		client:    &http.Client{Timeout: 5 * time.Second},
		endpoints: directRDAPEndpoints,
		fallback:  DefaultRDAPFallback,
		maxAge:    DefaultMaxAge,
		breaker:   circuitbreaker.New(5, time.Minute),
		retry:     retry.Policy{Attempts: 2, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second},
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// IsRecentlyRegistered fetches the domain's registration date and compares
// it against the configured maximum age.
func (p *RDAPProbe) IsRecentlyRegistered(ctx context.Context, domain string) (bool, error) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	tld := tldOf(domain)
	key := "rdap:" + tld

	var registered time.Time
	err := p.breaker.Do(key, func() error {
		return p.retry.Do(ctx, func(int) error {
			var lerr error
			registered, lerr = p.lookup(ctx, p.endpointFor(tld), domain)
			return lerr
		})
	}, isRegistryAnswer)
	if err != nil {
		p.logger.Debug("rdap lookup failed", "domain", domain, "provider", key, "error", err)
		return false, err
	}
	return p.now().Sub(registered) < p.maxAge, nil
}

// isRegistryAnswer reports errors that are valid answers from a healthy
// endpoint and must not trip the breaker.
func isRegistryAnswer(err error) bool {
	return errors.Is(err, ErrDomainNotFound) || errors.Is(err, ErrNoRegistrationDate)
}

func (p *RDAPProbe) endpointFor(tld string) string {
	if ep, ok := p.endpoints[tld]; ok && ep != "" {
		return ep
	}
	return p.fallback
}

type rdapDomain struct {
	ErrorCode int `json:"errorCode"`
	Events    []struct {
		Action string `json:"eventAction"`
		Date   string `json:"eventDate"`
	} `json:"events"`
}

func (p *RDAPProbe) lookup(ctx context.Context, endpoint, domain string) (time.Time, error) {
	u := fmt.Sprintf("%s/domain/%s", strings.TrimRight(endpoint, "/"), domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return time.Time{}, retry.Permanent(fmt.Errorf("failed to build rdap request: %w", err))
	}
	req.Header.Set("Accept", "application/rdap+json, application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return time.Time{}, retry.Permanent(ctx.Err())
		}
		return time.Time{}, fmt.Errorf("rdap request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read rdap response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return time.Time{}, retry.Permanent(ErrDomainNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		err := fmt.Errorf("rdap endpoint returned HTTP %d", resp.StatusCode)
		if wait, ok := retry.ParseRetryAfter(resp.Header.Get("Retry-After"), p.now()); ok {
			return time.Time{}, retry.After(err, wait)
		}
		return time.Time{}, err
	case resp.StatusCode >= 500:
		return time.Time{}, fmt.Errorf("rdap endpoint returned HTTP %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return time.Time{}, retry.Permanent(fmt.Errorf("rdap endpoint returned HTTP %d", resp.StatusCode))
	}

	var data rdapDomain
	if err := json.Unmarshal(body, &data); err != nil {
		return time.Time{}, retry.Permanent(fmt.Errorf("invalid rdap response: %w", err))
	}
	if data.ErrorCode == http.StatusNotFound {
		return time.Time{}, retry.Permanent(ErrDomainNotFound)
	}
	if data.ErrorCode != 0 {
		return time.Time{}, retry.Permanent(fmt.Errorf("rdap error response %d", data.ErrorCode))
	}

	for _, ev := range data.Events {
		if ev.Action != "registration" {
			continue
		}
		at, err := time.Parse(time.RFC3339, ev.Date)
		if err != nil {
			return time.Time{}, retry.Permanent(fmt.Errorf("invalid registration date %q: %w", ev.Date, err))
		}
		return at, nil
	}
	return time.Time{}, retry.Permanent(ErrNoRegistrationDate)
}

func tldOf(domain string) string {
	if i := strings.LastIndex(domain, "."); i >= 0 {
		return domain[i+1:]
	}
	return domain
}
