// Package scanner is the risk scoring engine: it checks the scan cache,
// resolves allow/deny overrides, runs the signal extractors, aggregates
// their Issues into a Verdict and stores the result.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mbd888/fountainscan/internal/catalog"
	"github.com/mbd888/fountainscan/internal/lists"
	"github.com/mbd888/fountainscan/internal/metrics"
	"github.com/mbd888/fountainscan/internal/reputation"
	"github.com/mbd888/fountainscan/internal/risk"
	"github.com/mbd888/fountainscan/internal/scancache"
	"github.com/mbd888/fountainscan/internal/signals"
	"github.com/mbd888/fountainscan/internal/traces"
)

var (
	// ErrUnscannable is returned by ShouldScan for browser-internal and
	// inline URLs.
	ErrUnscannable = errors.New("target cannot be scanned")
	// ErrRealTimeDisabled is returned by ShouldScan for navigation scans
	// while real-time scanning is off.
	ErrRealTimeDisabled = errors.New("real-time scanning is disabled")
	// ErrAutoUpdateDisabled is returned by ReplaceList while feed updates are off.
	ErrAutoUpdateDisabled = errors.New("automatic list updates are disabled")
)

// SourceNavigation tags scans triggered by page navigation rather than by a
// user asking for one.
const SourceNavigation = "navigation"

var unscannablePrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"moz-extension://",
	"edge://",
	"about:",
	"file:",
	"data:",
	"javascript:",
}

// Notifier receives scan and list events for real-time delivery.
type Notifier interface {
	NotifyVerdict(v *risk.Verdict, d risk.Decision)
	NotifyListsChanged(tag lists.Tag, op, pattern string)
}

// Result is a verdict together with how it was obtained.
type Result struct {
	Verdict  *risk.Verdict
	Decision risk.Decision
	Cached   bool
}

// Engine scores targets. It is safe for concurrent use.
type Engine struct {
	catalogs *catalog.Holder
	registry *lists.Registry
	store    lists.Store
	cache    *scancache.Cache
	audit    risk.Store
	notifier Notifier
	probe    reputation.Probe
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	settings   Settings
	extractors []signals.Extractor
	fixed      bool

	inflight singleflight.Group
	pending  sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog sets the initial catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Engine) { e.catalogs = catalog.NewHolder(c) }
}

// WithListStore sets where list entries are persisted.
func WithListStore(s lists.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithAuditStore records every computed verdict.
func WithAuditStore(s risk.Store) Option {
	return func(e *Engine) { e.audit = s }
}

// WithNotifier delivers verdict and list events.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithProbe enables the reputation extractor.
func WithProbe(p reputation.Probe) Option {
	return func(e *Engine) { e.probe = p }
}

// WithExtractors replaces the standard extractor set.
func WithExtractors(ex ...signals.Extractor) Option {
	return func(e *Engine) {
		e.extractors = ex
		e.fixed = true
	}
}

// WithClock overrides the time source for verdicts and the cache.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine and loads the persisted lists.
func New(ctx context.Context, settings Settings, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		registry: lists.NewRegistry(nil),
		logger:   logger,
		now:      time.Now,
		settings: settings,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.catalogs == nil {
		e.catalogs = catalog.NewHolder(nil)
	}
	if e.store == nil {
		e.store = lists.NewMemoryStore()
	}
	e.cache = scancache.New(settings.Freshness, settings.Expiry)
	e.cache.SetClock(e.now)
	if !e.fixed {
		e.extractors = signals.Defaults(e.probe, settings.ProbeTimeout, logger)
	}

	if err := e.ReloadLists(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Cache exposes the scan cache, e.g. for a sweeper.
func (e *Engine) Cache() *scancache.Cache {
	return e.cache
}

// Catalog returns the catalog used by new scans.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalogs.Load()
}

// Settings returns the current settings.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// Lists returns sorted copies of the allow and deny lists.
func (e *Engine) Lists() (allow, deny []string) {
	return e.registry.Patterns()
}

// Resolve reports the list override for a hostname or URL.
func (e *Engine) Resolve(hostOrURL string) (lists.Resolution, string) {
	return e.registry.Resolve(hostOrURL)
}

// ShouldScan reports whether a scan request from source should run.
func (e *Engine) ShouldScan(rawURL, source string) error {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	for _, p := range unscannablePrefixes {
		if strings.HasPrefix(lower, p) {
			return ErrUnscannable
		}
	}
	if source == SourceNavigation && !e.Settings().RealTimeScanning {
		return ErrRealTimeDisabled
	}
	return nil
}

// Scan scores rawURL, using snap for content-based signals when non-nil.
// It never fails: malformed targets and internal errors yield an ERROR verdict.
func (e *Engine) Scan(ctx context.Context, rawURL string, snap *signals.Snapshot) *risk.Verdict {
	return e.ScanDetailed(ctx, rawURL, snap).Verdict
}

// ScanDetailed is Scan that also reports cache use and the decision.
func (e *Engine) ScanDetailed(ctx context.Context, rawURL string, snap *signals.Snapshot) Result {
	ctx, span := traces.StartSpan(ctx, "scanner.Scan")
	defer span.End()

	policy := e.Settings().Policy()

	t, err := signals.ParseTarget(rawURL)
	if err != nil {
		e.logger.Debug("scan rejected", "url", rawURL, "error", err)
		v := risk.ErrorVerdict(e.now())
		v.Target = strings.TrimSpace(rawURL)
		metrics.ScansTotal.WithLabelValues(string(v.RiskLevel)).Inc()
		span.SetAttributes(traces.Level(string(v.RiskLevel)))
		return Result{Verdict: v, Decision: policy.Decide(v)}
	}
	span.SetAttributes(traces.Host(t.Host))

	hasContent := snap != nil
	if v, st, withContent := e.cache.Lookup(t.Key); st == scancache.Fresh && (withContent || !hasContent) {
		span.SetAttributes(traces.Cached(st.String()), traces.Level(string(v.RiskLevel)))
		return Result{Verdict: v, Decision: policy.Decide(v), Cached: true}
	}

	key := t.Key
	if hasContent {
		key += "#content"
	}
	res, _, _ := e.inflight.Do(key, func() (interface{}, error) {
		return e.compute(context.WithoutCancel(ctx), t, snap), nil
	})
	v := res.(*risk.Verdict)
	span.SetAttributes(traces.Cached(scancache.Miss.String()), traces.Level(string(v.RiskLevel)), traces.Score(v.RiskScore))
	return Result{Verdict: v, Decision: policy.Decide(v)}
}

func (e *Engine) compute(ctx context.Context, t signals.Target, snap *signals.Snapshot) *risk.Verdict {
	start := time.Now()
	gen := e.cache.Generation()
	cat := e.catalogs.Load()

	e.mu.RLock()
	settings := e.settings
	extractors := e.extractors
	e.mu.RUnlock()

	resolution, pattern := e.registry.Resolve(t.Host)

	var issues []risk.Issue
	ran := 0
	for _, ex := range extractors {
		found, err := runExtractor(ctx, ex, t, snap, cat)
		if err != nil {
			metrics.ExtractorFailuresTotal.WithLabelValues(ex.Name()).Inc()
			e.logger.Warn("extractor failed", "extractor", ex.Name(), "host", t.Host, "error", err)
			continue
		}
		ran++
		issues = append(issues, found...)
	}

	var v *risk.Verdict
	if ran == 0 {
		v = risk.ErrorVerdict(e.now())
	} else {
		v = risk.Aggregate(issues, resolution, settings.Thresholds, e.now())
	}
	v.Target = t.Raw
	v.Host = t.Host

	if v.RiskLevel != risk.LevelError && !e.cache.PutIfGeneration(t.Key, v, snap != nil, gen) {
		e.logger.Debug("verdict not cached, lists changed during scan", "host", t.Host)
	}

	metrics.ScansTotal.WithLabelValues(string(v.RiskLevel)).Inc()
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	e.logger.Debug("scan completed",
		"host", t.Host,
		"level", v.RiskLevel,
		"score", v.RiskScore,
		"issues", len(v.Issues),
		"override", pattern,
		"with_content", snap != nil,
	)

	e.record(v)
	if e.notifier != nil {
		if d := settings.Policy().Decide(v); d != risk.DecisionAllow {
			e.notifier.NotifyVerdict(v, d)
		}
	}
	return v
}

func runExtractor(ctx context.Context, ex signals.Extractor, t signals.Target, snap *signals.Snapshot, cat *catalog.Catalog) (issues []risk.Issue, err error) {
	defer func() {
		if r := recover(); r != nil {
			issues, err = nil, fmt.Errorf("extractor %s panicked: %v", ex.Name(), r)
		}
	}()
	return ex.Extract(ctx, t, snap, cat)
}

func (e *Engine) record(v *risk.Verdict) {
	if e.audit == nil {
		return
	}
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.audit.Record(ctx, v); err != nil {
			e.logger.Warn("failed to record verdict", "host", v.Host, "error", err)
		}
	}()
}

// History returns recorded verdicts for host, most recent first.
func (e *Engine) History(ctx context.Context, host string, limit int) ([]*risk.Verdict, error) {
	if e.audit == nil {
		return []*risk.Verdict{}, nil
	}
	return e.audit.ListByHost(ctx, strings.ToLower(host), limit)
}

// Close waits for pending audit writes.
func (e *Engine) Close() {
	e.pending.Wait()
}

func (e *Engine) invalidateAll() {
	e.cache.InvalidateAll()
}

// AddEntry validates pattern and adds it to the tagged list. All cached
// verdicts are dropped because any of them may now resolve differently.
func (e *Engine) AddEntry(ctx context.Context, tag lists.Tag, pattern string) error {
	tag, err := lists.ParseTag(string(tag))
	if err != nil {
		return err
	}
	canon, err := lists.Canonical(pattern)
	if err != nil {
		return err
	}
	if err := e.store.Add(ctx, lists.Entry{Tag: tag, Pattern: canon, CreatedAt: e.now()}); err != nil {
		return fmt.Errorf("failed to persist list entry: %w", err)
	}
	e.registry.Add(tag, canon)
	e.invalidateAll()

	metrics.ListMutationsTotal.WithLabelValues(string(tag), "add").Inc()
	e.logger.Info("list entry added", "tag", tag, "pattern", canon)
	if e.notifier != nil {
		e.notifier.NotifyListsChanged(tag, "add", canon)
	}
	return nil
}

// RemoveEntry removes pattern from the tagged list. A pattern that is not
// on the list yields *lists.NotFoundError and leaves the cache alone.
func (e *Engine) RemoveEntry(ctx context.Context, tag lists.Tag, pattern string) error {
	tag, err := lists.ParseTag(string(tag))
	if err != nil {
		return err
	}
	canon, err := lists.Canonical(pattern)
	if err != nil {
		return &lists.NotFoundError{Tag: tag, Pattern: pattern}
	}
	if err := e.store.Remove(ctx, tag, canon); err != nil {
		var nf *lists.NotFoundError
		if errors.As(err, &nf) {
			return err
		}
		return fmt.Errorf("failed to remove list entry: %w", err)
	}
	e.registry.Remove(tag, canon)
	e.invalidateAll()

	metrics.ListMutationsTotal.WithLabelValues(string(tag), "remove").Inc()
	e.logger.Info("list entry removed", "tag", tag, "pattern", canon)
	if e.notifier != nil {
		e.notifier.NotifyListsChanged(tag, "remove", canon)
	}
	return nil
}

// ReplaceResult summarizes a list feed swap.
type ReplaceResult struct {
	Accepted int      `json:"accepted"`
	Rejected []string `json:"rejected"`
}

// ReplaceList swaps the whole tagged list for patterns, typically from a
// remote feed. Invalid patterns are skipped and reported.
func (e *Engine) ReplaceList(ctx context.Context, tag lists.Tag, patterns []string) (ReplaceResult, error) {
	tag, err := lists.ParseTag(string(tag))
	if err != nil {
		return ReplaceResult{}, err
	}
	if !e.Settings().AutoUpdate {
		return ReplaceResult{}, ErrAutoUpdateDisabled
	}

	res := ReplaceResult{Rejected: []string{}}
	seen := make(map[string]bool, len(patterns))
	canon := make([]string, 0, len(patterns))
	for _, p := range patterns {
		c, err := lists.Canonical(p)
		if err != nil {
			res.Rejected = append(res.Rejected, p)
			continue
		}
		if !seen[c] {
			seen[c] = true
			canon = append(canon, c)
		}
	}

	if err := e.store.Replace(ctx, tag, canon); err != nil {
		return ReplaceResult{}, fmt.Errorf("failed to replace %s list: %w", tag, err)
	}
	e.registry.Replace(tag, canon)
	e.invalidateAll()
	res.Accepted = len(canon)

	metrics.ListMutationsTotal.WithLabelValues(string(tag), "replace").Inc()
	e.logger.Info("list replaced", "tag", tag, "accepted", res.Accepted, "rejected", len(res.Rejected))
	if e.notifier != nil {
		e.notifier.NotifyListsChanged(tag, "replace", "")
	}
	return res, nil
}

// ReloadLists reloads both lists from the store, e.g. after another process
// changed them.
func (e *Engine) ReloadLists(ctx context.Context) error {
	entries, err := e.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load lists: %w", err)
	}
	e.registry.Load(entries)
	e.invalidateAll()
	return nil
}

// UpdateSettings installs s. Cached verdicts are dropped when the
// thresholds change.
func (e *Engine) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	prev := e.settings
	e.settings = s
	if !e.fixed && prev.ProbeTimeout != s.ProbeTimeout {
		e.extractors = signals.Defaults(e.probe, s.ProbeTimeout, e.logger)
	}
	e.mu.Unlock()

	e.cache.SetWindows(s.Freshness, s.Expiry)
	if prev.Thresholds != s.Thresholds {
		e.invalidateAll()
	}
	e.logger.Info("settings updated",
		"low_min", s.Thresholds.LowMin,
		"medium_min", s.Thresholds.MediumMin,
		"high_min", s.Thresholds.HighMin,
		"alerts", s.AlertsEnabled,
		"blocking", s.BlockingEnabled,
	)
	return nil
}

// SwapCatalog installs a new catalog for subsequent scans.
func (e *Engine) SwapCatalog(c *catalog.Catalog) {
	if c == nil {
		return
	}
	prev := e.catalogs.Swap(c)
	e.invalidateAll()
	e.logger.Info("catalog swapped", "from", prev.Version, "to", c.Version)
}
