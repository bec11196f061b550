// Package reports takes user reports of suspicious sites, stores them with
// the verdict the engine had for the site at the time, and optionally
// forwards them to an external intake endpoint.
package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mbd888/fountainscan/internal/idgen"
	"github.com/mbd888/fountainscan/internal/metrics"
	"github.com/mbd888/fountainscan/internal/pagination"
	"github.com/mbd888/fountainscan/internal/risk"
	"github.com/mbd888/fountainscan/internal/signals"
	"github.com/mbd888/fountainscan/internal/validation"
)

var (
	ErrMissingURL    = errors.New("url is required")
	ErrMissingReason = errors.New("reason is required")
	ErrInvalidURL    = errors.New("url must be an absolute http or https URL")
	ErrNotFound      = errors.New("report not found")
)

// MaxReasonLength bounds the stored reason text.
const MaxReasonLength = 2000

// Report is one user report of a suspicious site.
type Report struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	Host      string     `json:"host"`
	Reason    string     `json:"reason"`
	RiskLevel risk.Level `json:"riskLevel,omitempty"`
	RiskScore int        `json:"riskScore"`
	Forwarded bool       `json:"forwarded"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Store persists reports.
type Store interface {
	Create(ctx context.Context, r *Report) error
	// List returns up to limit reports older than after, newest first.
	List(ctx context.Context, limit int, after *pagination.Cursor) ([]*Report, error)
	MarkForwarded(ctx context.Context, id string) error
}

// Submitter delivers a report to an external intake.
type Submitter interface {
	Submit(ctx context.Context, r Report) error
}

// Scanner supplies the verdict attached to a report.
type Scanner interface {
	Scan(ctx context.Context, rawURL string, snap *signals.Snapshot) *risk.Verdict
}

// Service accepts and lists reports.
type Service struct {
	store     Store
	scanner   Scanner
	submitter Submitter
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a report service. scanner and submitter may be nil.
func NewService(store Store, scanner Scanner, submitter Submitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		scanner:   scanner,
		submitter: submitter,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit validates and stores a report, then forwards it when a submitter
// is configured. A forwarding failure is logged; the report stays stored
// with Forwarded false.
func (s *Service) Submit(ctx context.Context, rawURL, reason string) (*Report, error) {
	rawURL = strings.TrimSpace(rawURL)
	reason = validation.SanitizeString(reason, MaxReasonLength)
	switch {
	case rawURL == "":
		return nil, ErrMissingURL
	case reason == "":
		return nil, ErrMissingReason
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, ErrInvalidURL
	}

	r := &Report{
		ID:        idgen.WithPrefix("rpt_"),
		URL:       rawURL,
		Host:      strings.ToLower(u.Hostname()),
		Reason:    reason,
		CreatedAt: s.now().UTC(),
	}
	if s.scanner != nil {
		if v := s.scanner.Scan(ctx, rawURL, nil); v != nil {
			r.RiskLevel = v.RiskLevel
			r.RiskScore = v.RiskScore
			if v.Host != "" {
				r.Host = v.Host
			}
		}
	}

	if err := s.store.Create(ctx, r); err != nil {
		metrics.ReportsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to store report: %w", err)
	}
	metrics.ReportsTotal.WithLabelValues("stored").Inc()
	s.logger.Info("site reported", "id", r.ID, "host", r.Host, "level", r.RiskLevel)

	if s.submitter == nil {
		return r, nil
	}
	if err := s.submitter.Submit(ctx, *r); err != nil {
		metrics.ReportsTotal.WithLabelValues("forward_failed").Inc()
		s.logger.Warn("failed to forward report", "id", r.ID, "error", err)
		return r, nil
	}
	if err := s.store.MarkForwarded(ctx, r.ID); err != nil {
		s.logger.Warn("failed to mark report forwarded", "id", r.ID, "error", err)
	}
	r.Forwarded = true
	metrics.ReportsTotal.WithLabelValues("forwarded").Inc()
	return r, nil
}

// List returns a page of reports, newest first, and the cursor of the next
// page ("" when there is none).
func (s *Service) List(ctx context.Context, limit int, cursor string) ([]*Report, string, error) {
	after, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", err
	}
	items, err := s.store.List(ctx, limit+1, after)
	if err != nil {
		return nil, "", err
	}
	page, next, _ := pagination.ComputePage(items, limit, func(r *Report) (time.Time, string) {
		return r.CreatedAt, r.ID
	})
	if page == nil {
		page = []*Report{}
	}
	return page, next, nil
}
