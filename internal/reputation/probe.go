// Package reputation answers external domain-reputation questions for the
// scanner. Today that is one question: was the registrable domain
// registered recently?
//
// Probes may be slow or unavailable. Callers go through Check, which bounds
// every call by a timeout and never lets a probe panic escape.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mbd888/fountainscan/internal/metrics"
)

// Probe reports whether a domain was registered recently.
type Probe interface {
	IsRecentlyRegistered(ctx context.Context, domain string) (bool, error)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context, domain string) (bool, error)

// IsRecentlyRegistered calls f.
func (f ProbeFunc) IsRecentlyRegistered(ctx context.Context, domain string) (bool, error) {
	return f(ctx, domain)
}

// Static is a fixed answer table, used when no external lookup is configured.
// Domains not in the table are reported as established.
type Static map[string]bool

// IsRecentlyRegistered looks domain up in the table.
func (s Static) IsRecentlyRegistered(_ context.Context, domain string) (bool, error) {
	return s[strings.ToLower(domain)], nil
}

// ProbeTimeoutError is returned by Check when the probe did not answer in time.
type ProbeTimeoutError struct {
	Domain  string
	Timeout time.Duration
}

func (e *ProbeTimeoutError) Error() string {
	return fmt.Sprintf("reputation probe for %s timed out after %s", e.Domain, e.Timeout)
}

// Check asks p about domain, giving up after timeout. A zero timeout means
// no bound beyond ctx.
func Check(ctx context.Context, p Probe, domain string, timeout time.Duration) (bool, error) {
	if p == nil {
		return false, errors.New("no reputation probe configured")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type answer struct {
		recent bool
		err    error
	}
	ch := make(chan answer, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- answer{err: fmt.Errorf("reputation probe panicked: %v", r)}
			}
		}()
		recent, err := p.IsRecentlyRegistered(ctx, domain)
		ch <- answer{recent: recent, err: err}
	}()

	var a answer
	select {
	case a = <-ch:
	case <-ctx.Done():
		a.err = ctx.Err()
	}

	if a.err != nil && errors.Is(a.err, context.DeadlineExceeded) {
		a.err = &ProbeTimeoutError{Domain: domain, Timeout: timeout}
	}
	metrics.ProbeResults.WithLabelValues(outcome(a.recent, a.err)).Inc()
	if a.err != nil {
		return false, a.err
	}
	return a.recent, nil
}

func outcome(recent bool, err error) string {
	var te *ProbeTimeoutError
	switch {
	case errors.As(err, &te):
		return "timeout"
	case err != nil:
		return "error"
	case recent:
		return "recent"
	default:
		return "established"
	}
}
