// Package retry re-runs outbound calls (RDAP lookups, report forwarding)
// that failed for transient reasons.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	Attempts  int           // total calls; values below 1 mean one call
	BaseDelay time.Duration // wait before the second call, doubled after each retry
	MaxDelay  time.Duration // cap on any single wait; zero means no cap
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as an answer that another attempt would not change,
// such as a 4xx status or an unknown domain.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

type waitError struct {
	err  error
	wait time.Duration
}

func (e *waitError) Error() string { return e.err.Error() }
func (e *waitError) Unwrap() error { return e.err }

// After marks err as transient and asks for at least wait before the next
// attempt, typically from a Retry-After header.
func After(err error, wait time.Duration) error {
	if err == nil {
		return nil
	}
	return &waitError{err: err, wait: wait}
}

// Do calls fn until it succeeds, returns a Permanent error, the attempts run
// out, or ctx ends. fn receives the 1-based attempt number. The returned
// error is the last one fn produced, without the Permanent or After marker.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cancelled(cerr, err)
		}

		err = fn(attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return unwrapMarkers(err)
		}
		if attempt == attempts {
			break
		}

		wait := jitter(delay)
		var we *waitError
		if errors.As(err, &we) && we.wait > wait {
			wait = we.wait
		}
		if p.MaxDelay > 0 && wait > p.MaxDelay {
			wait = p.MaxDelay
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return cancelled(ctx.Err(), err)
		case <-t.C:
		}
		delay *= 2
	}
	return unwrapMarkers(err)
}

// jitter spreads d by +-25%.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := int64(d / 4)
	return d - time.Duration(spread) + time.Duration(rand.Int64N(2*spread+1))
}

// cancelled reports the context error, keeping the last failure for logs.
func cancelled(ctxErr, last error) error {
	if last == nil {
		return ctxErr
	}
	return fmt.Errorf("%w (last error: %v)", ctxErr, unwrapMarkers(last))
}

func unwrapMarkers(err error) error {
	for {
		switch e := err.(type) {
		case *permanentError:
			err = e.err
		case *waitError:
			err = e.err
		default:
			return err
		}
	}
}

// ParseRetryAfter reads a Retry-After header value, either delay seconds or
// an HTTP date.
func ParseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}
