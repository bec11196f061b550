package reports

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mbd888/fountainscan/internal/idgen"
	"github.com/mbd888/fountainscan/internal/retry"
	"github.com/mbd888/fountainscan/internal/security"
)

// Forwarder posts reports to an external intake endpoint. It implements
// Submitter.
type Forwarder struct {
	endpoint string
	secret   string
	client   *http.Client
	retry    retry.Policy
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) ForwarderOption {
	return func(f *Forwarder) { f.client = c }
}

// WithSigningSecret signs each payload with HMAC-SHA256 in the
// X-FountainScan-Signature header.
func WithSigningSecret(secret string) ForwarderOption {
	return func(f *Forwarder) { f.secret = secret }
}

// WithRetry sets the attempt budget and initial backoff.
func WithRetry(maxAttempts int, baseDelay time.Duration) ForwarderOption {
	return func(f *Forwarder) {
		f.retry.Attempts = maxAttempts
		f.retry.BaseDelay = baseDelay
	}
}

// NewForwarder validates endpoint against SSRF targets and returns a
// forwarder for it.
func NewForwarder(endpoint string, opts ...ForwarderOption) (*Forwarder, error) {
	if err := security.ValidateEndpointURL(endpoint); err != nil {
		return nil, fmt.Errorf("invalid report endpoint: %w", err)
	}
	return newForwarder(endpoint, opts...), nil
}

func newForwarder(endpoint string, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		retry:    retry.Policy{Attempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Submit posts r. Server errors and 429 are retried; other non-2xx answers
// fail immediately.
func (f *Forwarder) Submit(ctx context.Context, r Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	// One delivery ID per report so the intake can drop retried duplicates.
	deliveryID := idgen.New()
	return f.retry.Do(ctx, func(int) error {
		return f.post(ctx, deliveryID, payload)
	})
}

func (f *Forwarder) post(ctx context.Context, deliveryID string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-FountainScan-Delivery", deliveryID)
	req.Header.Set("X-FountainScan-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	if f.secret != "" {
		req.Header.Set("X-FountainScan-Signature", sign(payload, f.secret))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		err := fmt.Errorf("intake returned status %d", resp.StatusCode)
		if wait, ok := retry.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			return retry.After(err, wait)
		}
		return err
	case resp.StatusCode >= 500:
		return fmt.Errorf("intake returned status %d", resp.StatusCode)
	default:
		return retry.Permanent(fmt.Errorf("intake rejected report: status %d", resp.StatusCode))
	}
}

func sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
