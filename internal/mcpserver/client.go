package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mbd888/fountainscan/internal/lists"
	"github.com/mbd888/fountainscan/internal/ratelimit"
	"github.com/mbd888/fountainscan/internal/reports"
	"github.com/mbd888/fountainscan/internal/risk"
	"github.com/mbd888/fountainscan/internal/security"
)

// Config holds the configuration for connecting to a FountainScan API.
type Config struct {
	APIURL      string // Base URL, e.g. "http://localhost:8080"
	AdminSecret string // optional; sent on every request when set
	ClientID    string // rate-limit bucket, defaults to "mcp"
}

// Client is a thin HTTP client for the FountainScan API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(cfg Config) *Client {
	if cfg.ClientID == "" {
		cfg.ClientID = "mcp"
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ScanResult is the body of a POST /v1/scan response.
type ScanResult struct {
	Verdict  *risk.Verdict `json:"verdict"`
	Decision risk.Decision `json:"decision"`
	Cached   bool          `json:"cached"`
	Skipped  bool          `json:"skipped"`
	Reason   string        `json:"reason"`
}

// Lists is the body of a GET /v1/lists response.
type Lists struct {
	Allow []string `json:"allow"`
	Deny  []string `json:"deny"`
}

// doRequest makes an HTTP request and decodes a JSON response into out.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set(ratelimit.ExtensionIDHeader, c.cfg.ClientID)
	if c.cfg.AdminSecret != "" {
		req.Header.Set(security.AdminSecretHeader, c.cfg.AdminSecret)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Scan scores a URL, optionally with the page's HTML.
func (c *Client) Scan(ctx context.Context, rawURL, html string) (*ScanResult, error) {
	body := map[string]string{"url": rawURL}
	if html != "" {
		body["html"] = html
	}
	var res ScanResult
	if err := c.doRequest(ctx, http.MethodPost, "/v1/scan", nil, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Lists returns the allow and deny lists.
func (c *Client) Lists(ctx context.Context) (*Lists, error) {
	var l Lists
	if err := c.doRequest(ctx, http.MethodGet, "/v1/lists", nil, nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// AddListEntry adds pattern to the allow or deny list.
func (c *Client) AddListEntry(ctx context.Context, tag lists.Tag, pattern string) error {
	return c.doRequest(ctx, http.MethodPost, "/v1/lists/"+strings.ToLower(string(tag)), nil, map[string]string{"pattern": pattern}, nil)
}

// RemoveListEntry removes pattern from the allow or deny list.
func (c *Client) RemoveListEntry(ctx context.Context, tag lists.Tag, pattern string) error {
	path := "/v1/lists/" + strings.ToLower(string(tag)) + "/" + url.PathEscape(pattern)
	return c.doRequest(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Verdicts returns recent verdicts recorded for host.
func (c *Client) Verdicts(ctx context.Context, host string, limit int) ([]*risk.Verdict, error) {
	q := url.Values{}
	q.Set("host", host)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Verdicts []*risk.Verdict `json:"verdicts"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/v1/verdicts", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Verdicts, nil
}

// SubmitReport reports a site as fraudulent.
func (c *Client) SubmitReport(ctx context.Context, rawURL, reason string) (*reports.Report, error) {
	var out struct {
		Report *reports.Report `json:"report"`
	}
	body := map[string]string{"url": rawURL, "reason": reason}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/reports", nil, body, &out); err != nil {
		return nil, err
	}
	return out.Report, nil
}
