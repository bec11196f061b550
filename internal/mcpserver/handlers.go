package mcpserver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbd888/fountainscan/internal/lists"
	"github.com/mbd888/fountainscan/internal/risk"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *Client
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *Client) *Handlers {
	return &Handlers{client: client}
}

// HandleScanURL scores a page.
func (h *Handlers) HandleScanURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL := strings.TrimSpace(req.GetString("url", ""))
	if rawURL == "" {
		return mcp.NewToolResultError("url is required"), nil
	}

	res, err := h.client.Scan(ctx, rawURL, req.GetString("html", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to scan %s: %v", rawURL, err)), nil
	}
	if res.Skipped {
		return mcp.NewToolResultText("Scan skipped: " + res.Reason), nil
	}
	if res.Verdict == nil {
		return mcp.NewToolResultError("Scan returned no verdict"), nil
	}

	return mcp.NewToolResultText(formatScan(res)), nil
}

// HandleCheckDomain reports list membership and recent verdicts.
func (h *Handlers) HandleCheckDomain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input := req.GetString("domain", "")
	host := hostOf(input)
	if host == "" {
		return mcp.NewToolResultError("domain is required"), nil
	}
	limit := req.GetInt("limit", 5)
	if limit <= 0 || limit > 50 {
		limit = 5
	}

	l, err := h.client.Lists(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load lists: %v", err)), nil
	}
	verdicts, err := h.client.Verdicts(ctx, host, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load verdicts: %v", err)), nil
	}

	allow, deny := lists.NewSet(l.Allow...), lists.NewSet(l.Deny...)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Domain: %s\n", host)
	switch lists.Resolve(host, allow, deny) {
	case lists.ResolutionAllow:
		p, _ := allow.Match(host)
		fmt.Fprintf(&sb, "List: ALLOW (matched %s)\n", p)
		if dp, ok := deny.Match(host); ok {
			fmt.Fprintf(&sb, "  Also on deny list as %s; allow wins.\n", dp)
		}
	case lists.ResolutionDeny:
		p, _ := deny.Match(host)
		fmt.Fprintf(&sb, "List: DENY (matched %s)\n", p)
	default:
		sb.WriteString("List: not listed\n")
	}

	if len(verdicts) == 0 {
		sb.WriteString("\nNo verdicts recorded for this host.")
		return mcp.NewToolResultText(sb.String()), nil
	}
	fmt.Fprintf(&sb, "\nRecent verdicts (%d):\n", len(verdicts))
	for _, v := range verdicts {
		fmt.Fprintf(&sb, "  %s  %-16s score %d  %s\n",
			v.ComputedAt.UTC().Format("2006-01-02 15:04"), v.RiskLevel, v.RiskScore, v.Target)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleAddListEntry adds a pattern to a list.
func (h *Handlers) HandleAddListEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, pattern, errResult := listArgs(req)
	if errResult != nil {
		return errResult, nil
	}

	if err := h.client.AddListEntry(ctx, tag, pattern); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to add %s to the %s list: %v", pattern, listName(tag), err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added %s to the %s list.", pattern, listName(tag))), nil
}

// HandleRemoveListEntry removes a pattern from a list.
func (h *Handlers) HandleRemoveListEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, pattern, errResult := listArgs(req)
	if errResult != nil {
		return errResult, nil
	}

	if err := h.client.RemoveListEntry(ctx, tag, pattern); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to remove %s from the %s list: %v", pattern, listName(tag), err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed %s from the %s list.", pattern, listName(tag))), nil
}

// HandleReportSite files a fraud report.
func (h *Handlers) HandleReportSite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL := strings.TrimSpace(req.GetString("url", ""))
	reason := strings.TrimSpace(req.GetString("reason", ""))
	if rawURL == "" || reason == "" {
		return mcp.NewToolResultError("url and reason are required"), nil
	}

	r, err := h.client.SubmitReport(ctx, rawURL, reason)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to report %s: %v", rawURL, err)), nil
	}
	if r == nil {
		return mcp.NewToolResultError("Report response was empty"), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Report %s filed for %s.\n", r.ID, r.Host)
	if r.RiskLevel != "" {
		fmt.Fprintf(&sb, "Current verdict: %s (score %d)\n", r.RiskLevel, r.RiskScore)
	}
	if r.Forwarded {
		sb.WriteString("Forwarded to the intake service.")
	} else {
		sb.WriteString("Stored locally; not forwarded.")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// --- helpers ---

func listArgs(req mcp.CallToolRequest) (lists.Tag, string, *mcp.CallToolResult) {
	tag, err := lists.ParseTag(req.GetString("list", ""))
	if err != nil {
		return "", "", mcp.NewToolResultError("list must be 'allow' or 'deny'")
	}
	pattern := strings.TrimSpace(req.GetString("pattern", ""))
	if pattern == "" {
		return "", "", mcp.NewToolResultError("pattern is required")
	}
	return tag, pattern, nil
}

func listName(tag lists.Tag) string {
	return strings.ToLower(string(tag))
}

// hostOf accepts a bare domain or a URL and returns the lower-cased host.
func hostOf(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if !strings.Contains(input, "://") {
		input = "http://" + input
	}
	u, err := url.Parse(input)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func formatScan(res *ScanResult) string {
	v := res.Verdict

	var sb strings.Builder
	fmt.Fprintf(&sb, "Target: %s\n", v.Target)
	fmt.Fprintf(&sb, "Risk: %s", v.RiskLevel)
	if v.RiskScore != risk.OverrideScore {
		fmt.Fprintf(&sb, " (score %d)", v.RiskScore)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Decision: %s\n", res.Decision)
	if res.Cached {
		sb.WriteString("(cached result)\n")
	}

	if len(v.Issues) == 0 {
		sb.WriteString("\nNo issues found.")
		return sb.String()
	}
	fmt.Fprintf(&sb, "\nIssues (%d):\n", len(v.Issues))
	for _, is := range v.Issues {
		fmt.Fprintf(&sb, "  [+%d] %s: %s\n", is.Weight, is.Category, is.Description)
	}
	return sb.String()
}
