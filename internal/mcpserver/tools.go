package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the FountainScan MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolScanURL = mcp.NewTool("scan_url",
	mcp.WithDescription(
		"Score a web page for scholarship and education fraud. "+
			"Returns the risk level (SAFE, LOW, MEDIUM, HIGH, or an allow/deny override), "+
			"the numeric score, every issue found, and whether the extension would warn or block. "+
			"Pass the page HTML when available: form fields, links and images add signals."),
	mcp.WithString("url",
		mcp.Required(),
		mcp.Description("Absolute URL of the page (e.g. 'https://free-scholarship.example/apply')")),
	mcp.WithString("html",
		mcp.Description("Optional HTML of the page as loaded in the browser")),
)

var ToolCheckDomain = mcp.NewTool("check_domain",
	mcp.WithDescription(
		"Check whether a domain is on the allow or deny list and show its most recent verdicts. "+
			"Does not run a new scan."),
	mcp.WithString("domain",
		mcp.Required(),
		mcp.Description("Domain or URL to check (e.g. 'scholarships.example.org')")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of recent verdicts to show (default 5)")),
)

var ToolAddListEntry = mcp.NewTool("add_list_entry",
	mcp.WithDescription(
		"Add a domain pattern to the allow list (always trusted) or the deny list (always blocked). "+
			"A leading '*.' matches the domain and all of its subdomains. "+
			"Cached verdicts are discarded so the change applies to the next scan. "+
			"Needs FOUNTAINSCAN_ADMIN_SECRET."),
	mcp.WithString("list",
		mcp.Required(),
		mcp.Description("Which list to change"),
		mcp.Enum("allow", "deny")),
	mcp.WithString("pattern",
		mcp.Required(),
		mcp.Description("Domain pattern, e.g. 'partner.edu' or '*.scam.example'")),
)

var ToolRemoveListEntry = mcp.NewTool("remove_list_entry",
	mcp.WithDescription(
		"Remove a domain pattern from the allow or deny list. Needs FOUNTAINSCAN_ADMIN_SECRET."),
	mcp.WithString("list",
		mcp.Required(),
		mcp.Description("Which list to change"),
		mcp.Enum("allow", "deny")),
	mcp.WithString("pattern",
		mcp.Required(),
		mcp.Description("The exact pattern to remove, as shown by check_domain")),
)

var ToolReportSite = mcp.NewTool("report_site",
	mcp.WithDescription(
		"Report a site as fraudulent. The report is stored with the site's current verdict "+
			"and forwarded to the intake service when one is configured."),
	mcp.WithString("url",
		mcp.Required(),
		mcp.Description("URL of the fraudulent page")),
	mcp.WithString("reason",
		mcp.Required(),
		mcp.Description("What made the site look fraudulent (e.g. 'asks for an application fee by wire')")),
)
