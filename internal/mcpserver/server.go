package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// NewMCPServer creates a configured MCP server with all FountainScan tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("fountainscan", Version)
	h := NewHandlers(NewClient(cfg))

	s.AddTool(ToolScanURL, h.HandleScanURL)
	s.AddTool(ToolCheckDomain, h.HandleCheckDomain)
	s.AddTool(ToolAddListEntry, h.HandleAddListEntry)
	s.AddTool(ToolRemoveListEntry, h.HandleRemoveListEntry)
	s.AddTool(ToolReportSite, h.HandleReportSite)

	return s
}
