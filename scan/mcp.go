// CLAUDE:SUMMARY Registers the wayback_scan and wayback_snapshots MCP tools on an MCP server.
package scan

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/waybackscan/cdx"
	"github.com/hazyhaar/waybackscan/extract"
	"github.com/hazyhaar/waybackscan/kit"
)

// RegisterMCP registers the scanner tools on an MCP server.
func (s *Scanner) RegisterMCP(srv *mcp.Server) {
	s.registerScanTool(srv)
	s.registerSnapshotsTool(srv)
}

// --- wayback_scan ---

type scanToolRequest struct {
	Domain  string `json:"domain"`
	Year    string `json:"year,omitempty"`
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit,omitempty"`
}

type scanToolResponse struct {
	Summary Summary         `json:"summary"`
	Message string          `json:"message,omitempty"`
	Matches []extract.Match `json:"matches"`
}

func (s *Scanner) registerScanTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wayback_scan",
		Description: "Scan the archived captures of a domain for a keyword. Returns every match with its zone (TEXT, JS, COMMENT), snippet and replay URL.",
		InputSchema: kit.InputSchema(map[string]any{
			"domain":  map[string]any{"type": "string", "description": "Domain to scan (e.g. example.com)"},
			"year":    map[string]any{"type": "string", "description": "Restrict to captures of this year (YYYY)"},
			"keyword": map[string]any{"type": "string", "description": "Keyword to look for, matched case-insensitively"},
			"limit":   map[string]any{"type": "integer", "description": "Max snapshots to scan (default 100)"},
		}, []string{"domain", "keyword"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*scanToolRequest)
		r := Request{Domain: rr.Domain, Year: rr.Year, Keyword: rr.Keyword, Limit: rr.Limit}
		if err := r.Normalize(s.cfg.Limits); err != nil {
			return nil, err
		}
		var c Collector
		sum := s.Run(ctx, r, &c)
		resp := &scanToolResponse{Summary: sum, Matches: c.Matches()}
		if last := c.Last(); last.Terminal() {
			resp.Message = last.Message
		}
		if resp.Matches == nil {
			resp.Matches = []extract.Match{}
		}
		return resp, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var rr scanToolRequest
		if err := json.Unmarshal(req.Params.Arguments, &rr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &rr}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode, kit.WithLogging(s.logger, tool.Name))
}

// --- wayback_snapshots ---

type snapshotsToolRequest struct {
	Domain string `json:"domain"`
	Year   string `json:"year,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func (s *Scanner) registerSnapshotsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wayback_snapshots",
		Description: "List the successful archived captures of a domain, oldest first.",
		InputSchema: kit.InputSchema(map[string]any{
			"domain": map[string]any{"type": "string", "description": "Domain to list (e.g. example.com)"},
			"year":   map[string]any{"type": "string", "description": "Restrict to captures of this year (YYYY)"},
			"limit":  map[string]any{"type": "integer", "description": "Max snapshots (default 100)"},
		}, []string{"domain"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*snapshotsToolRequest)
		snaps, err := s.Snapshots(ctx, rr.Domain, rr.Year, rr.Limit)
		if err != nil {
			return nil, err
		}
		if snaps == nil {
			snaps = []cdx.Snapshot{}
		}
		return map[string]any{"count": len(snaps), "snapshots": snaps}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var rr snapshotsToolRequest
		if err := json.Unmarshal(req.Params.Arguments, &rr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &rr}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode, kit.WithLogging(s.logger, tool.Name))
}
