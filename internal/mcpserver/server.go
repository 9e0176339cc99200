// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes epiledger tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/epiledger/internal/apperr"
	"github.com/starford/epiledger/internal/recordservice"
)

// Server wraps the MCP server with epiledger tools.
type Server struct {
	mcp *server.MCPServer
	svc *recordservice.Service
}

// New creates a new MCP server with all epiledger tools registered.
func New(svc *recordservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"epiledger",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_record",
		mcp.WithDescription("Append a daily record for a city and save the data file. "+
			"Read the format contract first via the get_format_contract tool or the "+
			FormatContractURI+" resource."),
		mcp.WithString("city", mcp.Required(), mcp.Description("City name")),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date in any common form, e.g. 2021-01-05, Jan 5 2021, yesterday")),
		mcp.WithNumber("cases", mcp.Required(), mcp.Description("Confirmed cases (non-negative integer)")),
		mcp.WithNumber("recovered", mcp.Required(), mcp.Description("Recovered (non-negative integer)")),
		mcp.WithNumber("deaths", mcp.Required(), mcp.Description("Deaths (non-negative integer)")),
	), s.addRecord)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List records in insertion order, optionally for one city."),
		mcp.WithString("city", mcp.Description("Optional city filter")),
		mcp.WithNumber("limit", mcp.Description("Page size (0 for all)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("classify_risk_zones",
		mcp.WithDescription("Classify each city as High, Medium or Low risk from its first record."),
	), s.classifyRiskZones)

	s.mcp.AddTool(mcp.NewTool("predict_hotspot",
		mcp.WithDescription("Name the city with the highest cumulative case count."),
	), s.predictHotspot)

	s.mcp.AddTool(mcp.NewTool("trend_series",
		mcp.WithDescription("Per-city (date, cases) series in insertion order, for charting."),
		mcp.WithString("city", mcp.Description("Optional city; all cities when empty")),
	), s.trendSeries)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Returns the epiledger data format contract and analysis rules."),
	), s.getFormatContract)

	s.mcp.AddResource(
		mcp.NewResource(FormatContractURI, "Data Format Contract",
			mcp.WithResourceDescription("CSV layout and record rules for the epiledger data file."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in recordservice.AddInput
	var err error
	if in.City, err = req.RequireString("city"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.Date, err = req.RequireString("date"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.Cases, err = requireCount(req, "cases"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.Recovered, err = requireCount(req, "recovered"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.Deaths, err = requireCount(req, "deaths"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := s.svc.Add(ctx, in)
	if err != nil {
		if errors.Is(err, apperr.ErrPersistence) {
			return mcp.NewToolResultError("record kept in memory but the data file could not be saved: " + err.Error()), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s", rec)), nil
}

// requireCount reads a whole-number argument. JSON numbers arrive as floats,
// so a fractional value is rejected rather than truncated.
func requireCount(req mcp.CallToolRequest, key string) (int, error) {
	f, err := req.RequireFloat(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s %v is not an integer", apperr.ErrParse, key, f)
	}
	return int(f), nil
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, total, err := s.svc.List(ctx, recordservice.ListQuery{
		City:   req.GetString("city", ""),
		Limit:  req.GetInt("limit", 0),
		Offset: req.GetInt("offset", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"records": records, "total": total})
}

func (s *Server) classifyRiskZones(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.RiskZones(ctx))
}

func (s *Server) predictHotspot(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hot, err := s.svc.Hotspot(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrEmptyInput) {
			return mcp.NewToolResultError("no data available"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Predicted hotspot: %s with %d total cases.", hot.City, hot.TotalCases)), nil
}

func (s *Server) trendSeries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	city := req.GetString("city", "")
	if city == "" {
		return jsonResult(s.svc.Trends(ctx))
	}
	series, err := s.svc.Trend(ctx, city)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("no records for city: %s", city)), nil
	}
	return jsonResult(series)
}

func (s *Server) getFormatContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatContractURI,
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}
