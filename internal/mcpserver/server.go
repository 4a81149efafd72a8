// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the blood pressure diary for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wildfrostsss/Blood-pressure/internal/diary"
)

// Server wraps the MCP server with diary tools.
type Server struct {
	mcp *server.MCPServer
	svc *diary.Service
}

// New creates a new MCP server with all diary tools registered.
func New(svc *diary.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Blood Pressure Diary",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("record_measurement",
		mcp.WithDescription("Record a blood pressure measurement. Readings must be "+
			"within plausible clinical ranges; read the contract first via the "+
			"get_measurement_contract tool or the bp://measurement-format resource."),
		mcp.WithNumber("systolic", mcp.Required(), mcp.Description("Systolic pressure in mmHg (50-250)")),
		mcp.WithNumber("diastolic", mcp.Required(), mcp.Description("Diastolic pressure in mmHg (30-150)")),
		mcp.WithNumber("pulse", mcp.Required(), mcp.Description("Pulse in beats per minute (30-220)")),
		mcp.WithString("datetime", mcp.Required(), mcp.Description("Local timestamp, YYYY-MM-DDTHH:MM")),
	), s.recordMeasurement)

	s.mcp.AddTool(mcp.NewTool("list_measurements",
		mcp.WithDescription("List all measurements recorded on one calendar day, newest first."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Day in YYYY-MM-DD")),
	), s.listMeasurements)

	s.mcp.AddTool(mcp.NewTool("list_range",
		mcp.WithDescription("List all measurements between two calendar days inclusive, oldest first."),
		mcp.WithString("start", mcp.Required(), mcp.Description("First day in YYYY-MM-DD")),
		mcp.WithString("end", mcp.Required(), mcp.Description("Last day in YYYY-MM-DD")),
	), s.listRange)

	s.mcp.AddTool(mcp.NewTool("delete_measurement",
		mcp.WithDescription("Delete a measurement by its identifier."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Measurement identifier")),
	), s.deleteMeasurement)

	s.mcp.AddTool(mcp.NewTool("measurement_days",
		mcp.WithDescription("List the calendar days that have at least one measurement."),
	), s.measurementDays)

	s.mcp.AddTool(mcp.NewTool("get_measurement_contract",
		mcp.WithDescription("Returns the canonical measurement format contract. "+
			"Call this before recording measurements to ensure correct structure."),
	), s.getMeasurementContract)

	// Resource: measurement format contract.
	s.mcp.AddResource(
		mcp.NewResource("bp://measurement-format", "Measurement Format Contract",
			mcp.WithResourceDescription("Canonical measurement format that all diary entries follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMeasurementFormatResource,
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

func (s *Server) recordMeasurement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	systolic, err := req.RequireInt("systolic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	diastolic, err := req.RequireInt("diastolic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pulse, err := req.RequireInt("pulse")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	datetime, err := req.RequireString("datetime")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if systolic < 50 || systolic > 250 || diastolic < 30 || diastolic > 150 || pulse < 30 || pulse > 220 {
		return mcp.NewToolResultError("readings outside plausible clinical ranges, see get_measurement_contract"), nil
	}

	m, err := s.svc.Create(systolic, diastolic, pulse, datetime)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(m, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listMeasurements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.QueryByDay(day)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listRange(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := req.RequireString("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := req.RequireString("end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.QueryByRange(start, end)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteMeasurement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	removed, err := s.svc.Delete(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !removed {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) measurementDays(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set, err := s.svc.DatesWithMeasurements()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(set) == 0 {
		return mcp.NewToolResultText("no measurements recorded"), nil
	}
	days := make([]string, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Strings(days)
	return mcp.NewToolResultText(strings.Join(days, "\n")), nil
}

func (s *Server) getMeasurementContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MeasurementFormatContract), nil
}

func (s *Server) readMeasurementFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "bp://measurement-format",
			MIMEType: "text/markdown",
			Text:     MeasurementFormatContract,
		},
	}, nil
}
