package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wildfrostsss/Blood-pressure/internal/diary"
	"github.com/wildfrostsss/Blood-pressure/internal/models"
	"github.com/wildfrostsss/Blood-pressure/internal/testutil"
)

func testServer(t *testing.T) (*Server, *diary.Service) {
	t.Helper()

	_, store := testutil.TestDataDir(t)
	svc := diary.NewService(store, time.UTC)
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so we invoke the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "record_measurement":
		result, err = srv.recordMeasurement(ctx, req)
	case "list_measurements":
		result, err = srv.listMeasurements(ctx, req)
	case "list_range":
		result, err = srv.listRange(ctx, req)
	case "delete_measurement":
		result, err = srv.deleteMeasurement(ctx, req)
	case "measurement_days":
		result, err = srv.measurementDays(ctx, req)
	case "get_measurement_contract":
		result, err = srv.getMeasurementContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestRecordAndListMeasurement(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "record_measurement", map[string]interface{}{
		"systolic": 120, "diastolic": 80, "pulse": 70, "datetime": "2024-03-01T08:30",
	})
	if r.IsError {
		t.Fatalf("record failed: %s", resultText(r))
	}
	var recorded models.Measurement
	if err := json.Unmarshal([]byte(resultText(r)), &recorded); err != nil {
		t.Fatalf("decode record result: %v", err)
	}
	if recorded.ID == "" {
		t.Error("recorded measurement must carry an identifier")
	}

	r = callTool(t, srv, "list_measurements", map[string]interface{}{"date": "2024-03-01"})
	var items []models.Measurement
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("decode list result: %v", err)
	}
	if len(items) != 1 || items[0].ID != recorded.ID {
		t.Errorf("list = %v, want the recorded measurement", items)
	}
}

func TestRecordRejectsImplausibleReadings(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "record_measurement", map[string]interface{}{
		"systolic": 400, "diastolic": 80, "pulse": 70, "datetime": "2024-03-01T08:30",
	})
	if !r.IsError {
		t.Fatal("expected error for implausible systolic reading")
	}

	r = callTool(t, srv, "record_measurement", map[string]interface{}{
		"systolic": 120, "diastolic": 80, "pulse": 70, "datetime": "whenever",
	})
	if !r.IsError {
		t.Fatal("expected error for malformed datetime")
	}
}

func TestListRange(t *testing.T) {
	srv, _ := testServer(t)
	for _, dt := range []string{"2024-03-02T10:00", "2024-03-01T09:00", "2024-03-05T12:00"} {
		callTool(t, srv, "record_measurement", map[string]interface{}{
			"systolic": 120, "diastolic": 80, "pulse": 70, "datetime": dt,
		})
	}

	r := callTool(t, srv, "list_range", map[string]interface{}{
		"start": "2024-03-01", "end": "2024-03-02",
	})
	var items []models.Measurement
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("decode range result: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d measurements, want 2", len(items))
	}
	if items[0].Datetime != "2024-03-01T09:00" {
		t.Errorf("range must be oldest first, got %q", items[0].Datetime)
	}
}

func TestDeleteMeasurement(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "record_measurement", map[string]interface{}{
		"systolic": 120, "diastolic": 80, "pulse": 70, "datetime": "2024-03-01T08:30",
	})
	var recorded models.Measurement
	_ = json.Unmarshal([]byte(resultText(r)), &recorded)

	r = callTool(t, srv, "delete_measurement", map[string]interface{}{"id": recorded.ID})
	if resultText(r) != "deleted: "+recorded.ID {
		t.Errorf("delete result = %q", resultText(r))
	}

	r = callTool(t, srv, "delete_measurement", map[string]interface{}{"id": recorded.ID})
	if !r.IsError {
		t.Error("expected error for repeated delete")
	}
}

func TestMeasurementDays(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "measurement_days", map[string]interface{}{})
	if resultText(r) != "no measurements recorded" {
		t.Errorf("empty diary days = %q", resultText(r))
	}

	for _, dt := range []string{"2024-03-02T10:00", "2024-03-01T09:00", "2024-03-01T21:00"} {
		callTool(t, srv, "record_measurement", map[string]interface{}{
			"systolic": 120, "diastolic": 80, "pulse": 70, "datetime": dt,
		})
	}
	r = callTool(t, srv, "measurement_days", map[string]interface{}{})
	if resultText(r) != "2024-03-01\n2024-03-02" {
		t.Errorf("days = %q", resultText(r))
	}
}

func TestContractMentionsRanges(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_measurement_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "50-250") || !strings.Contains(text, "YYYY-MM-DDTHH:MM") {
		t.Error("contract must document reading ranges and the datetime format")
	}
}
