package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/db"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// testSetup creates a temporary database, store and config for testing.
func testSetup(t *testing.T) (*sql.DB, *store.Store, *config.Config) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	st, err := store.Open(db.NewSlotStore(database), store.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true // Allow temp dirs in tests

	return database, st, cfg
}

// onboarded returns handlers over an activated workspace.
func onboarded(t *testing.T) (*Handlers, *store.Store) {
	t.Helper()
	database, st, cfg := testSetup(t)
	h := NewHandlers(database, st, cfg)

	result, _ := h.HandleOnboard(context.Background(), makeRequest(map[string]any{
		"name":  "Acme Repairs",
		"email": true,
	}))
	parseOutput(t, result)
	return h, st
}

// book runs booking_create on the first offered slot.
func book(t *testing.T, h *Handlers, email string) map[string]any {
	t.Helper()
	ctx := context.Background()

	slots := parseOutput(t, mustCall(h.HandleSlots(ctx, makeRequest(nil))))
	first := slots["slots"].([]any)[0].(string)

	return parseOutput(t, mustCall(h.HandleBookingCreate(ctx, makeRequest(map[string]any{
		"service_id": "srv-1",
		"date":       first,
		"name":       "Jane Doe",
		"email":      email,
	}))))
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func mustCall(result *mcp.CallToolResult, err error) *mcp.CallToolResult {
	if err != nil {
		panic(err)
	}
	return result
}

func TestHandleOnboard(t *testing.T) {
	database, st, cfg := testSetup(t)
	h := NewHandlers(database, st, cfg)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name:      "missing name",
			args:      map[string]any{"timezone": "UTC"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "unknown timezone",
			args:      map[string]any{"name": "Acme", "timezone": "Mars/Olympus"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "wrong argument type",
			args:      map[string]any{"name": 42},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "valid",
			args: map[string]any{"name": "Acme", "timezone": "America/New_York", "sms": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleOnboard(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsError != tt.wantError {
				t.Fatalf("IsError = %v, want %v: %s", result.IsError, tt.wantError, extractErrorMessage(result))
			}
			if tt.wantError {
				assertErrorCode(t, result, tt.errorCode)
			}
		})
	}

	output := parseOutput(t, mustCall(h.HandleWorkspaceGet(ctx, makeRequest(nil))))
	ws := output["workspace"].(map[string]any)
	if ws["activated"] != true {
		t.Errorf("activated = %v, want true", ws["activated"])
	}
	if ws["timezone"] != "America/New_York" {
		t.Errorf("timezone = %v, want America/New_York", ws["timezone"])
	}
}

func TestHandleRole(t *testing.T) {
	h, _ := onboarded(t)
	ctx := context.Background()

	output := parseOutput(t, mustCall(h.HandleRole(ctx, makeRequest(map[string]any{"toggle": true}))))
	if output["role"] != "staff" {
		t.Fatalf("role after toggle = %v, want staff", output["role"])
	}
	for _, item := range output["navigation"].([]any) {
		if item.(map[string]any)["path"] == "/staff" {
			t.Error("staff navigation should not include /staff")
		}
	}

	result, _ := h.HandleRole(ctx, makeRequest(map[string]any{"role": "admin"}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleBookingFlow(t *testing.T) {
	h, _ := onboarded(t)
	ctx := context.Background()

	services := parseOutput(t, mustCall(h.HandleServices(ctx, makeRequest(nil))))
	if got := len(services["services"].([]any)); got != 3 {
		t.Errorf("services = %d, want 3", got)
	}

	result, _ := h.HandleBookingCreate(ctx, makeRequest(map[string]any{
		"service_id": "srv-1",
		"date":       "tomorrow morning",
		"name":       "Jane",
		"email":      "jane@example.com",
	}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	created := book(t, h, "jane@example.com")
	booking := created["booking"].(map[string]any)
	if booking["status"] != "confirmed" {
		t.Errorf("status = %v, want confirmed", booking["status"])
	}
	if created["new_contact"] != true {
		t.Error("first booking should create the contact")
	}

	list := parseOutput(t, mustCall(h.HandleBookingList(ctx, makeRequest(map[string]any{"filter": "all"}))))
	if got := len(list["bookings"].([]any)); got != 1 {
		t.Fatalf("bookings = %d, want 1", got)
	}

	updated := parseOutput(t, mustCall(h.HandleBookingStatus(ctx, makeRequest(map[string]any{
		"id":     booking["id"],
		"status": "completed",
	}))))
	if updated["status"] != "completed" {
		t.Errorf("status = %v, want completed", updated["status"])
	}

	result, _ = h.HandleBookingStatus(ctx, makeRequest(map[string]any{"id": "missing", "status": "completed"}))
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleInbox(t *testing.T) {
	h, _ := onboarded(t)
	ctx := context.Background()

	submitted := parseOutput(t, mustCall(h.HandleContact(ctx, makeRequest(map[string]any{
		"name":    "Sam",
		"email":   "sam@example.com",
		"message": "Do you fix boilers?",
	}))))
	contactID := submitted["contact"].(map[string]any)["id"].(string)

	inbox := parseOutput(t, mustCall(h.HandleInbox(ctx, makeRequest(nil))))
	// The inbound message plus the automated welcome reply.
	if inbox["unread"] != float64(2) {
		t.Errorf("unread = %v, want 2", inbox["unread"])
	}

	conv := parseOutput(t, mustCall(h.HandleConversation(ctx, makeRequest(map[string]any{
		"contact_id": contactID,
		"mark_read":  true,
	}))))
	if conv["marked_read"] != float64(1) {
		t.Errorf("marked_read = %v, want 1", conv["marked_read"])
	}

	reply := parseOutput(t, mustCall(h.HandleReply(ctx, makeRequest(map[string]any{
		"contact_id": contactID,
		"content":    "Yes we do.",
		"channel":    "sms",
	}))))
	if reply["type"] != "sms" || reply["direction"] != "outbound" {
		t.Errorf("reply = %v, want outbound sms", reply)
	}

	result, _ := h.HandleReply(ctx, makeRequest(map[string]any{"contact_id": contactID, "content": "  "}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandleConversation(ctx, makeRequest(map[string]any{"contact_id": "nobody"}))
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleForms(t *testing.T) {
	h, _ := onboarded(t)
	ctx := context.Background()

	created := book(t, h, "jane@example.com")
	formID := created["form"].(map[string]any)["id"]

	pending := parseOutput(t, mustCall(h.HandleFormList(ctx, makeRequest(map[string]any{"status": "pending"}))))
	if pending["pending"] != float64(1) {
		t.Errorf("pending = %v, want 1", pending["pending"])
	}

	form := parseOutput(t, mustCall(h.HandleFormComplete(ctx, makeRequest(map[string]any{"id": formID}))))
	if form["status"] != "completed" {
		t.Errorf("form status = %v, want completed", form["status"])
	}

	pending = parseOutput(t, mustCall(h.HandleFormList(ctx, makeRequest(map[string]any{"status": "pending"}))))
	if got := len(pending["forms"].([]any)); got != 0 {
		t.Errorf("pending forms = %d, want 0", got)
	}
}

func TestHandleInventory(t *testing.T) {
	h, _ := onboarded(t)
	ctx := context.Background()

	low := parseOutput(t, mustCall(h.HandleInventory(ctx, makeRequest(map[string]any{"low_only": true}))))
	if got := len(low["items"].([]any)); got != 2 {
		t.Errorf("low items = %d, want 2", got)
	}

	adjusted := parseOutput(t, mustCall(h.HandleInventoryAdjust(ctx, makeRequest(map[string]any{
		"id":    "inv-2",
		"delta": -12,
	}))))
	item := adjusted["item"].(map[string]any)
	if item["quantity"] != float64(3) || item["low"] != true {
		t.Errorf("adjusted item = %v, want quantity 3 and low", item)
	}

	clamped := parseOutput(t, mustCall(h.HandleInventoryAdjust(ctx, makeRequest(map[string]any{
		"id":    "inv-2",
		"delta": -100,
	}))))
	if q := clamped["item"].(map[string]any)["quantity"]; q != float64(0) {
		t.Errorf("clamped quantity = %v, want 0", q)
	}

	missing := parseOutput(t, mustCall(h.HandleInventoryAdjust(ctx, makeRequest(map[string]any{
		"id":    "inv-404",
		"delta": 1,
	}))))
	if missing["found"] != false {
		t.Errorf("found = %v, want false", missing["found"])
	}

	added := parseOutput(t, mustCall(h.HandleInventoryAdd(ctx, makeRequest(map[string]any{
		"name":      "Gloves",
		"quantity":  10,
		"threshold": 2,
	}))))
	if added["name"] != "Gloves" || added["low"] != false {
		t.Errorf("added = %v", added)
	}
}

func TestHandleMutations_NotActivated(t *testing.T) {
	database, st, cfg := testSetup(t)
	h := NewHandlers(database, st, cfg)

	result, _ := h.HandleInventoryAdjust(context.Background(), makeRequest(map[string]any{"id": "inv-1", "delta": 1}))
	assertErrorCode(t, result, "NOT_ACTIVATED")
}

func TestHandleDashboard(t *testing.T) {
	h, _ := onboarded(t)

	output := parseOutput(t, mustCall(h.HandleDashboard(context.Background(), makeRequest(nil))))
	if output["greeting"] != "Overview for Acme Repairs" {
		t.Errorf("greeting = %v", output["greeting"])
	}
	if got := len(output["lowStock"].([]any)); got != 2 {
		t.Errorf("lowStock = %d, want 2", got)
	}
}

func TestHandleRemindAndHistory(t *testing.T) {
	h, _ := onboarded(t)
	ctx := context.Background()
	book(t, h, "jane@example.com")

	first := parseOutput(t, mustCall(h.HandleRemind(ctx, makeRequest(nil))))
	if got := len(first["reminded"].([]any)); got != 1 {
		t.Fatalf("reminded = %d, want 1", got)
	}
	if first["run_id"] == "" {
		t.Error("expected a run id")
	}

	second := parseOutput(t, mustCall(h.HandleRemind(ctx, makeRequest(map[string]any{"lead_hours": 48}))))
	if got := len(second["reminded"].([]any)); got != 0 {
		t.Errorf("second run reminded = %d, want 0", got)
	}

	result, _ := h.HandleRemind(ctx, makeRequest(map[string]any{"lead_hours": -1}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	history := parseOutput(t, mustCall(h.HandleHistory(ctx, makeRequest(map[string]any{"job": "form_reminders"}))))
	runs := history["runs"].([]any)
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
}

func TestHandleExportImport(t *testing.T) {
	h, _ := onboarded(t)
	ctx := context.Background()
	book(t, h, "jane@example.com")

	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	exported := parseOutput(t, mustCall(h.HandleExport(ctx, makeRequest(map[string]any{"path": path}))))
	if exported["path"] != path {
		t.Errorf("path = %v, want %v", exported["path"], path)
	}

	database, st, cfg := testSetup(t)
	fresh := NewHandlers(database, st, cfg)

	result, _ := fresh.HandleImport(ctx, makeRequest(map[string]any{"path": path, "mode": "overwrite"}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = fresh.HandleImport(ctx, makeRequest(map[string]any{"path": filepath.Join(t.TempDir(), "missing.jsonl")}))
	assertErrorCode(t, result, "FILE_NOT_FOUND")

	imported := parseOutput(t, mustCall(fresh.HandleImport(ctx, makeRequest(map[string]any{"path": path, "mode": "replace"}))))
	if imported["imported"] == float64(0) {
		t.Error("expected records to be imported")
	}
	if !st.Workspace().Activated {
		t.Error("replace import should restore the activated workspace")
	}
	if got := len(st.Snapshot().Bookings); got != 1 {
		t.Errorf("bookings after import = %d, want 1", got)
	}
}

func TestServerRegistration(t *testing.T) {
	database, st, cfg := testSetup(t)

	s := NewServer(database, st, cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	if len(tools) != len(toolRegistry) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry))
	}
	for _, name := range AllToolNames() {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	database, st, cfg := testSetup(t)

	cfg.DisabledTools = []string{"snapshot_import", "inventory_adjust", "inventory_adjust"}
	s := NewServer(database, st, cfg, "test")
	tools := s.ListTools()

	if len(tools) != len(toolRegistry)-2 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry)-2)
	}
	for _, name := range []string{"snapshot_import", "inventory_adjust"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	for _, name := range []string{"dashboard_get", "inventory_list"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q should be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	database, st, cfg := testSetup(t)

	cfg.DisabledTypes = []string{"snapshot", "automation"}
	s := NewServer(database, st, cfg, "test")
	tools := s.ListTools()

	for name := range tools {
		if typ := GetTypeForTool(name); typ == "snapshot" || typ == "automation" {
			t.Errorf("tool %q of a disabled type should not be registered", name)
		}
	}
	if len(tools) != len(toolRegistry)-4 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry)-4)
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	database, st, cfg := testSetup(t)

	cfg.DisabledTools = AllToolNames()
	s := NewServer(database, st, cfg, "test")
	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{name: "all valid", input: []string{"snapshot_import", "booking_status"}, wantLen: 0},
		{name: "one unknown", input: []string{"snapshot_import", "fake_tool"}, wantLen: 1},
		{name: "all unknown", input: []string{"foo", "bar", "baz"}, wantLen: 3},
		{name: "empty list", input: []string{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	if unknown := ValidateDisabledTypes(KnownTypes); len(unknown) != 0 {
		t.Errorf("KnownTypes reported unknown: %v", unknown)
	}
	if unknown := ValidateDisabledTypes([]string{"inventory", "capsule"}); len(unknown) != 1 || unknown[0] != "capsule" {
		t.Errorf("ValidateDisabledTypes() = %v, want [capsule]", unknown)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Errorf("AllToolNames() returned %d names, want %d", len(names), len(toolRegistry))
	}

	known := make(map[string]bool, len(KnownTypes))
	for _, typ := range KnownTypes {
		known[typ] = true
	}
	for _, name := range names {
		if !known[GetTypeForTool(name)] {
			t.Errorf("tool %q has unknown type %q", name, GetTypeForTool(name))
		}
		if toolRegistry[name].def.Name != name {
			t.Errorf("tool %q is defined as %q", name, toolRegistry[name].def.Name)
		}
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrappedErr := fmt.Errorf("line 3: %w", errors.NewNotFound("booking", "bk-1"))

	errObj := errorObject(t, errorResult(wrappedErr))
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	msg := errObj["message"].(string)
	if !strings.HasPrefix(msg, "line 3: ") || !strings.Contains(msg, "booking not found") {
		t.Errorf("message should keep the wrapper context, got: %s", msg)
	}
}

func TestErrorResult_NonOpsErrorIsInternal(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("disk on fire")))
	if errObj["code"] != string(errors.ErrInternal) {
		t.Errorf("code=%v, want INTERNAL", errObj["code"])
	}
	if strings.Contains(errObj["message"].(string), "disk") {
		t.Error("plain errors should not leak their text")
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	errObj := errorObject(t, errorResult(errors.NewNotFound("form", "frm-1")))
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

// Helper functions

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	return payload["error"].(map[string]any)
}

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error %s, got success", expectedCode)
		return
	}
	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	code, ok := errorObj["code"].(string)
	if !ok {
		t.Errorf("no code in error object")
		return
	}

	if code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
