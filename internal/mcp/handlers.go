package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/automation"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/ops"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	st     *store.Store
	cfg    *config.Config
	runner *automation.Runner
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(database *sql.DB, st *store.Store, cfg *config.Config) *Handlers {
	return &Handlers{
		db:     database,
		st:     st,
		cfg:    cfg,
		runner: automation.NewRunner(database, st),
	}
}

// Request types for each tool

// OnboardRequest represents the arguments for workspace_onboard.
type OnboardRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone,omitempty"`
	Email    bool   `json:"email,omitempty"`
	SMS      bool   `json:"sms,omitempty"`
}

// WorkspaceUpdateRequest represents the arguments for workspace_update.
type WorkspaceUpdateRequest struct {
	Name      *string `json:"name,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
	Email     *bool   `json:"email,omitempty"`
	SMS       *bool   `json:"sms,omitempty"`
	SetupStep *int    `json:"setup_step,omitempty"`
}

// RoleRequest represents the arguments for workspace_role.
type RoleRequest struct {
	Role   string `json:"role,omitempty"`
	Toggle bool   `json:"toggle,omitempty"`
}

// BookingCreateRequest represents the arguments for booking_create.
type BookingCreateRequest struct {
	ServiceID string `json:"service_id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Notes     string `json:"notes,omitempty"`
}

// BookingListRequest represents the arguments for booking_list.
type BookingListRequest struct {
	Filter string `json:"filter,omitempty"`
}

// BookingStatusRequest represents the arguments for booking_status.
type BookingStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ConversationRequest represents the arguments for inbox_conversation.
type ConversationRequest struct {
	ContactID string `json:"contact_id"`
	MarkRead  bool   `json:"mark_read,omitempty"`
}

// ReplyRequest represents the arguments for inbox_reply.
type ReplyRequest struct {
	ContactID string `json:"contact_id"`
	Content   string `json:"content"`
	Channel   string `json:"channel,omitempty"`
}

// ContactRequest represents the arguments for inbox_contact.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message"`
}

// FormListRequest represents the arguments for form_list.
type FormListRequest struct {
	Status string `json:"status,omitempty"`
}

// IDRequest represents the arguments of tools addressing one record by id.
type IDRequest struct {
	ID string `json:"id"`
}

// InventoryListRequest represents the arguments for inventory_list.
type InventoryListRequest struct {
	LowOnly bool `json:"low_only,omitempty"`
}

// InventoryAdjustRequest represents the arguments for inventory_adjust.
type InventoryAdjustRequest struct {
	ID    string `json:"id"`
	Delta int    `json:"delta"`
}

// InventoryAddRequest represents the arguments for inventory_add.
type InventoryAddRequest struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity,omitempty"`
	Threshold int    `json:"threshold,omitempty"`
}

// RemindRequest represents the arguments for automation_remind.
type RemindRequest struct {
	LeadHours *int `json:"lead_hours,omitempty"`
}

// HistoryRequest represents the arguments for automation_history.
type HistoryRequest struct {
	Job   string `json:"job,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ExportRequest represents the arguments for snapshot_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for snapshot_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleWorkspaceGet handles the workspace_get tool call.
func (h *Handlers) HandleWorkspaceGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.GetWorkspace(ctx, h.st)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleOnboard handles the workspace_onboard tool call.
func (h *Handlers) HandleOnboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OnboardRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Onboard(ctx, h.st, ops.OnboardInput{
		Name:     input.Name,
		Timezone: input.Timezone,
		Email:    input.Email,
		SMS:      input.SMS,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleWorkspaceUpdate handles the workspace_update tool call.
func (h *Handlers) HandleWorkspaceUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WorkspaceUpdateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.UpdateWorkspace(ctx, h.st, ops.UpdateWorkspaceInput{
		Name:      input.Name,
		Timezone:  input.Timezone,
		Email:     input.Email,
		SMS:       input.SMS,
		SetupStep: input.SetupStep,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRole handles the workspace_role tool call.
func (h *Handlers) HandleRole(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RoleRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.SetRole(ctx, h.st, ops.SetRoleInput{Role: input.Role, Toggle: input.Toggle})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleServices handles the booking_services tool call.
func (h *Handlers) HandleServices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{"services": ops.Services()})
}

// HandleSlots handles the booking_slots tool call.
func (h *Handlers) HandleSlots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.AvailableSlots(ctx, h.st)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBookingCreate handles the booking_create tool call.
func (h *Handlers) HandleBookingCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BookingCreateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if strings.TrimSpace(input.Date) == "" {
		return errorResult(errors.NewInvalidRequest("date is required")), nil
	}
	date, err := time.Parse(time.RFC3339, input.Date)
	if err != nil {
		return errorResult(errors.NewInvalidRequest("date must be an RFC 3339 timestamp")), nil
	}

	result, err := ops.SubmitBooking(ctx, h.st, ops.SubmitBookingInput{
		ServiceID: input.ServiceID,
		Date:      date,
		Name:      input.Name,
		Email:     input.Email,
		Notes:     input.Notes,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBookingList handles the booking_list tool call.
func (h *Handlers) HandleBookingList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BookingListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ListBookings(ctx, h.st, ops.ListBookingsInput{Filter: input.Filter})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBookingStatus handles the booking_status tool call.
func (h *Handlers) HandleBookingStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BookingStatusRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.SetBookingStatus(ctx, h.st, ops.SetBookingStatusInput{ID: input.ID, Status: input.Status})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInbox handles the inbox_list tool call.
func (h *Handlers) HandleInbox(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Inbox(ctx, h.st)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleConversation handles the inbox_conversation tool call.
func (h *Handlers) HandleConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConversationRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Conversation(ctx, h.st, ops.ConversationInput{ContactID: input.ContactID, MarkRead: input.MarkRead})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleReply handles the inbox_reply tool call.
func (h *Handlers) HandleReply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReplyRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Reply(ctx, h.st, ops.ReplyInput{
		ContactID: input.ContactID,
		Content:   input.Content,
		Channel:   input.Channel,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleContact handles the inbox_contact tool call.
func (h *Handlers) HandleContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ContactRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.SubmitContact(ctx, h.st, ops.SubmitContactInput{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Message: input.Message,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFormList handles the form_list tool call.
func (h *Handlers) HandleFormList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FormListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ListForms(ctx, h.st, ops.ListFormsInput{Status: input.Status})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFormComplete handles the form_complete tool call.
func (h *Handlers) HandleFormComplete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.CompleteForm(ctx, h.st, ops.CompleteFormInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInventory handles the inventory_list tool call.
func (h *Handlers) HandleInventory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InventoryListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Inventory(ctx, h.st, ops.InventoryInput{LowOnly: input.LowOnly})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInventoryAdjust handles the inventory_adjust tool call.
func (h *Handlers) HandleInventoryAdjust(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InventoryAdjustRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.AdjustInventory(ctx, h.st, ops.AdjustInventoryInput{ID: input.ID, Delta: input.Delta})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInventoryAdd handles the inventory_add tool call.
func (h *Handlers) HandleInventoryAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InventoryAddRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.AddInventoryItem(ctx, h.st, ops.AddInventoryItemInput{
		Name:      input.Name,
		Quantity:  input.Quantity,
		Threshold: input.Threshold,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDashboard handles the dashboard_get tool call.
func (h *Handlers) HandleDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Dashboard(ctx, h.st)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRemind handles the automation_remind tool call.
func (h *Handlers) HandleRemind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RemindRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	hours := h.cfg.ReminderLeadHours
	if input.LeadHours != nil {
		hours = *input.LeadHours
	}
	if hours < 0 {
		return errorResult(errors.NewInvalidRequest("lead_hours must not be negative")), nil
	}

	run, result, err := h.runner.FormReminders(ctx, time.Duration(hours)*time.Hour)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"run_id":   run.ID,
		"reminded": result.Reminded,
		"skipped":  result.Skipped,
	})
}

// HandleHistory handles the automation_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Limit < 0 {
		return errorResult(errors.NewInvalidRequest("limit must not be negative")), nil
	}

	runs, err := automation.History(h.db, input.Job, input.Limit)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"runs": runs})
}

// HandleExport handles the snapshot_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Export(ctx, h.st, h.cfg, ops.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the snapshot_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Import(ctx, h.st, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var opsErr *errors.OpsError
	if stderrors.As(err, &opsErr) {
		message := opsErr.Message
		// Keep wrapper context, e.g. "line 3: NOT_FOUND: ..." becomes "line 3: ...".
		if opsErr.Code != errors.ErrInternal && err != error(opsErr) {
			if prefix, ok := strings.CutSuffix(err.Error(), opsErr.Error()); ok {
				message = prefix + opsErr.Message
			}
		}
		errorObj := map[string]any{
			"code":    opsErr.Code,
			"message": message,
			"status":  opsErr.Status,
		}
		if opsErr.Code != errors.ErrInternal && opsErr.Details != nil {
			errorObj["details"] = opsErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
