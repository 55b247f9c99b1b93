package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/automation"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/ops"
)

// Request bodies

type onboardBody struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	Email    bool   `json:"email"`
	SMS      bool   `json:"sms"`
}

type workspacePatchBody struct {
	Name      *string `json:"name"`
	Timezone  *string `json:"timezone"`
	Email     *bool   `json:"email"`
	SMS       *bool   `json:"sms"`
	SetupStep *int    `json:"setup_step"`
}

type roleBody struct {
	Role   string `json:"role"`
	Toggle bool   `json:"toggle"`
}

type statusBody struct {
	Status string `json:"status" binding:"required"`
}

type replyBody struct {
	Content string `json:"content"`
	Channel string `json:"channel"`
}

type adjustBody struct {
	Delta *int `json:"delta" binding:"required"`
}

type itemBody struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
}

type contactBody struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type bookingBody struct {
	ServiceID string    `json:"service_id"`
	Date      time.Time `json:"date"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Notes     string    `json:"notes"`
}

type remindBody struct {
	LeadHours *int `json:"lead_hours"`
}

// Storage

// GetSnapshot handles GET /api/snapshot.
func (h *Handler) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.st.Snapshot())
}

// GetSlot handles GET /api/slots/:slot and returns the stored JSON value as is.
func (h *Handler) GetSlot(c *gin.Context) {
	slot := c.Param("slot")
	values, err := h.st.EncodeSlots()
	if err != nil {
		respondError(c, err)
		return
	}
	data, ok := values[slot]
	if !ok {
		respondError(c, errors.NewNotFound("slot", slot))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// PutSlot handles PUT /api/slots/:slot. The body replaces the slot after
// schema validation.
func (h *Handler) PutSlot(c *gin.Context) {
	slot := c.Param("slot")
	data, err := c.GetRawData()
	if err != nil {
		respondError(c, errors.NewInvalidRequest("could not read body"))
		return
	}
	if err := h.st.ReplaceSlots(map[string][]byte{slot: data}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": slot, "status": "replaced"})
}

// Workspace

// GetWorkspace handles GET /api/workspace.
func (h *Handler) GetWorkspace(c *gin.Context) {
	result, err := ops.GetWorkspace(c.Request.Context(), h.st)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateWorkspace handles PATCH /api/workspace.
func (h *Handler) UpdateWorkspace(c *gin.Context) {
	var body workspacePatchBody
	if !bindJSON(c, &body) {
		return
	}
	result, err := ops.UpdateWorkspace(c.Request.Context(), h.st, ops.UpdateWorkspaceInput{
		Name:      body.Name,
		Timezone:  body.Timezone,
		Email:     body.Email,
		SMS:       body.SMS,
		SetupStep: body.SetupStep,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Onboard handles POST /api/onboard.
func (h *Handler) Onboard(c *gin.Context) {
	var body onboardBody
	if !bindJSON(c, &body) {
		return
	}
	result, err := ops.Onboard(c.Request.Context(), h.st, ops.OnboardInput{
		Name:     body.Name,
		Timezone: body.Timezone,
		Email:    body.Email,
		SMS:      body.SMS,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SetRole handles PUT /api/role.
func (h *Handler) SetRole(c *gin.Context) {
	var body roleBody
	if !bindJSON(c, &body) {
		return
	}
	result, err := ops.SetRole(c.Request.Context(), h.st, ops.SetRoleInput{Role: body.Role, Toggle: body.Toggle})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetDashboard handles GET /api/dashboard.
func (h *Handler) GetDashboard(c *gin.Context) {
	result, err := ops.Dashboard(c.Request.Context(), h.st)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Catalogue

// GetServices handles GET /api/services.
func (h *Handler) GetServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": ops.Services()})
}

// GetAvailability handles GET /api/availability.
func (h *Handler) GetAvailability(c *gin.Context) {
	result, err := ops.AvailableSlots(c.Request.Context(), h.st)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Bookings

// ListBookings handles GET /api/bookings?filter=upcoming|past|all.
func (h *Handler) ListBookings(c *gin.Context) {
	result, err := ops.ListBookings(c.Request.Context(), h.st, ops.ListBookingsInput{Filter: c.Query("filter")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SetBookingStatus handles POST /api/bookings/:id/status.
func (h *Handler) SetBookingStatus(c *gin.Context) {
	var body statusBody
	if !bindJSON(c, &body) {
		return
	}
	result, err := ops.SetBookingStatus(c.Request.Context(), h.st, ops.SetBookingStatusInput{
		ID:     c.Param("id"),
		Status: body.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Inbox

// GetInbox handles GET /api/inbox.
func (h *Handler) GetInbox(c *gin.Context) {
	result, err := ops.Inbox(c.Request.Context(), h.st)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetConversation handles GET /api/inbox/:contact?mark_read=true.
func (h *Handler) GetConversation(c *gin.Context) {
	result, err := ops.Conversation(c.Request.Context(), h.st, ops.ConversationInput{
		ContactID: c.Param("contact"),
		MarkRead:  queryBool(c, "mark_read"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reply handles POST /api/inbox/:contact/reply.
func (h *Handler) Reply(c *gin.Context) {
	var body replyBody
	if !bindJSON(c, &body) {
		return
	}
	msg, err := ops.Reply(c.Request.Context(), h.st, ops.ReplyInput{
		ContactID: c.Param("contact"),
		Content:   body.Content,
		Channel:   body.Channel,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Forms

// ListForms handles GET /api/forms?status=pending|completed.
func (h *Handler) ListForms(c *gin.Context) {
	result, err := ops.ListForms(c.Request.Context(), h.st, ops.ListFormsInput{Status: c.Query("status")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompleteForm handles POST /api/forms/:id/complete.
func (h *Handler) CompleteForm(c *gin.Context) {
	result, err := ops.CompleteForm(c.Request.Context(), h.st, ops.CompleteFormInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Inventory

// ListInventory handles GET /api/inventory?low=true.
func (h *Handler) ListInventory(c *gin.Context) {
	result, err := ops.Inventory(c.Request.Context(), h.st, ops.InventoryInput{LowOnly: queryBool(c, "low")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AddInventoryItem handles POST /api/inventory.
func (h *Handler) AddInventoryItem(c *gin.Context) {
	var body itemBody
	if !bindJSON(c, &body) {
		return
	}
	result, err := ops.AddInventoryItem(c.Request.Context(), h.st, ops.AddInventoryItemInput{
		Name:      body.Name,
		Quantity:  body.Quantity,
		Threshold: body.Threshold,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// AdjustInventory handles POST /api/inventory/:id/adjust. An unknown id
// answers 200 with found=false.
func (h *Handler) AdjustInventory(c *gin.Context) {
	var body adjustBody
	if !bindJSON(c, &body) {
		return
	}
	result, err := ops.AdjustInventory(c.Request.Context(), h.st, ops.AdjustInventoryInput{
		ID:    c.Param("id"),
		Delta: *body.Delta,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Public

// SubmitContact handles POST /api/public/contact.
func (h *Handler) SubmitContact(c *gin.Context) {
	var body contactBody
	if !bindJSON(c, &body) {
		return
	}
	result, err := ops.SubmitContact(c.Request.Context(), h.st, ops.SubmitContactInput{
		Name:    body.Name,
		Email:   body.Email,
		Phone:   body.Phone,
		Message: body.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// SubmitBooking handles POST /api/public/booking. The date is an RFC 3339
// timestamp matching one of the offered slots.
func (h *Handler) SubmitBooking(c *gin.Context) {
	var body bookingBody
	if !bindJSON(c, &body) {
		return
	}
	result, err := ops.SubmitBooking(c.Request.Context(), h.st, ops.SubmitBookingInput{
		ServiceID: body.ServiceID,
		Date:      body.Date,
		Name:      body.Name,
		Email:     body.Email,
		Notes:     body.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Automation

// Remind handles POST /api/automation/remind. An empty body uses the
// configured lead time.
func (h *Handler) Remind(c *gin.Context) {
	var body remindBody
	if c.Request.ContentLength != 0 && !bindJSON(c, &body) {
		return
	}
	hours := h.cfg.ReminderLeadHours
	if body.LeadHours != nil {
		hours = *body.LeadHours
	}
	if hours < 0 {
		respondError(c, errors.NewInvalidRequest("lead_hours must not be negative"))
		return
	}

	run, result, err := h.runner.FormReminders(c.Request.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":   run.ID,
		"reminded": result.Reminded,
		"skipped":  result.Skipped,
	})
}

// History handles GET /api/automation/runs?job=&limit=.
func (h *Handler) History(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}
	runs, err := automation.History(h.db, c.Query("job"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
