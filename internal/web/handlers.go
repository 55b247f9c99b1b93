package web

import (
	stderrors "errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/ops"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	st       *store.Store
	cfg      *config.Config
	renderer *Renderer
}

// activated redirects back-office pages to the setup wizard until onboarding is done.
func (h *Handlers) activated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.st.Workspace().Activated {
			http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
			return
		}
		next(w, r)
	})
}

// page fills the fields shared by every back-office page.
func (h *Handlers) page(title, nav string) PageData {
	snap := h.st.Snapshot()
	return PageData{
		Title:      title,
		Version:    h.renderer.version,
		Nav:        nav,
		Business:   snap.Workspace.Name,
		Role:       snap.Role,
		Navigation: workspace.Navigation(snap.Role),
		Loc:        ops.Location(snap.Workspace),
	}
}

func (h *Handlers) publicPage(title string) PageData {
	w := h.st.Workspace()
	return PageData{
		Title:    title,
		Version:  h.renderer.version,
		Business: w.Name,
		Public:   true,
		Loc:      ops.Location(w),
	}
}

// HandleDashboard handles GET /: today's overview.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Dashboard(r.Context(), h.st)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "dashboard", DashboardPageData{
		PageData:  h.page("Dashboard", "/"),
		Greeting:  result.Greeting,
		Dashboard: result.Dashboard,
	})
}

// HandleInbox handles GET /inbox: conversations, most recent first.
func (h *Handlers) HandleInbox(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Inbox(r.Context(), h.st)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "inbox", InboxPageData{
		PageData:    h.page("Inbox", "/inbox"),
		InboxOutput: result,
	})
}

// HandleConversation handles GET /inbox/{contact}: opening a thread marks it read.
func (h *Handlers) HandleConversation(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Conversation(r.Context(), h.st, ops.ConversationInput{
		ContactID: r.PathValue("contact"),
		MarkRead:  true,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	conv := result.Conversation
	h.renderer.renderPage(w, "conversation", ConversationPageData{
		PageData:     h.page(conv.Contact.DisplayName(), "/inbox"),
		Conversation: conv,
		Messages:     renderMessages(conv.Messages),
	})
}

// HandleReply handles POST /inbox/{contact}/reply.
func (h *Handlers) HandleReply(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	contactID := r.PathValue("contact")
	_, err := ops.Reply(r.Context(), h.st, ops.ReplyInput{
		ContactID: contactID,
		Content:   r.FormValue("content"),
		Channel:   r.FormValue("channel"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/inbox/"+url.PathEscape(contactID), http.StatusSeeOther)
}

// HandleBookings handles GET /bookings?filter=upcoming|past|all.
func (h *Handlers) HandleBookings(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListBookings(r.Context(), h.st, ops.ListBookingsInput{Filter: r.URL.Query().Get("filter")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "bookings", BookingsPageData{
		PageData:           h.page("Bookings", "/bookings"),
		ListBookingsOutput: result,
		Filters:            []workspace.BookingFilter{workspace.FilterUpcoming, workspace.FilterPast, workspace.FilterAll},
	})
}

// HandleBookingStatus handles POST /bookings/{id}/status.
func (h *Handlers) HandleBookingStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	_, err := ops.SetBookingStatus(r.Context(), h.st, ops.SetBookingStatusInput{
		ID:     r.PathValue("id"),
		Status: r.FormValue("status"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/bookings?filter="+url.QueryEscape(r.FormValue("filter")), http.StatusSeeOther)
}

// HandleForms handles GET /forms?status=pending|completed.
func (h *Handlers) HandleForms(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	result, err := ops.ListForms(r.Context(), h.st, ops.ListFormsInput{Status: status})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "forms", FormsPageData{
		PageData:        h.page("Forms", "/forms"),
		ListFormsOutput: result,
		Status:          status,
	})
}

// HandleCompleteForm handles POST /forms/{id}/complete.
func (h *Handlers) HandleCompleteForm(w http.ResponseWriter, r *http.Request) {
	if _, err := ops.CompleteForm(r.Context(), h.st, ops.CompleteFormInput{ID: r.PathValue("id")}); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/forms", http.StatusSeeOther)
}

// HandleInventory handles GET /inventory.
func (h *Handlers) HandleInventory(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Inventory(r.Context(), h.st, ops.InventoryInput{LowOnly: parseBoolParam(r, "low")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "inventory", InventoryPageData{
		PageData:        h.page("Inventory", "/inventory"),
		InventoryOutput: result,
	})
}

// HandleAdjust handles POST /inventory/{id}/adjust with a signed delta.
func (h *Handlers) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	delta, err := strconv.Atoi(strings.TrimSpace(r.FormValue("delta")))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("delta must be an integer"))
		return
	}
	if _, err := ops.AdjustInventory(r.Context(), h.st, ops.AdjustInventoryInput{ID: r.PathValue("id"), Delta: delta}); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/inventory", http.StatusSeeOther)
}

// HandleAddItem handles POST /inventory: add a new item.
func (h *Handlers) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	quantity, qErr := parseIntField(r.FormValue("quantity"))
	threshold, tErr := parseIntField(r.FormValue("threshold"))
	if qErr != nil || tErr != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("quantity and threshold must be integers"))
		return
	}
	_, err := ops.AddInventoryItem(r.Context(), h.st, ops.AddInventoryItemInput{
		Name:      r.FormValue("name"),
		Quantity:  quantity,
		Threshold: threshold,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/inventory", http.StatusSeeOther)
}

// HandleStaff handles GET /staff. Staff see a notice instead of the team page.
func (h *Handlers) HandleStaff(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "staff", h.page("Staff", "/staff"))
}

// HandleRole handles POST /role: switch between the owner and staff views.
func (h *Handlers) HandleRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	input := ops.SetRoleInput{Role: r.FormValue("role")}
	if input.Role == "" {
		input.Toggle = true
	}
	if _, err := ops.SetRole(r.Context(), h.st, input); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleOnboarding handles GET /onboarding. An activated workspace goes to the dashboard.
func (h *Handlers) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	ws := h.st.Workspace()
	if ws.Activated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderer.renderPage(w, "onboarding", OnboardingPageData{
		PageData:  h.publicPage("Set up your workspace"),
		Workspace: ws,
	})
}

// HandleOnboardingSubmit handles POST /onboarding: finish setup and activate.
func (h *Handlers) HandleOnboardingSubmit(w http.ResponseWriter, r *http.Request) {
	if h.st.Workspace().Activated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	_, err := ops.Onboard(r.Context(), h.st, ops.OnboardInput{
		Name:     r.FormValue("name"),
		Timezone: r.FormValue("timezone"),
		Email:    r.FormValue("email") != "",
		SMS:      r.FormValue("sms") != "",
	})
	if err != nil {
		if msg, ok := invalidMessage(err); ok {
			h.renderer.renderPageStatus(w, http.StatusBadRequest, "onboarding", OnboardingPageData{
				PageData:  h.publicPage("Set up your workspace"),
				Workspace: h.st.Workspace(),
				Error:     msg,
			})
			return
		}
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleContactPage handles GET /contact-us.
func (h *Handlers) HandleContactPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "contact", ContactPageData{PageData: h.publicPage("Contact us")})
}

// HandleContactSubmit handles POST /contact-us.
func (h *Handlers) HandleContactSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	_, err := ops.SubmitContact(r.Context(), h.st, ops.SubmitContactInput{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Phone:   r.FormValue("phone"),
		Message: r.FormValue("message"),
	})
	if err != nil {
		if msg, ok := invalidMessage(err); ok {
			h.renderer.renderPageStatus(w, http.StatusBadRequest, "contact", ContactPageData{
				PageData: h.publicPage("Contact us"),
				Error:    msg,
			})
			return
		}
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "thanks", ThanksPageData{
		PageData: h.publicPage("Message sent"),
		Message:  ops.WelcomeReply,
	})
}

// HandleBookPage handles GET /book-now: services and open slots.
func (h *Handlers) HandleBookPage(w http.ResponseWriter, r *http.Request) {
	h.renderBook(w, r, http.StatusOK, "")
}

func (h *Handlers) renderBook(w http.ResponseWriter, r *http.Request, status int, msg string) {
	slots, err := ops.AvailableSlots(r.Context(), h.st)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPageStatus(w, status, "book", BookNowPageData{
		PageData: h.publicPage("Book now"),
		Services: ops.Services(),
		Slots:    slots.Slots,
		Error:    msg,
	})
}

// HandleBookSubmit handles POST /book-now.
func (h *Handlers) HandleBookSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	date, err := time.Parse(time.RFC3339, r.FormValue("slot"))
	if err != nil {
		h.renderBook(w, r, http.StatusBadRequest, "please pick a time slot")
		return
	}
	result, err := ops.SubmitBooking(r.Context(), h.st, ops.SubmitBookingInput{
		ServiceID: r.FormValue("service"),
		Date:      date,
		Name:      r.FormValue("name"),
		Email:     r.FormValue("email"),
		Notes:     r.FormValue("notes"),
	})
	if err != nil {
		if msg, ok := invalidMessage(err); ok {
			h.renderBook(w, r, http.StatusBadRequest, msg)
			return
		}
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "thanks", ThanksPageData{
		PageData: h.publicPage("Booking confirmed"),
		Message:  result.Confirmation.Content,
	})
}

// invalidMessage returns the message of an INVALID_REQUEST error, for
// re-rendering a form instead of the error page.
func invalidMessage(err error) (string, bool) {
	var opsErr *errors.OpsError
	if stderrors.As(err, &opsErr) && opsErr.Code == errors.ErrInvalidRequest {
		return opsErr.Message, true
	}
	return "", false
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// parseIntField parses an optional integer form field; empty means zero.
func parseIntField(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
