package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/ops"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title      string
	Version    string
	Nav        string // active sidebar path, e.g. "/inbox"
	Business   string
	Role       workspace.Role
	Navigation []workspace.NavItem
	Public     bool // public pages hide the sidebar
	Loc        *time.Location
}

// DashboardPageData is the template data for the dashboard.
type DashboardPageData struct {
	PageData
	Greeting string
	workspace.Dashboard
}

// InboxPageData is the template data for the conversation list.
type InboxPageData struct {
	PageData
	*ops.InboxOutput
}

// ConversationPageData is the template data for one conversation.
type ConversationPageData struct {
	PageData
	Conversation workspace.Conversation
	Messages     []RenderedMessage
}

// RenderedMessage is a message with its content rendered as markdown.
type RenderedMessage struct {
	workspace.Message
	HTML template.HTML
}

// BookingsPageData is the template data for the bookings list.
type BookingsPageData struct {
	PageData
	*ops.ListBookingsOutput
	Filters []workspace.BookingFilter
}

// FormsPageData is the template data for the forms list.
type FormsPageData struct {
	PageData
	*ops.ListFormsOutput
	Status string
}

// InventoryPageData is the template data for the inventory page.
type InventoryPageData struct {
	PageData
	*ops.InventoryOutput
}

// OnboardingPageData is the template data for the setup wizard.
type OnboardingPageData struct {
	PageData
	Workspace workspace.Workspace
	Error     string
}

// BookNowPageData is the template data for the public booking page.
type BookNowPageData struct {
	PageData
	Services []ops.Service
	Slots    []time.Time
	Error    string
}

// ContactPageData is the template data for the public contact page.
type ContactPageData struct {
	PageData
	Error string
}

// ThanksPageData is the template data shown after a public submission.
type ThanksPageData struct {
	PageData
	Message string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"localTime": localTime,
		"isActive":  func(nav, path string) bool { return nav == path },
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"dashboard":    "dashboard.html",
		"inbox":        "inbox.html",
		"conversation": "conversation.html",
		"bookings":     "bookings.html",
		"forms":        "forms.html",
		"inventory":    "inventory.html",
		"staff":        "staff.html",
		"onboarding":   "onboarding.html",
		"contact":      "contact.html",
		"book":         "book.html",
		"thanks":       "thanks.html",
		"error":        "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		log.WithField("template", name).Error("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.WithError(err).WithField("template", name).Error("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var opsErr *errors.OpsError
	if !stderrors.As(err, &opsErr) {
		opsErr = errors.NewInternal(err)
	}
	if opsErr.Code == errors.ErrInternal {
		log.WithError(err).Error("request failed")
	}

	status := opsErr.Status
	message := opsErr.Message
	if status == 499 {
		status = http.StatusRequestTimeout
	}

	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(opsErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
			Public:  true,
		},
		StatusCode: status,
		Message:    message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts message text to HTML using goldmark.
// Raw HTML in the source is dropped by goldmark's default renderer.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func renderMessages(msgs []workspace.Message) []RenderedMessage {
	out := make([]RenderedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = RenderedMessage{Message: m, HTML: renderMarkdown(m.Content)}
	}
	return out
}

// localTime formats t in loc as "Mar 10, 2026 9:00 AM".
func localTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(ops.BookingTimeLayout)
}
