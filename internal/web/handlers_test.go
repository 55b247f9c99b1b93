package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/db"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/ops"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const firstSlot = "2026-03-11T09:00:00Z"

func setupTest(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	st, err := store.Open(db.NewSlotStore(database), store.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return NewHandler(st, config.DefaultConfig(), "test", nil), st
}

func setupOnboarded(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()
	h, st := setupTest(t)
	if _, err := ops.Onboard(context.Background(), st, ops.OnboardInput{Name: "Acme Repairs", Email: true}); err != nil {
		t.Fatalf("Onboard: %v", err)
	}
	return h, st
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != want {
		t.Errorf("Location = %q, want %q", loc, want)
	}
}

// --- onboarding gate ---

func TestBackOffice_RedirectsUntilActivated(t *testing.T) {
	h, _ := setupTest(t)

	for _, path := range []string{"/", "/inbox", "/bookings", "/forms", "/inventory", "/staff"} {
		assertRedirect(t, get(h, path), "/onboarding")
	}

	rec := get(h, "/onboarding")
	if rec.Code != http.StatusOK {
		t.Fatalf("onboarding status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Activate workspace") {
		t.Error("expected the setup form")
	}
}

func TestOnboarding_Submit(t *testing.T) {
	h, st := setupTest(t)

	rec := postForm(h, "/onboarding", url.Values{"name": {"  "}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "name is required") {
		t.Error("expected the validation message on the form")
	}

	rec = postForm(h, "/onboarding", url.Values{"name": {"Acme Repairs"}, "timezone": {"Europe/London"}, "email": {"1"}})
	assertRedirect(t, rec, "/")

	ws := st.Workspace()
	if !ws.Activated || ws.Timezone != "Europe/London" || !ws.Channels.Email || ws.Channels.SMS {
		t.Errorf("workspace = %+v", ws)
	}

	assertRedirect(t, get(h, "/onboarding"), "/")
}

// --- back office pages ---

func TestDashboard(t *testing.T) {
	h, _ := setupOnboarded(t)

	rec := get(h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Overview for Acme Repairs", "Welcome Pack", `href="/staff"`} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestRole_StaffHidesStaffNav(t *testing.T) {
	h, st := setupOnboarded(t)

	assertRedirect(t, postForm(h, "/role", url.Values{}), "/")
	if st.Role() != workspace.RoleStaff {
		t.Fatalf("role = %q, want staff", st.Role())
	}

	body := get(h, "/").Body.String()
	if strings.Contains(body, `href="/staff"`) {
		t.Error("staff should not see the Staff entry")
	}
	if !strings.Contains(body, "Hello, Staff Member") {
		t.Error("expected the staff greeting")
	}
}

func TestConversation_RendersMarkdownAndMarksRead(t *testing.T) {
	h, st := setupOnboarded(t)

	out, err := ops.SubmitContact(context.Background(), st, ops.SubmitContactInput{
		Name:    "Sam",
		Email:   "sam@example.com",
		Message: "**urgent** leak <script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("SubmitContact: %v", err)
	}

	inbox := get(h, "/inbox").Body.String()
	if !strings.Contains(inbox, "/inbox/"+out.Contact.ID) {
		t.Error("inbox should link to the conversation")
	}

	rec := get(h, "/inbox/"+out.Contact.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>urgent</strong>") {
		t.Error("expected markdown to be rendered")
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("raw HTML in messages must not be rendered")
	}

	for _, m := range st.Snapshot().Messages {
		if m.Direction == workspace.Inbound && !m.Read {
			t.Errorf("inbound message %s still unread after opening the conversation", m.ID)
		}
	}
}

func TestReply(t *testing.T) {
	h, st := setupOnboarded(t)
	out, err := ops.SubmitContact(context.Background(), st, ops.SubmitContactInput{
		Name: "Sam", Email: "sam@example.com", Message: "hi",
	})
	if err != nil {
		t.Fatalf("SubmitContact: %v", err)
	}

	rec := postForm(h, "/inbox/"+out.Contact.ID+"/reply", url.Values{"content": {"On our way"}})
	assertRedirect(t, rec, "/inbox/"+out.Contact.ID)

	msgs := st.Snapshot().Messages
	last := msgs[len(msgs)-1]
	if last.Content != "On our way" || last.Direction != workspace.Outbound || last.Type != workspace.ChannelEmail {
		t.Errorf("last message = %+v", last)
	}

	rec = postForm(h, "/inbox/"+out.Contact.ID+"/reply", url.Values{"content": {" "}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty reply status = %d, want 400", rec.Code)
	}
}

func TestBookingsAndForms(t *testing.T) {
	h, st := setupOnboarded(t)
	slot, _ := time.Parse(time.RFC3339, firstSlot)
	out, err := ops.SubmitBooking(context.Background(), st, ops.SubmitBookingInput{
		ServiceID: "srv-2", Date: slot, Name: "Jane Doe", Email: "jane@example.com",
	})
	if err != nil {
		t.Fatalf("SubmitBooking: %v", err)
	}

	body := get(h, "/bookings").Body.String()
	if !strings.Contains(body, "Service Repair") || !strings.Contains(body, "Jane Doe") {
		t.Error("expected the upcoming booking with its contact")
	}
	if body := get(h, "/bookings?filter=past").Body.String(); strings.Contains(body, "Jane Doe") {
		t.Error("past filter should not list an upcoming booking")
	}
	if rec := get(h, "/bookings?filter=soon"); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown filter status = %d, want 400", rec.Code)
	}

	rec := postForm(h, "/bookings/"+out.Booking.ID+"/status", url.Values{"status": {"cancelled"}, "filter": {"all"}})
	assertRedirect(t, rec, "/bookings?filter=all")
	if got := st.Snapshot().Bookings[0].Status; got != workspace.BookingCancelled {
		t.Errorf("status = %q, want cancelled", got)
	}

	if body := get(h, "/forms?status=pending").Body.String(); !strings.Contains(body, ops.IntakeFormTitle) {
		t.Error("expected the pending intake form")
	}
	assertRedirect(t, postForm(h, "/forms/"+out.Form.ID+"/complete", nil), "/forms")
	if got := st.Snapshot().Bookings[0].FormStatus; got != workspace.FormCompleted {
		t.Errorf("booking formStatus = %q, want completed", got)
	}
}

func TestInventory(t *testing.T) {
	h, st := setupOnboarded(t)

	if body := get(h, "/inventory").Body.String(); !strings.Contains(body, "Repair Parts Kit") {
		t.Error("expected seeded inventory")
	}

	assertRedirect(t, postForm(h, "/inventory/inv-2/adjust", url.Values{"delta": {"-12"}}), "/inventory")
	if q := st.Snapshot().Inventory[1].Quantity; q != 3 {
		t.Errorf("quantity = %d, want 3", q)
	}

	if rec := postForm(h, "/inventory/inv-2/adjust", url.Values{"delta": {"lots"}}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad delta status = %d, want 400", rec.Code)
	}

	assertRedirect(t, postForm(h, "/inventory", url.Values{"name": {"Gloves"}, "quantity": {"4"}, "threshold": {"2"}}), "/inventory")
	inv := st.Snapshot().Inventory
	if len(inv) != 4 || inv[3].Name != "Gloves" || inv[3].Quantity != 4 {
		t.Errorf("inventory = %+v", inv)
	}
}

// --- public pages ---

func TestPublicBooking(t *testing.T) {
	h, st := setupTest(t)

	rec := get(h, "/book-now")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "Consultation") || !strings.Contains(body, firstSlot) {
		t.Error("expected services and slots on the booking page")
	}

	rec = postForm(h, "/book-now", url.Values{"service": {"srv-1"}, "name": {"Jane"}, "email": {"jane@example.com"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing slot status = %d, want 400", rec.Code)
	}

	rec = postForm(h, "/book-now", url.Values{
		"service": {"srv-1"},
		"slot":    {firstSlot},
		"name":    {"Jane"},
		"email":   {"jane@example.com"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Booking Confirmed for Consultation on Mar 11, 2026 9:00 AM") {
		t.Error("expected the confirmation text")
	}
	if got := len(st.Snapshot().Bookings); got != 1 {
		t.Errorf("bookings = %d, want 1", got)
	}
}

func TestPublicContact(t *testing.T) {
	h, st := setupTest(t)

	rec := postForm(h, "/contact-us", url.Values{"name": {"Sam"}, "message": {"hi"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "email is required") {
		t.Error("expected the validation message")
	}

	rec = postForm(h, "/contact-us", url.Values{"name": {"Sam"}, "email": {"sam@example.com"}, "message": {"hi"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Thanks for reaching out") {
		t.Error("expected the welcome reply")
	}
	if got := len(st.Snapshot().Messages); got != 2 {
		t.Errorf("messages = %d, want 2", got)
	}
}

// --- plumbing ---

func TestRenderError_JSON(t *testing.T) {
	h, _ := setupOnboarded(t)

	req := httptest.NewRequest("GET", "/inbox/nobody", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var payload map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["error"]["code"] != "NOT_FOUND" {
		t.Errorf("code = %v, want NOT_FOUND", payload["error"]["code"])
	}
}

func TestSecurityHeadersAndStatic(t *testing.T) {
	h, _ := setupTest(t)

	rec := get(h, "/static/style.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("static status = %d, want 200", rec.Code)
	}
	for _, header := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"} {
		if rec.Header().Get(header) == "" {
			t.Errorf("missing %s header", header)
		}
	}
}

func TestAPIMount(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	st, err := store.Open(db.NewSlotStore(database))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := NewHandler(st, config.DefaultConfig(), "test", api)

	if rec := get(h, "/api/dashboard"); rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want the mounted API handler", rec.Code)
	}
}
