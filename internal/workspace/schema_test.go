package workspace

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func newValidator(t *testing.T) *SlotValidator {
	t.Helper()
	v, err := NewSlotValidator()
	if err != nil {
		t.Fatalf("NewSlotValidator() error = %v", err)
	}
	return v
}

func TestSlotValidator_AcceptsEncodedRecords(t *testing.T) {
	v := newValidator(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	values := map[string]any{
		SlotWorkspace: Workspace{Name: "Acme", Timezone: "UTC", Channels: Channels{Email: true}, Activated: true},
		SlotContacts:  []Contact{{ID: "c1", CreatedAt: now, Name: "Ana", Email: "ana@example.com"}},
		SlotBookings: []Booking{{
			ID: "b1", CreatedAt: now, ContactID: "c1", ServiceID: "srv-1", ServiceName: "Consultation",
			Date: now, Duration: 60, Status: BookingConfirmed, FormStatus: FormPending,
		}},
		SlotMessages:  []Message{{ID: "m1", Timestamp: now, ContactID: "c1", Direction: Inbound, Content: "hi", Type: ChannelEmail}},
		SlotInventory: SeedInventory(),
		SlotForms:     []Form{{ID: "f1", Status: FormPending, SentAt: now, ContactID: "c1", Title: "Client Intake Form"}},
		SlotUserRole:  RoleStaff,
	}

	for slot, val := range values {
		data, err := json.Marshal(val)
		if err != nil {
			t.Fatalf("Marshal(%s) error = %v", slot, err)
		}
		if err := v.Validate(slot, data); err != nil {
			t.Errorf("Validate(%s) error = %v", slot, err)
		}
	}
}

func TestSlotValidator_AcceptsEmptyCollections(t *testing.T) {
	v := newValidator(t)
	for _, slot := range []string{SlotContacts, SlotBookings, SlotMessages, SlotInventory, SlotForms} {
		if err := v.Validate(slot, []byte(`[]`)); err != nil {
			t.Errorf("Validate(%s, []) error = %v", slot, err)
		}
	}
}

func TestSlotValidator_Rejects(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name string
		slot string
		data string
	}{
		{"not json", SlotContacts, `{oops`},
		{"object for array slot", SlotContacts, `{"id":"c1"}`},
		{"missing required field", SlotInventory, `[{"id":"inv-1","name":"Room","quantity":1}]`},
		{"negative quantity", SlotInventory, `[{"id":"inv-1","name":"Room","quantity":-1,"threshold":0}]`},
		{"wrong field type", SlotWorkspace, `{"name":"x","timezone":"UTC","channels":{"email":"yes","sms":false},"setupStep":1,"activated":false}`},
		{"unknown role", SlotUserRole, `"admin"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := v.Validate(tc.slot, []byte(tc.data)); err == nil {
				t.Errorf("Validate(%s, %s) expected error", tc.slot, tc.data)
			}
		})
	}
}

func TestSlotValidator_UnknownSlot(t *testing.T) {
	v := newValidator(t)
	err := v.Validate("ops_workspace", []byte(`{}`))
	if err == nil || !strings.Contains(err.Error(), "unknown slot") {
		t.Errorf("Validate(unknown) error = %v", err)
	}
}

func TestSlotSchema_Unknown(t *testing.T) {
	if _, err := SlotSchema("nope"); err == nil {
		t.Error("SlotSchema(nope) expected error")
	}
}
