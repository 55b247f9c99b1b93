// Package workspace holds the records of a business workspace (profile, contacts,
// bookings, messages, inventory, forms, user role) and the pure views derived from them.
package workspace

import "time"

// Slot names. Each collection is persisted independently under its slot name.
const (
	SlotWorkspace = "workspace"
	SlotContacts  = "contacts"
	SlotBookings  = "bookings"
	SlotMessages  = "messages"
	SlotInventory = "inventory"
	SlotForms     = "forms"
	SlotUserRole  = "user_role"
)

// AllSlots lists every slot in load order.
var AllSlots = []string{
	SlotWorkspace,
	SlotContacts,
	SlotBookings,
	SlotMessages,
	SlotInventory,
	SlotForms,
	SlotUserRole,
}

// IsSlot reports whether name is a known slot.
func IsSlot(name string) bool {
	for _, s := range AllSlots {
		if s == name {
			return true
		}
	}
	return false
}

// MaxSetupStep is the last onboarding step.
const MaxSetupStep = 8

// Channels are the outbound channels enabled for the workspace.
type Channels struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

// Workspace is the singleton business profile configured during onboarding.
type Workspace struct {
	Name      string   `json:"name"`
	Timezone  string   `json:"timezone"`
	Channels  Channels `json:"channels"`
	SetupStep int      `json:"setupStep"`
	Activated bool     `json:"activated"`
}

// DefaultWorkspace returns the profile used before onboarding.
func DefaultWorkspace() Workspace {
	return Workspace{}
}

// Patch is a partial Workspace update. Nil fields are left untouched.
type Patch struct {
	Name      *string   `json:"name,omitempty"`
	Timezone  *string   `json:"timezone,omitempty"`
	Channels  *Channels `json:"channels,omitempty"`
	SetupStep *int      `json:"setupStep,omitempty"`
	Activated *bool     `json:"activated,omitempty"`
}

// IsEmpty reports whether the patch sets no field.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Timezone == nil && p.Channels == nil && p.SetupStep == nil && p.Activated == nil
}

// Apply shallow-merges p into w. Values are not validated.
// Activated is a one-way latch: once true, a patch cannot clear it.
func (w Workspace) Apply(p Patch) Workspace {
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.Timezone != nil {
		w.Timezone = *p.Timezone
	}
	if p.Channels != nil {
		w.Channels = *p.Channels
	}
	if p.SetupStep != nil {
		w.SetupStep = *p.SetupStep
	}
	if p.Activated != nil && !w.Activated {
		w.Activated = *p.Activated
	}
	return w
}

// Contact is a person who reached the business through a booking or message.
type Contact struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
}

// BookingStatus is the lifecycle state of a booking. Any value may be stored.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// FormStatus is the state of an intake form.
type FormStatus string

const (
	FormPending   FormStatus = "pending"
	FormCompleted FormStatus = "completed"
)

// Booking is an appointment for a contact.
// ServiceName is a copy taken at booking time and is not kept in sync with the catalogue.
type Booking struct {
	ID             string        `json:"id"`
	CreatedAt      time.Time     `json:"createdAt"`
	ContactID      string        `json:"contactId"`
	ServiceID      string        `json:"serviceId"`
	ServiceName    string        `json:"serviceName"`
	Date           time.Time     `json:"date"`
	Duration       int           `json:"duration"`
	Notes          string        `json:"notes"`
	Status         BookingStatus `json:"status"`
	FormStatus     FormStatus    `json:"formStatus"`
	ReminderSentAt *time.Time    `json:"reminderSentAt,omitempty"`
}

// Direction tells whether a message came from the contact or the business.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Channel is the medium a message travelled on.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Message is one entry in a conversation with a contact.
type Message struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ContactID string    `json:"contactId"`
	Direction Direction `json:"direction"`
	Content   string    `json:"content"`
	Type      Channel   `json:"type"`
	Automated bool      `json:"automated,omitempty"`
	Read      bool      `json:"read"`
}

// InventoryItem is a stocked resource with a low-stock threshold.
type InventoryItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity" jsonschema:"minimum=0"`
	Threshold int    `json:"threshold" jsonschema:"minimum=0"`
}

// Form is an intake form sent to a contact, optionally tied to a booking.
type Form struct {
	ID               string     `json:"id"`
	Status           FormStatus `json:"status"`
	SentAt           time.Time  `json:"sentAt"`
	ContactID        string     `json:"contactId"`
	Title            string     `json:"title"`
	RelatedBookingID string     `json:"relatedBookingId,omitempty"`
}

// Role selects which navigation entries are shown. It is not a permission boundary.
type Role string

const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
)

// DefaultRole is the role before anyone switches.
const DefaultRole = RoleOwner

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleStaff
}

// SeedInventory returns the starter items written when the inventory slot is empty.
func SeedInventory() []InventoryItem {
	return []InventoryItem{
		{ID: "inv-1", Name: "Consultation Room A", Quantity: 1, Threshold: 1},
		{ID: "inv-2", Name: "Repair Parts Kit", Quantity: 15, Threshold: 5},
		{ID: "inv-3", Name: "Welcome Pack", Quantity: 3, Threshold: 5},
	}
}

// Snapshot is a copy of every slot at one point in time.
type Snapshot struct {
	Workspace Workspace       `json:"workspace"`
	Contacts  []Contact       `json:"contacts"`
	Bookings  []Booking       `json:"bookings"`
	Messages  []Message       `json:"messages"`
	Inventory []InventoryItem `json:"inventory"`
	Forms     []Form          `json:"forms"`
	Role      Role            `json:"userRole"`
}
