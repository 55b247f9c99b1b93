package store

import (
	"strings"
	"time"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// UpdateWorkspace shallow-merges patch into the workspace profile.
// Values are not validated; the activated latch cannot be cleared.
func (s *Store) UpdateWorkspace(patch workspace.Patch) (workspace.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Workspace.Apply(patch)
	if err := s.save(workspace.SlotWorkspace, next); err != nil {
		return workspace.Workspace{}, err
	}
	s.state.Workspace = next
	return next, nil
}

// AddContact stamps id and createdAt (unless the caller set them) and prepends the
// contact so the collection stays most-recent-first.
func (s *Store) AddContact(c workspace.Contact) (workspace.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		id, err := s.id()
		if err != nil {
			return workspace.Contact{}, err
		}
		c.ID = id
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	next := make([]workspace.Contact, 0, len(s.state.Contacts)+1)
	next = append(next, c)
	next = append(next, s.state.Contacts...)
	if err := s.save(workspace.SlotContacts, next); err != nil {
		return workspace.Contact{}, err
	}
	s.state.Contacts = next
	return c, nil
}

// AddBooking stamps id and createdAt, defaults status to confirmed and formStatus to
// pending, and appends in insertion order. Caller-set fields win over defaults.
func (s *Store) AddBooking(b workspace.Booking) (workspace.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		id, err := s.id()
		if err != nil {
			return workspace.Booking{}, err
		}
		b.ID = id
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}
	if b.Status == "" {
		b.Status = workspace.BookingConfirmed
	}
	if b.FormStatus == "" {
		b.FormStatus = workspace.FormPending
	}

	next := append(append([]workspace.Booking{}, s.state.Bookings...), b)
	if err := s.save(workspace.SlotBookings, next); err != nil {
		return workspace.Booking{}, err
	}
	s.state.Bookings = next
	return b, nil
}

// AddMessage stamps id and timestamp and appends. Read defaults to false.
func (s *Store) AddMessage(m workspace.Message) (workspace.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		id, err := s.id()
		if err != nil {
			return workspace.Message{}, err
		}
		m.ID = id
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}

	next := append(append([]workspace.Message{}, s.state.Messages...), m)
	if err := s.save(workspace.SlotMessages, next); err != nil {
		return workspace.Message{}, err
	}
	s.state.Messages = next
	return m, nil
}

// AddForm stamps id and sentAt, defaults status to pending, and appends.
func (s *Store) AddForm(f workspace.Form) (workspace.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		id, err := s.id()
		if err != nil {
			return workspace.Form{}, err
		}
		f.ID = id
	}
	if f.SentAt.IsZero() {
		f.SentAt = s.now()
	}
	if f.Status == "" {
		f.Status = workspace.FormPending
	}

	next := append(append([]workspace.Form{}, s.state.Forms...), f)
	if err := s.save(workspace.SlotForms, next); err != nil {
		return workspace.Form{}, err
	}
	s.state.Forms = next
	return f, nil
}

// UpdateInventoryQuantity sets quantity = max(0, quantity+delta) on the item with id.
// An unknown id is a silent no-op: found is false and nothing is written.
func (s *Store) UpdateInventoryQuantity(id string, delta int) (item workspace.InventoryItem, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, it := range s.state.Inventory {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return workspace.InventoryItem{}, false, nil
	}

	next := append([]workspace.InventoryItem{}, s.state.Inventory...)
	next[idx].Quantity = max(0, next[idx].Quantity+delta)
	if err := s.save(workspace.SlotInventory, next); err != nil {
		return workspace.InventoryItem{}, true, err
	}
	s.state.Inventory = next
	return next[idx], true, nil
}

// AddInventoryItem appends a new stocked item. Quantity and threshold must be >= 0.
func (s *Store) AddInventoryItem(item workspace.InventoryItem) (workspace.InventoryItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return workspace.InventoryItem{}, errors.NewInvalidRequest("name is required")
	}
	if item.Quantity < 0 || item.Threshold < 0 {
		return workspace.InventoryItem{}, errors.NewInvalidRequest("quantity and threshold must be >= 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		id, err := s.id()
		if err != nil {
			return workspace.InventoryItem{}, err
		}
		item.ID = id
	}
	for _, it := range s.state.Inventory {
		if it.ID == item.ID {
			return workspace.InventoryItem{}, errors.NewInvalidRequest("inventory id already exists: " + item.ID)
		}
	}

	next := append(append([]workspace.InventoryItem{}, s.state.Inventory...), item)
	if err := s.save(workspace.SlotInventory, next); err != nil {
		return workspace.InventoryItem{}, err
	}
	s.state.Inventory = next
	return item, nil
}

// SetUserRole swaps the current role. Only owner and staff are accepted.
func (s *Store) SetUserRole(role workspace.Role) (workspace.Role, error) {
	if !role.Valid() {
		return "", errors.NewInvalidRequest("role must be one of: owner, staff")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(workspace.SlotUserRole, role); err != nil {
		return "", err
	}
	s.state.Role = role
	return role, nil
}

// SetBookingStatus overwrites a booking's status. No transition rules apply.
func (s *Store) SetBookingStatus(id string, status workspace.BookingStatus) (workspace.Booking, error) {
	if strings.TrimSpace(string(status)) == "" {
		return workspace.Booking{}, errors.NewInvalidRequest("status is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.bookingIndex(id)
	if idx < 0 {
		return workspace.Booking{}, errors.NewNotFound("booking", id)
	}

	next := append([]workspace.Booking{}, s.state.Bookings...)
	next[idx].Status = status
	if err := s.save(workspace.SlotBookings, next); err != nil {
		return workspace.Booking{}, err
	}
	s.state.Bookings = next
	return next[idx], nil
}

// SendReminder appends the reminder message and stamps the booking's
// reminderSentAt in one write. Eligibility is re-checked under the lock; a
// booking that is no longer due reports false and nothing is written.
func (s *Store) SendReminder(bookingID string, m workspace.Message, at time.Time) (workspace.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.bookingIndex(bookingID)
	if idx < 0 {
		return workspace.Message{}, false, errors.NewNotFound("booking", bookingID)
	}
	b := s.state.Bookings[idx]
	if b.ReminderSentAt != nil || b.Status != workspace.BookingConfirmed || b.FormStatus != workspace.FormPending {
		return workspace.Message{}, false, nil
	}

	if m.ID == "" {
		id, err := s.id()
		if err != nil {
			return workspace.Message{}, false, err
		}
		m.ID = id
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	if m.ContactID == "" {
		m.ContactID = b.ContactID
	}

	messages := append(append([]workspace.Message{}, s.state.Messages...), m)
	bookings := append([]workspace.Booking{}, s.state.Bookings...)
	bookings[idx].ReminderSentAt = &at
	if err := s.saveAll(map[string]any{
		workspace.SlotMessages: messages,
		workspace.SlotBookings: bookings,
	}); err != nil {
		return workspace.Message{}, false, err
	}
	s.state.Messages = messages
	s.state.Bookings = bookings
	return m, true, nil
}

func (s *Store) bookingIndex(id string) int {
	for i, b := range s.state.Bookings {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// SetFormStatus overwrites a form's status. When the form is linked to a booking,
// the booking's formStatus follows, and both slots are written together.
func (s *Store) SetFormStatus(id string, status workspace.FormStatus) (workspace.Form, error) {
	if strings.TrimSpace(string(status)) == "" {
		return workspace.Form{}, errors.NewInvalidRequest("status is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, f := range s.state.Forms {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return workspace.Form{}, errors.NewNotFound("form", id)
	}

	forms := append([]workspace.Form{}, s.state.Forms...)
	forms[idx].Status = status

	bIdx := -1
	if rel := forms[idx].RelatedBookingID; rel != "" {
		bIdx = s.bookingIndex(rel)
	}
	if bIdx < 0 {
		if err := s.save(workspace.SlotForms, forms); err != nil {
			return workspace.Form{}, err
		}
		s.state.Forms = forms
		return forms[idx], nil
	}

	bookings := append([]workspace.Booking{}, s.state.Bookings...)
	bookings[bIdx].FormStatus = status
	if err := s.saveAll(map[string]any{
		workspace.SlotForms:    forms,
		workspace.SlotBookings: bookings,
	}); err != nil {
		return workspace.Form{}, err
	}
	s.state.Forms = forms
	s.state.Bookings = bookings
	return forms[idx], nil
}

// MarkConversationRead marks every unread inbound message from contactID as read
// and returns how many changed. Nothing is written when none changed.
func (s *Store) MarkConversationRead(contactID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]workspace.Message{}, s.state.Messages...)
	changed := 0
	for i, m := range next {
		if m.ContactID == contactID && m.Direction == workspace.Inbound && !m.Read {
			next[i].Read = true
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	if err := s.save(workspace.SlotMessages, next); err != nil {
		return 0, err
	}
	s.state.Messages = next
	return changed, nil
}
