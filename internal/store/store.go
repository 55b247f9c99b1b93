// Package store owns the workspace state: it loads every slot at startup, seeds
// starter inventory, and persists each mutation before committing it in memory.
package store

import (
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/logging"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// Persister reads and writes raw slot values.
type Persister interface {
	Load(name string) (data []byte, found bool, err error)
	Save(name string, data []byte) error
	SaveAll(values map[string][]byte) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for createdAt/timestamp/sentAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) { s.newID = gen }
}

// Store is the workspace state container shared by every surface.
// All methods are safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	p         Persister
	validator *workspace.SlotValidator
	now       func() time.Time
	newID     func() (string, error)
	log       *logrus.Entry

	state workspace.Snapshot
}

// Open loads every slot from p, substituting defaults for absent slots, and seeds
// the starter inventory when the inventory slot is empty.
// A slot that fails schema validation aborts Open with a CORRUPT_SLOT error.
func Open(p Persister, opts ...Option) (*Store, error) {
	validator, err := workspace.NewSlotValidator()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	s := &Store{
		p:         p,
		validator: validator,
		now:       time.Now,
		log:       logging.NewLogger("store"),
		state:     defaultSnapshot(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newID == nil {
		s.newID = ulidGenerator(s.now)
	}

	for _, slot := range workspace.AllSlots {
		data, found, err := p.Load(slot)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		if err := s.validator.Validate(slot, data); err != nil {
			return nil, errors.NewCorruptSlot(slot, err)
		}
		if err := decodeSlot(&s.state, slot, data); err != nil {
			return nil, errors.NewCorruptSlot(slot, err)
		}
	}

	if len(s.state.Inventory) == 0 {
		seed := workspace.SeedInventory()
		if err := s.save(workspace.SlotInventory, seed); err != nil {
			return nil, err
		}
		s.state.Inventory = seed
		s.log.WithField("items", len(seed)).Info("seeded starter inventory")
	}

	return s, nil
}

func defaultSnapshot() workspace.Snapshot {
	return workspace.Snapshot{
		Workspace: workspace.DefaultWorkspace(),
		Contacts:  []workspace.Contact{},
		Bookings:  []workspace.Booking{},
		Messages:  []workspace.Message{},
		Inventory: []workspace.InventoryItem{},
		Forms:     []workspace.Form{},
		Role:      workspace.DefaultRole,
	}
}

// ulidGenerator returns a monotonic ULID source. Callers hold s.mu.
func ulidGenerator(now func() time.Time) func() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return func() (string, error) {
		id, err := ulid.New(ulid.Timestamp(now()), entropy)
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
}

// decodeSlot unmarshals data into the matching field of snap.
// A JSON null leaves the default in place.
func decodeSlot(snap *workspace.Snapshot, slot string, data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var target any
	switch slot {
	case workspace.SlotWorkspace:
		target = &snap.Workspace
	case workspace.SlotContacts:
		target = &snap.Contacts
	case workspace.SlotBookings:
		target = &snap.Bookings
	case workspace.SlotMessages:
		target = &snap.Messages
	case workspace.SlotInventory:
		target = &snap.Inventory
	case workspace.SlotForms:
		target = &snap.Forms
	case workspace.SlotUserRole:
		target = &snap.Role
	default:
		return nil
	}
	return json.Unmarshal(data, target)
}

// save marshals v and writes it to slot. Callers hold s.mu (or own s exclusively).
func (s *Store) save(slot string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := s.p.Save(slot, data); err != nil {
		s.log.WithError(err).WithField("slot", slot).Error("failed to persist slot")
		return asOpsError(err)
	}
	return nil
}

// saveAll writes several slots atomically.
func (s *Store) saveAll(values map[string]any) error {
	raw := make(map[string][]byte, len(values))
	for slot, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return errors.NewInternal(err)
		}
		raw[slot] = data
	}
	if err := s.p.SaveAll(raw); err != nil {
		s.log.WithError(err).Error("failed to persist slots")
		return asOpsError(err)
	}
	return nil
}

func asOpsError(err error) error {
	if _, ok := err.(*errors.OpsError); ok {
		return err
	}
	return errors.NewInternal(err)
}

func (s *Store) id() (string, error) {
	id, err := s.newID()
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return id, nil
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// Snapshot returns a copy of every slot.
func (s *Store) Snapshot() workspace.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySnapshot(s.state)
}

func copySnapshot(in workspace.Snapshot) workspace.Snapshot {
	out := in
	out.Contacts = append([]workspace.Contact{}, in.Contacts...)
	out.Bookings = make([]workspace.Booking, len(in.Bookings))
	for i, b := range in.Bookings {
		if b.ReminderSentAt != nil {
			t := *b.ReminderSentAt
			b.ReminderSentAt = &t
		}
		out.Bookings[i] = b
	}
	out.Messages = append([]workspace.Message{}, in.Messages...)
	out.Inventory = append([]workspace.InventoryItem{}, in.Inventory...)
	out.Forms = append([]workspace.Form{}, in.Forms...)
	return out
}

// Workspace returns the workspace profile.
func (s *Store) Workspace() workspace.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Workspace
}

// Role returns the current user role.
func (s *Store) Role() workspace.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Role
}

// EncodeSlots returns the JSON value of every slot.
func (s *Store) EncodeSlots() (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return encodeSlots(s.state)
}

func encodeSlots(snap workspace.Snapshot) (map[string][]byte, error) {
	values := map[string]any{
		workspace.SlotWorkspace: snap.Workspace,
		workspace.SlotContacts:  snap.Contacts,
		workspace.SlotBookings:  snap.Bookings,
		workspace.SlotMessages:  snap.Messages,
		workspace.SlotInventory: snap.Inventory,
		workspace.SlotForms:     snap.Forms,
		workspace.SlotUserRole:  snap.Role,
	}
	out := make(map[string][]byte, len(values))
	for slot, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out[slot] = data
	}
	return out, nil
}

// ReplaceSlots validates and installs raw slot values in one atomic write.
// Slots not present in values are left untouched. An activated workspace
// stays activated.
func (s *Store) ReplaceSlots(values map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(values)
}

// MergeFunc computes replacement slot values from the current ones. It runs
// with the store locked and must not call back into the Store.
type MergeFunc func(current map[string][]byte, ws workspace.Workspace) (map[string][]byte, error)

// MergeSlots runs merge over the current slot values and installs its result
// as ReplaceSlots does, without letting another write land in between.
// An empty result writes nothing.
func (s *Store) MergeSlots(merge MergeFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := encodeSlots(s.state)
	if err != nil {
		return err
	}
	values, err := merge(current, s.state.Workspace)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	return s.replaceLocked(values)
}

// replaceLocked installs values. Callers hold s.mu.
func (s *Store) replaceLocked(values map[string][]byte) error {
	next := copySnapshot(s.state)
	for slot, data := range values {
		if !workspace.IsSlot(slot) {
			return errors.NewInvalidRequest("unknown slot: " + slot)
		}
		if err := s.validator.Validate(slot, data); err != nil {
			return errors.NewCorruptSlot(slot, err)
		}
		if err := decodeSlot(&next, slot, data); err != nil {
			return errors.NewCorruptSlot(slot, err)
		}
	}

	raw := make(map[string][]byte, len(values))
	for slot, data := range values {
		raw[slot] = data
	}
	// Activation is a latch: a replaced workspace slot cannot clear it.
	if _, ok := values[workspace.SlotWorkspace]; ok && s.state.Workspace.Activated && !next.Workspace.Activated {
		next.Workspace.Activated = true
		data, err := json.Marshal(next.Workspace)
		if err != nil {
			return errors.NewInternal(err)
		}
		raw[workspace.SlotWorkspace] = data
		s.log.Warn("kept workspace activated on slot replace")
	}

	if err := s.p.SaveAll(raw); err != nil {
		return asOpsError(err)
	}
	s.state = next
	s.log.WithField("slots", len(values)).Info("replaced slots")
	return nil
}

// ValidateSlot checks a raw slot value against the slot schema without storing it.
func (s *Store) ValidateSlot(slot string, data []byte) error {
	if !workspace.IsSlot(slot) {
		return errors.NewInvalidRequest("unknown slot: " + slot)
	}
	if err := s.validator.Validate(slot, data); err != nil {
		return errors.NewCorruptSlot(slot, err)
	}
	return nil
}
