package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	schemagen "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SlotSchema generates the JSON Schema a persisted slot value must satisfy.
// Collection slots are arrays of their record type; the role slot is an enum string.
func SlotSchema(slot string) (*schemagen.Schema, error) {
	r := &schemagen.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		Anonymous:                 true,
	}

	switch slot {
	case SlotWorkspace:
		s := r.Reflect(&Workspace{})
		s.Title = "Workspace"
		return s, nil
	case SlotContacts:
		return arrayOf(r, &Contact{}, "Contacts"), nil
	case SlotBookings:
		return arrayOf(r, &Booking{}, "Bookings"), nil
	case SlotMessages:
		return arrayOf(r, &Message{}, "Messages"), nil
	case SlotInventory:
		return arrayOf(r, &InventoryItem{}, "Inventory"), nil
	case SlotForms:
		return arrayOf(r, &Form{}, "Forms"), nil
	case SlotUserRole:
		return &schemagen.Schema{
			Version: schemagen.Version,
			Title:   "UserRole",
			Type:    "string",
			Enum:    []any{string(RoleOwner), string(RoleStaff)},
		}, nil
	}
	return nil, fmt.Errorf("unknown slot %q", slot)
}

func arrayOf(r *schemagen.Reflector, v any, title string) *schemagen.Schema {
	item := r.Reflect(v)
	defs := item.Definitions
	item.Definitions = nil
	item.Version = ""
	item.ID = ""

	return &schemagen.Schema{
		Version:     schemagen.Version,
		Title:       title,
		Type:        "array",
		Items:       item,
		Definitions: defs,
	}
}

// SlotValidator checks raw slot values against the compiled slot schemas.
type SlotValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewSlotValidator compiles a schema for every slot.
func NewSlotValidator() (*SlotValidator, error) {
	compiler := jsonschema.NewCompiler()
	for _, slot := range AllSlots {
		s, err := SlotSchema(slot)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s schema: %w", slot, err)
		}
		if err := compiler.AddResource(slot+".json", bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add %s schema resource: %w", slot, err)
		}
	}

	v := &SlotValidator{schemas: make(map[string]*jsonschema.Schema, len(AllSlots))}
	for _, slot := range AllSlots {
		compiled, err := compiler.Compile(slot + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", slot, err)
		}
		v.schemas[slot] = compiled
	}
	return v, nil
}

// Validate checks that data is valid JSON matching the schema for slot.
func (v *SlotValidator) Validate(slot string, data []byte) error {
	schema, ok := v.schemas[slot]
	if !ok {
		return fmt.Errorf("unknown slot %q", slot)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			var msgs []string
			collectErrors(verr, &msgs)
			return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func collectErrors(err *jsonschema.ValidationError, msgs *[]string) {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*msgs = append(*msgs, fmt.Sprintf("%s: %s", loc, err.Message))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, msgs)
	}
}
