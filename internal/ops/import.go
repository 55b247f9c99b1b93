package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// ImportMode controls how a snapshot is combined with the current workspace.
type ImportMode string

const (
	// ImportModeMerge adds records whose id is new and keeps everything else.
	ImportModeMerge ImportMode = "merge"
	// ImportModeReplace overwrites every slot present in the file. Any bad line aborts.
	ImportModeReplace ImportMode = "replace"
)

// Import error codes.
const (
	ImportParseError    = "PARSE_ERROR"
	ImportInvalidRecord = "INVALID_RECORD"
	ImportUnknownSlot   = "UNKNOWN_SLOT"
	ImportDuplicateSlot = "DUPLICATE_SLOT"
	ImportIDCollision   = "ID_COLLISION"
	ImportKeptCurrent   = "KEPT_CURRENT"
	ImportReadError     = "READ_ERROR"
)

// maxSlotLine bounds a single slot line.
const maxSlotLine = 64 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: merge
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Mode     ImportMode    `json:"mode"`
	Slots    int           `json:"slots"`
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one line or record that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	Slot    string `json:"slot,omitempty"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// parsedSlot is a slot line that passed parsing and schema validation.
type parsedSlot struct {
	line  int
	slot  string
	value json.RawMessage
}

// Import loads a snapshot file written by Export.
func Import(ctx context.Context, st *store.Store, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if err := checkCtx(ctx, "import"); err != nil {
		return nil, err
	}
	if input.Mode == "" {
		input.Mode = ImportModeMerge
	}
	if input.Mode != ImportModeMerge && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: merge, replace")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.OpsError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	slots, parseErrors, err := parseSnapshot(ctx, st, file)
	if err != nil {
		return nil, err
	}

	out := &ImportOutput{Mode: input.Mode, Errors: []ImportError{}}
	switch input.Mode {
	case ImportModeReplace:
		if len(parseErrors) > 0 {
			out.Errors = parseErrors
			return out, nil
		}
		err = importReplace(st, slots, out)
	default:
		out.Errors = append(out.Errors, parseErrors...)
		out.Skipped += len(parseErrors)
		err = importMerge(st, slots, out)
	}
	if err != nil {
		return nil, err
	}

	log.WithField("mode", input.Mode).WithField("imported", out.Imported).
		WithField("skipped", out.Skipped).Info("workspace imported")
	return out, nil
}

// parseSnapshot reads every slot line, validating each value against its schema.
// The header line is optional. Lines that fail are reported, not returned.
func parseSnapshot(ctx context.Context, st *store.Store, r io.Reader) ([]parsedSlot, []ImportError, error) {
	var slots []parsedSlot
	var bad []ImportError
	seen := map[string]bool{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSlotLine)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if err := checkCtx(ctx, "import"); err != nil {
			return nil, nil, err
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var parsed struct {
			ExportHeader
			SlotLine
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			bad = append(bad, ImportError{Line: lineNum, Code: ImportParseError, Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		if parsed.Export {
			continue
		}

		line := parsed.SlotLine
		switch {
		case line.Slot == "":
			bad = append(bad, ImportError{Line: lineNum, Code: ImportInvalidRecord, Message: "missing slot field"})
			continue
		case !workspace.IsSlot(line.Slot):
			bad = append(bad, ImportError{Line: lineNum, Slot: line.Slot, Code: ImportUnknownSlot, Message: fmt.Sprintf("unknown slot %q", line.Slot)})
			continue
		case seen[line.Slot]:
			bad = append(bad, ImportError{Line: lineNum, Slot: line.Slot, Code: ImportDuplicateSlot, Message: fmt.Sprintf("slot %q appears more than once", line.Slot)})
			continue
		}
		seen[line.Slot] = true

		if len(line.Value) == 0 {
			bad = append(bad, ImportError{Line: lineNum, Slot: line.Slot, Code: ImportInvalidRecord, Message: "missing value field"})
			continue
		}
		if err := st.ValidateSlot(line.Slot, line.Value); err != nil {
			bad = append(bad, ImportError{Line: lineNum, Slot: line.Slot, Code: ImportInvalidRecord, Message: err.Error()})
			continue
		}
		slots = append(slots, parsedSlot{line: lineNum, slot: line.Slot, value: append(json.RawMessage(nil), line.Value...)})
	}
	if err := scanner.Err(); err != nil {
		bad = append(bad, ImportError{Line: lineNum, Code: ImportReadError, Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return slots, bad, nil
}

// importReplace installs every parsed slot as-is in one write.
func importReplace(st *store.Store, slots []parsedSlot, out *ImportOutput) error {
	values := make(map[string][]byte, len(slots))
	for _, p := range slots {
		values[p.slot] = p.value
		out.Imported += countRecords(p.value)
	}
	if len(values) > 0 {
		if err := st.ReplaceSlots(values); err != nil {
			return err
		}
	}
	out.Slots = len(values)
	return nil
}

// importMerge adds records with unseen ids to each collection. The profile and
// role slots are taken from the file only while the workspace is not activated.
// The merge runs against the store's current values under its lock, so writes
// made while the file was being read are kept.
func importMerge(st *store.Store, slots []parsedSlot, out *ImportOutput) error {
	return st.MergeSlots(func(current map[string][]byte, ws workspace.Workspace) (map[string][]byte, error) {
		values := map[string][]byte{}
		for _, p := range slots {
			switch p.slot {
			case workspace.SlotWorkspace, workspace.SlotUserRole:
				if ws.Activated {
					out.Errors = append(out.Errors, ImportError{Line: p.line, Slot: p.slot, Code: ImportKeptCurrent,
						Message: "workspace is activated; current value kept"})
					out.Skipped++
					continue
				}
				values[p.slot] = p.value
				out.Imported++
			default:
				// Contacts are kept newest first.
				prepend := p.slot == workspace.SlotContacts
				merged, added, collisions, err := mergeByID(current[p.slot], p.value, prepend)
				if err != nil {
					out.Errors = append(out.Errors, ImportError{Line: p.line, Slot: p.slot, Code: ImportInvalidRecord, Message: err.Error()})
					out.Skipped++
					continue
				}
				for _, id := range collisions {
					out.Errors = append(out.Errors, ImportError{Line: p.line, Slot: p.slot, ID: id, Code: ImportIDCollision,
						Message: fmt.Sprintf("record with id %q already exists", id)})
				}
				out.Skipped += len(collisions)
				out.Imported += added
				if added > 0 {
					values[p.slot] = merged
				}
			}
		}
		out.Slots = len(values)
		return values, nil
	})
}

// mergeByID adds the records of incoming whose id is not in current, after the
// existing records or, with prepend, ahead of them in file order.
// Records keep their raw JSON so no field is lost in the round trip.
func mergeByID(current, incoming []byte, prepend bool) (merged []byte, added int, collisions []string, err error) {
	var have, add, fresh []json.RawMessage
	if len(current) > 0 {
		if err := json.Unmarshal(current, &have); err != nil {
			return nil, 0, nil, err
		}
	}
	if err := json.Unmarshal(incoming, &add); err != nil {
		return nil, 0, nil, err
	}

	ids := make(map[string]bool, len(have)+len(add))
	for _, r := range have {
		ids[recordID(r)] = true
	}
	for _, r := range add {
		id := recordID(r)
		if ids[id] {
			collisions = append(collisions, id)
			continue
		}
		ids[id] = true
		fresh = append(fresh, r)
	}

	var all []json.RawMessage
	if prepend {
		all = append(fresh, have...)
	} else {
		all = append(have, fresh...)
	}
	merged, err = json.Marshal(all)
	if err != nil {
		return nil, 0, nil, err
	}
	return merged, len(fresh), collisions, nil
}

func recordID(r json.RawMessage) string {
	var rec struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(r, &rec)
	return rec.ID
}
