package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// SnapshotSchemaVersion is written into every export header.
const SnapshotSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: <data dir>/exports/workspace-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Slots      int    `json:"slots"`
	Records    int    `json:"records"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of a snapshot file.
type ExportHeader struct {
	Export        bool   `json:"_unifiedops_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// SlotLine is one slot value in a snapshot file.
type SlotLine struct {
	Slot  string          `json:"slot"`
	Value json.RawMessage `json:"value"`
}

// Export writes every slot to a JSONL snapshot file.
// The file is written to a temp path and renamed into place, so an existing
// snapshot at the same path survives a failed export.
func Export(ctx context.Context, st *store.Store, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	if err := checkCtx(ctx, "export"); err != nil {
		return nil, err
	}
	now := st.Now()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(now)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	values, err := st.EncodeSlots()
	if err != nil {
		return nil, err
	}

	tempPath, err := tempExportPath(exportPath)
	if err != nil {
		return nil, err
	}
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ExportHeader{Export: true, SchemaVersion: SnapshotSchemaVersion, ExportedAt: now.Unix()}); err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &ExportOutput{Path: exportPath, ExportedAt: now.Unix()}
	for _, slot := range workspace.AllSlots {
		if err := checkCtx(ctx, "export"); err != nil {
			return nil, err
		}
		data := values[slot]
		if err := enc.Encode(SlotLine{Slot: slot, Value: data}); err != nil {
			return nil, errors.NewInternal(err)
		}
		out.Slots++
		out.Records += countRecords(data)
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Windows refuses to rename an open file.
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename follows a symlinked destination.
	if isSymlink(exportPath) {
		return nil, errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	log.WithField("path", exportPath).WithField("records", out.Records).Info("workspace exported")
	return out, nil
}

func tempExportPath(exportPath string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	return exportPath + "." + hex.EncodeToString(b) + ".tmp", nil
}

// defaultExportPath names a snapshot after its export time.
func defaultExportPath(now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("workspace-%s%s", now.UTC().Format("2006-01-02T150405"), SnapshotExt)
	return filepath.Join(dir, name), nil
}

// countRecords counts the elements of a collection slot; object slots count as one.
func countRecords(data json.RawMessage) int {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err == nil {
		return len(items)
	}
	return 1
}
