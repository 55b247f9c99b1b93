package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
)

// PathCheckMode indicates whether a snapshot file is about to be read or written.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // import
	PathCheckWrite                      // export
)

// SnapshotExt is the only extension accepted for snapshot files.
const SnapshotExt = ".jsonl"

// ValidatePath checks a snapshot file path before import or export.
//
// The path must not contain "..", must end in .jsonl, and must sit directly in
// the exports directory or one of cfg.AllowedPaths. Subdirectories are refused
// so no intermediate component can be swapped for a symlink after the check.
// Symlinked files are refused in every mode, including AllowUnsafePaths, since
// the file is opened with O_NOFOLLOW anyway.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != SnapshotExt {
		return errors.NewInvalidRequest("path must have " + SnapshotExt + " extension")
	}
	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		dirs, err := exportDirs(cfg)
		if err != nil {
			return err
		}
		parent := filepath.Dir(absPath)
		if !inDir(parent, dirs) {
			return errors.NewInvalidRequest(
				fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v", dirs))
		}
		if isSymlink(parent) {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	if isSymlink(absPath) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// exportDirs returns the exports directory plus every absolute entry of
// cfg.AllowedPaths. Entries that are symlinks are resolved to their target.
func exportDirs(cfg *config.Config) ([]string, error) {
	exports, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	candidates := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	dirs := make([]string, 0, len(candidates))
	for _, d := range candidates {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if isSymlink(abs) {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}

// inDir reports whether dir is exactly one of dirs.
func inDir(dir string, dirs []string) bool {
	dir = filepath.Clean(dir)
	for _, d := range dirs {
		if dir == filepath.Clean(d) {
			return true
		}
	}
	return false
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// DefaultExportsDir returns the exports directory inside the data directory.
func DefaultExportsDir() (string, error) {
	baseDir, err := config.BaseDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to resolve data directory: %w", err))
	}
	return filepath.Join(baseDir, "exports"), nil
}

// containsTraversal reports whether any path component is "..".
// Forward slashes are split too, so user input behaves the same on Windows.
func containsTraversal(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	for _, part := range parts {
		if part == ".." {
			return true
		}
	}
	return false
}
