//go:build windows

package ops

import (
	"os"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
)

// openFileNoFollow opens a snapshot file for writing. Windows has no
// O_NOFOLLOW; ValidatePath has already refused symlinks.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens a snapshot file for reading.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}
