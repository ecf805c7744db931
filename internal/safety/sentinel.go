package safety

import (
	"os"

	"github.com/alanyoungcy/snipebot/internal/domain"
)

var _ domain.ManualStop = (*FileSentinel)(nil)

// FileSentinel reports a manual stop when a file exists at the configured
// path. Operators halt trading by touching the file; deleting it clears only
// the signal, not an already-latched trip.
type FileSentinel struct {
	path string
}

// NewFileSentinel creates a FileSentinel watching path. An empty path
// disables the check.
func NewFileSentinel(path string) *FileSentinel {
	return &FileSentinel{path: path}
}

// Present reports whether the sentinel file currently exists.
func (f *FileSentinel) Present() bool {
	if f.path == "" {
		return false
	}
	_, err := os.Stat(f.path)
	return err == nil
}
