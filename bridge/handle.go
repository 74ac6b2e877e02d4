package bridge

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Handle is the value passed from the exporter's owner to the importer's
// owner. It names the exporter's fd but does not own it: the exporter closes
// the fd on Destroy, and importers always work on a duplicate.
type Handle struct {
	fd int

	Size    uint64
	Extent  Extent
	Format  Format
	Devices DeviceIDs
}

// NewHandle wraps fd. Used by tests and by processes that receive the
// fd from elsewhere.
func NewHandle(fd int, size uint64, extent Extent, format Format, ids DeviceIDs) Handle {
	return Handle{fd: fd, Size: size, Extent: extent, Format: format, Devices: ids}
}

func (h Handle) Fd() int { return h.fd }

// Valid reports whether the fd is still open.
func (h Handle) Valid() bool {
	if h.fd < 0 {
		return false
	}
	_, err := unix.FcntlInt(uintptr(h.fd), unix.F_GETFD, 0)
	return err == nil
}

// Dup returns a close-on-exec duplicate of the fd. The caller owns it.
func (h Handle) Dup() (int, error) {
	if h.fd < 0 {
		return -1, ErrInvalidHandle
	}
	fd, err := unix.FcntlInt(uintptr(h.fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("dup fd %d: %w", h.fd, err)
	}
	return fd, nil
}

func (h Handle) String() string {
	return fmt.Sprintf("fd=%d size=%d extent=%s format=%s", h.fd, h.Size, h.Extent, h.Format)
}
