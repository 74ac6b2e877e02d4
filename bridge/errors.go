package bridge

import (
	"errors"
	"fmt"
)

var (
	ErrNoDeviceLocalMemory = errors.New("no device-local memory type matches the image requirements")
	ErrZeroExtent          = errors.New("extent has a zero dimension")
	ErrInvalidHandle       = errors.New("handle does not name an open file descriptor")
)

// AllocationError reports a failure to create or back the exported image.
type AllocationError struct {
	Op  string
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("bridge: allocation failed: %s: %v", e.Op, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// HandleExportError reports that the driver refused to export the memory.
type HandleExportError struct {
	Err error
}

func (e *HandleExportError) Error() string {
	return fmt.Sprintf("bridge: export memory fd: %v", e.Err)
}

func (e *HandleExportError) Unwrap() error { return e.Err }

// ImportError reports any failure to bind the shared memory on the importing
// device, including handles rejected before the device was touched.
type ImportError struct {
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err == nil {
		return "bridge: import: " + e.Reason
	}
	return fmt.Sprintf("bridge: import: %s: %v", e.Reason, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }
