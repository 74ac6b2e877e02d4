// Package present drives the window side of the bridge: it keeps a swapchain
// configured, paces redraws and blits the imported bridge image to the screen.
package present

import (
	"errors"
	"fmt"
)

// FormatKind identifies the surface formats the presenter has a preference
// about. Everything else is FormatOther.
type FormatKind int

const (
	FormatOther FormatKind = iota
	FormatRGBA8SRGB
	FormatBGRA8SRGB
)

// SurfaceFormat is one entry of the surface's supported format list. Code is
// the native format value and is what pipelines are keyed by.
type SurfaceFormat struct {
	Kind FormatKind
	SRGB bool
	Code int32
	Name string
}

type PresentMode int

const (
	PresentModeFIFO PresentMode = iota
	PresentModeMailbox
	PresentModeImmediate
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeFIFO:
		return "FIFO"
	case PresentModeMailbox:
		return "MAILBOX"
	case PresentModeImmediate:
		return "IMMEDIATE"
	}
	return fmt.Sprintf("PresentMode(%d)", int(m))
}

// Target is an acquired swapchain image, opaque to this package.
type Target any

// Pipeline is a blit pipeline built for one surface format.
type Pipeline any

// Surface is the window, its surface and the swapchain built on it.
type Surface interface {
	// Open creates the window surface.
	Open() error
	// Configure (re)creates the swapchain at the window's current size. A
	// lost surface is recreated first when recreate is set. It returns
	// ErrSurfaceHidden while the window has no area.
	Configure(recreate bool) (SurfaceFormat, error)
	// Acquire returns the next image. A suboptimal acquire returns a usable
	// target together with a *SurfaceError of kind SurfaceSuboptimal.
	Acquire() (Target, error)
	Present(t Target) error
	// ShouldClose polls window events and reports a close request.
	ShouldClose() bool
	// Resized reports whether the window changed size since the last call.
	Resized() bool
	Close()
}

// Renderer draws the bridge image into acquired targets.
type Renderer interface {
	BuildPipeline(format SurfaceFormat) (Pipeline, error)
	Blit(t Target, p Pipeline) error
	DestroyPipeline(p Pipeline)
}

type SurfaceErrorKind int

const (
	SurfaceFatal SurfaceErrorKind = iota
	SurfaceOutOfDate
	SurfaceLost
	SurfaceSuboptimal
)

func (k SurfaceErrorKind) String() string {
	switch k {
	case SurfaceOutOfDate:
		return "out of date"
	case SurfaceLost:
		return "lost"
	case SurfaceSuboptimal:
		return "suboptimal"
	}
	return "fatal"
}

// Recoverable reports whether reconfiguring the swapchain can clear the error.
func (k SurfaceErrorKind) Recoverable() bool { return k != SurfaceFatal }

// SurfaceError reports a swapchain operation that did not fully succeed.
type SurfaceError struct {
	Op   string
	Kind SurfaceErrorKind
	Err  error
}

func (e *SurfaceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("present: %s: surface %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("present: %s: surface %s: %v", e.Op, e.Kind, e.Err)
}

func (e *SurfaceError) Unwrap() error { return e.Err }

// ErrSurfaceHidden is returned by Configure while the window is minimised.
var ErrSurfaceHidden = errors.New("present: surface has zero extent")

func surfaceErrorKind(err error) SurfaceErrorKind {
	var se *SurfaceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return SurfaceFatal
}
