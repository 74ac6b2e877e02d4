// Package transfer copies delivered frames into the producer-side bridge
// image and wakes the presenter when new contents are visible.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/NOT-REAL-GAMES/vkbridge/bridge"
	"github.com/NOT-REAL-GAMES/vkbridge/frames"
	"github.com/NOT-REAL-GAMES/vkbridge/internal/logging"
)

// Device records and submits the copy of one frame into the bridge image.
// CopyToBridge returns only after the submission's fence has signalled.
type Device interface {
	CopyToBridge(ctx context.Context, src frames.Frame) error
}

// ExtentMismatchError reports a frame whose size differs from the bridge
// image. The frame is skipped and the bridge keeps its previous contents.
type ExtentMismatchError struct {
	Seq    uint64
	Frame  bridge.Extent
	Bridge bridge.Extent
}

func (e *ExtentMismatchError) Error() string {
	return fmt.Sprintf("transfer: frame %d is %s, bridge is %s", e.Seq, e.Frame, e.Bridge)
}

// FormatMismatchError reports a frame whose pixel format differs from the
// bridge image. It is skipped like an extent mismatch.
type FormatMismatchError struct {
	Seq    uint64
	Frame  bridge.Format
	Bridge bridge.Format
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("transfer: frame %d is %s, bridge is %s", e.Seq, e.Frame, e.Bridge)
}

// skippable reports whether err only rejected one frame.
func skippable(err error) bool {
	var extent *ExtentMismatchError
	var format *FormatMismatchError
	return errors.As(err, &extent) || errors.As(err, &format)
}

// Copier moves frames into the bridge. It is used from a single goroutine.
type Copier struct {
	dev    Device
	extent bridge.Extent
	format bridge.Format
	signal *frames.Signal

	copied  atomic.Uint64
	skipped atomic.Uint64
}

// NewCopier returns a Copier for a bridge image of the given extent and
// format. signal may be nil when nothing waits on new contents.
func NewCopier(dev Device, extent bridge.Extent, format bridge.Format, signal *frames.Signal) *Copier {
	return &Copier{dev: dev, extent: extent, format: format, signal: signal}
}

// Copy consumes d. The frame is always released, on every path.
func (c *Copier) Copy(ctx context.Context, d frames.Delivery[frames.Frame]) error {
	defer d.Release()

	f := d.Value
	var err error
	switch {
	case f.Extent != c.extent:
		err = &ExtentMismatchError{Seq: f.Seq, Frame: f.Extent, Bridge: c.extent}
	case f.Format != c.format:
		err = &FormatMismatchError{Seq: f.Seq, Frame: f.Format, Bridge: c.format}
	}
	if err != nil {
		c.skipped.Add(1)
		logging.Logger().Warn("skipping frame", "seq", f.Seq, "err", err)
		return err
	}

	if err := c.dev.CopyToBridge(ctx, f); err != nil {
		return fmt.Errorf("copy frame %d: %w", f.Seq, err)
	}
	c.copied.Add(1)

	if c.signal != nil {
		c.signal.Notify()
	}
	logging.Logger().Debug("copied frame", "seq", f.Seq)
	return nil
}

func (c *Copier) Copied() uint64  { return c.copied.Load() }
func (c *Copier) Skipped() uint64 { return c.skipped.Load() }
