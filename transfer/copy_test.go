package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NOT-REAL-GAMES/vkbridge/bridge"
	"github.com/NOT-REAL-GAMES/vkbridge/frames"
)

type fakeDevice struct {
	mu     sync.Mutex
	copied []uint64
	err    error
	delay  time.Duration
}

func (d *fakeDevice) CopyToBridge(ctx context.Context, f frames.Frame) error {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.copied = append(d.copied, f.Seq)
	return nil
}

func (d *fakeDevice) seqs() []uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint64(nil), d.copied...)
}

var bridgeExtent = bridge.Extent{Width: 64, Height: 32}

func frame(seq uint64, e bridge.Extent) frames.Frame {
	return frames.Frame{Seq: seq, Extent: e, Format: bridge.FormatRGBA8SRGB}
}

type releaseLog struct {
	mu   sync.Mutex
	seqs []uint64
}

func (r *releaseLog) add(f frames.Frame) {
	r.mu.Lock()
	r.seqs = append(r.seqs, f.Seq)
	r.mu.Unlock()
}

func (r *releaseLog) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seqs)
}

func TestCopy(t *testing.T) {
	dev := &fakeDevice{}
	sig := frames.NewSignal()
	rel := &releaseLog{}
	ch := frames.NewChannel(rel.add)
	c := NewCopier(dev, bridgeExtent, bridge.FormatRGBA8SRGB, sig)
	ctx := context.Background()

	ch.Send(ctx, frame(1, bridgeExtent))
	d, _ := ch.TryReceive()
	if err := c.Copy(ctx, d); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	if got := dev.seqs(); len(got) != 1 || got[0] != 1 {
		t.Errorf("copied = %v", got)
	}
	if rel.count() != 1 {
		t.Error("frame not released")
	}
	if !sig.Wait(ctx, 0) {
		t.Error("signal not notified after copy")
	}
	if c.Copied() != 1 || c.Skipped() != 0 {
		t.Errorf("copied=%d skipped=%d", c.Copied(), c.Skipped())
	}
}

func TestCopyExtentMismatchSkips(t *testing.T) {
	dev := &fakeDevice{}
	sig := frames.NewSignal()
	rel := &releaseLog{}
	ch := frames.NewChannel(rel.add)
	c := NewCopier(dev, bridgeExtent, bridge.FormatRGBA8SRGB, sig)
	ctx := context.Background()

	ch.Send(ctx, frame(5, bridge.Extent{Width: 32, Height: 32}))
	d, _ := ch.TryReceive()
	err := c.Copy(ctx, d)

	var mismatch *ExtentMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *ExtentMismatchError", err)
	}
	if mismatch.Seq != 5 || mismatch.Bridge != bridgeExtent {
		t.Errorf("mismatch = %+v", mismatch)
	}
	if len(dev.seqs()) != 0 {
		t.Error("bridge written for a mismatched frame")
	}
	if rel.count() != 1 {
		t.Error("mismatched frame not released")
	}
	if ch.Occupied() {
		t.Error("slot still occupied")
	}
	if sig.Wait(ctx, 0) {
		t.Error("signal notified for a skipped frame")
	}
	if c.Skipped() != 1 {
		t.Errorf("skipped = %d", c.Skipped())
	}
}

func TestCopyFormatMismatchSkips(t *testing.T) {
	dev := &fakeDevice{}
	sig := frames.NewSignal()
	rel := &releaseLog{}
	ch := frames.NewChannel(rel.add)
	c := NewCopier(dev, bridgeExtent, bridge.FormatRGBA8SRGB, sig)
	ctx := context.Background()

	f := frame(7, bridgeExtent)
	f.Format = bridge.FormatUndefined
	ch.Send(ctx, f)
	d, _ := ch.TryReceive()
	err := c.Copy(ctx, d)

	var mismatch *FormatMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *FormatMismatchError", err)
	}
	if mismatch.Seq != 7 || mismatch.Frame != bridge.FormatUndefined || mismatch.Bridge != bridge.FormatRGBA8SRGB {
		t.Errorf("mismatch = %+v", mismatch)
	}
	if len(dev.seqs()) != 0 {
		t.Error("bridge written for a frame of another format")
	}
	if rel.count() != 1 {
		t.Error("mismatched frame not released")
	}
	if sig.Wait(ctx, 0) {
		t.Error("signal notified for a skipped frame")
	}
	if c.Copied() != 0 || c.Skipped() != 1 {
		t.Errorf("copied=%d skipped=%d", c.Copied(), c.Skipped())
	}
}

func TestRunSkipsFormatMismatch(t *testing.T) {
	dev := &fakeDevice{}
	ch := frames.NewChannel(func(frames.Frame) {})
	c := NewCopier(dev, bridgeExtent, bridge.FormatRGBA8SRGB, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, ch, LoopConfig{Mode: ModeBlocking}) }()

	odd := frame(1, bridgeExtent)
	odd.Format = bridge.FormatUndefined
	for _, f := range []frames.Frame{odd, frame(2, bridgeExtent)} {
		if err := ch.Send(ctx, f); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	ch.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on end of stream")
	}
	if got := dev.seqs(); len(got) != 1 || got[0] != 2 {
		t.Errorf("copied = %v, want [2]", got)
	}
	if c.Skipped() != 1 {
		t.Errorf("skipped = %d", c.Skipped())
	}
}

func TestCopyDeviceErrorReleases(t *testing.T) {
	dev := &fakeDevice{err: errors.New("device lost")}
	rel := &releaseLog{}
	ch := frames.NewChannel(rel.add)
	c := NewCopier(dev, bridgeExtent, bridge.FormatRGBA8SRGB, nil)

	ch.Send(context.Background(), frame(1, bridgeExtent))
	d, _ := ch.TryReceive()
	if err := c.Copy(context.Background(), d); !errors.Is(err, dev.err) {
		t.Errorf("err = %v", err)
	}
	if rel.count() != 1 {
		t.Error("frame leaked on device error")
	}
}
