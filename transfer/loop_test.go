package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NOT-REAL-GAMES/vkbridge/bridge"
	"github.com/NOT-REAL-GAMES/vkbridge/frames"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeBlocking, false},
		{"blocking", ModeBlocking, false},
		{"Polling", ModePolling, false},
		{"spin", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func runLoop(t *testing.T, mode Mode) {
	dev := &fakeDevice{}
	rel := &releaseLog{}
	ch := frames.NewChannel(rel.add)
	c := NewCopier(dev, bridgeExtent, bridge.FormatRGBA8SRGB, frames.NewSignal())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, ch, LoopConfig{Mode: mode, PollInterval: time.Millisecond})
	}()

	sizes := []bridge.Extent{bridgeExtent, {Width: 1, Height: 1}, bridgeExtent, bridgeExtent}
	for i, e := range sizes {
		if err := ch.Send(ctx, frame(uint64(i+1), e)); err != nil {
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

	got := dev.seqs()
	want := []uint64{1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("copied = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("copied = %v, want %v", got, want)
		}
	}
	if rel.count() != len(sizes) {
		t.Errorf("released %d of %d frames", rel.count(), len(sizes))
	}
	if c.Skipped() != 1 {
		t.Errorf("skipped = %d", c.Skipped())
	}
}

func TestRunBlocking(t *testing.T) { runLoop(t, ModeBlocking) }
func TestRunPolling(t *testing.T)  { runLoop(t, ModePolling) }

func TestRunStopsOnCancel(t *testing.T) {
	for _, mode := range []Mode{ModeBlocking, ModePolling} {
		t.Run(mode.String(), func(t *testing.T) {
			ch := frames.NewChannel[frames.Frame](nil)
			c := NewCopier(&fakeDevice{}, bridgeExtent, bridge.FormatRGBA8SRGB, nil)
			ctx, cancel := context.WithCancel(context.Background())

			done := make(chan error, 1)
			go func() { done <- c.Run(ctx, ch, LoopConfig{Mode: mode}) }()
			time.Sleep(20 * time.Millisecond)
			cancel()

			select {
			case err := <-done:
				if err != nil {
					t.Errorf("Run = %v, want nil on cancel", err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("loop ignored cancellation")
			}
		})
	}
}

func TestRunStopsOnDeviceError(t *testing.T) {
	lost := errors.New("device lost")
	dev := &fakeDevice{err: lost}
	ch := frames.NewChannel[frames.Frame](nil)
	c := NewCopier(dev, bridgeExtent, bridge.FormatRGBA8SRGB, nil)
	ctx := context.Background()

	ch.Send(ctx, frame(1, bridgeExtent))
	if err := c.Run(ctx, ch, LoopConfig{}); !errors.Is(err, lost) {
		t.Errorf("Run = %v, want device error", err)
	}
}

func TestProducerBlockedWhileCopying(t *testing.T) {
	dev := &fakeDevice{delay: 60 * time.Millisecond}
	ch := frames.NewChannel[frames.Frame](nil)
	c := NewCopier(dev, bridgeExtent, bridge.FormatRGBA8SRGB, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go c.Run(ctx, ch, LoopConfig{})

	ch.Send(ctx, frame(1, bridgeExtent))
	ch.Send(ctx, frame(2, bridgeExtent))

	// Frame 2 can only be queued once frame 1's copy is done and released.
	start := time.Now()
	ch.Send(ctx, frame(3, bridgeExtent))
	if time.Since(start) < 20*time.Millisecond {
		t.Error("third send did not wait for the in-flight copy")
	}
	ch.Close()
}
