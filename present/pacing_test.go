package present

import (
	"context"
	"testing"
	"time"

	"github.com/NOT-REAL-GAMES/vkbridge/frames"
)

func TestParsePacingMode(t *testing.T) {
	for in, want := range map[string]PacingMode{"": PacingFixed, "fixed": PacingFixed, "Signaled": PacingSignaled} {
		got, err := ParsePacingMode(in)
		if err != nil || got != want {
			t.Errorf("ParsePacingMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePacingMode("vsync"); err == nil {
		t.Error("expected error")
	}
}

func TestFixedPacerInterval(t *testing.T) {
	clock := newFakeClock()
	p := NewFixedPacer(50, clock)
	ctx := context.Background()

	if p.Interval() != 20*time.Millisecond {
		t.Fatalf("interval = %v", p.Interval())
	}

	p.Wait(ctx)
	if len(clock.sleeps) != 0 {
		t.Fatalf("first tick slept %v", clock.sleeps)
	}

	clock.Advance(5 * time.Millisecond)
	p.Wait(ctx)
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 15*time.Millisecond {
		t.Fatalf("sleeps = %v, want [15ms]", clock.sleeps)
	}

	// Deadlines accumulate from the previous deadline, not from now.
	clock.Advance(12 * time.Millisecond)
	p.Wait(ctx)
	if got := clock.sleeps[len(clock.sleeps)-1]; got != 8*time.Millisecond {
		t.Errorf("sleep = %v, want 8ms", got)
	}
}

func TestFixedPacerResetsWhenBehind(t *testing.T) {
	clock := newFakeClock()
	p := NewFixedPacer(50, clock)
	ctx := context.Background()

	p.Wait(ctx)
	clock.Advance(100 * time.Millisecond)
	p.Wait(ctx)

	n := len(clock.sleeps)
	if n != 0 {
		t.Fatalf("slept while behind: %v", clock.sleeps)
	}

	// No burst: the next tick is a full interval after the late one.
	p.Wait(ctx)
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 20*time.Millisecond {
		t.Errorf("sleeps = %v, want [20ms]", clock.sleeps)
	}
}

func TestFixedPacerSlightlyLateKeepsSchedule(t *testing.T) {
	clock := newFakeClock()
	p := NewFixedPacer(50, clock)
	ctx := context.Background()

	p.Wait(ctx)
	clock.Advance(30 * time.Millisecond)
	p.Wait(ctx)
	p.Wait(ctx)
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 10*time.Millisecond {
		t.Errorf("sleeps = %v, want [10ms]", clock.sleeps)
	}
}

func TestFixedPresenterShowsEveryProducerUpdate(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	p := NewFixedPacer(60, clock)
	ctx := context.Background()

	var ticks []time.Duration
	for clock.Now().Sub(start) < 2*time.Second {
		p.Wait(ctx)
		ticks = append(ticks, clock.Now().Sub(start))
		clock.Advance(3 * time.Millisecond)
	}

	producer := time.Second / 30
	for k := 0; k < 59; k++ {
		from, to := time.Duration(k)*producer, time.Duration(k+1)*producer
		seen := false
		for _, tick := range ticks {
			if tick >= from && tick < to {
				seen = true
				break
			}
		}
		if !seen {
			t.Fatalf("update %d (%v..%v) never presented", k, from, to)
		}
	}
}

func TestSignaledPacer(t *testing.T) {
	sig := frames.NewSignal()
	p := NewSignaledPacer(sig, 30*time.Millisecond)
	ctx := context.Background()

	sig.Notify()
	start := time.Now()
	if err := p.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 25*time.Millisecond {
		t.Error("notified wait did not return promptly")
	}

	start = time.Now()
	p.Wait(ctx)
	if elapsed := time.Since(start); elapsed > 30*time.Millisecond+200*time.Millisecond {
		t.Errorf("wait took %v, longer than the timeout allows", elapsed)
	}

	fired, timedOut := p.Counts()
	if fired != 1 || timedOut != 1 {
		t.Errorf("fired=%d timedOut=%d", fired, timedOut)
	}
}

func TestSignaledPacerDefaultTimeout(t *testing.T) {
	p := NewSignaledPacer(frames.NewSignal(), 0)
	if p.timeout != DefaultSignalTimeout {
		t.Errorf("timeout = %v", p.timeout)
	}
}

func TestSystemClockSleepCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SystemClock.Sleep(ctx, time.Hour); err == nil {
		t.Error("Sleep ignored cancellation")
	}
}
