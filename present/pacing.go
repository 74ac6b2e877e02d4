package present

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NOT-REAL-GAMES/vkbridge/frames"
)

// Pacer decides when the next redraw starts.
type Pacer interface {
	Wait(ctx context.Context) error
}

type PacingMode int

const (
	PacingFixed PacingMode = iota
	PacingSignaled
)

func (m PacingMode) String() string {
	if m == PacingSignaled {
		return "signaled"
	}
	return "fixed"
}

func ParsePacingMode(s string) (PacingMode, error) {
	switch strings.ToLower(s) {
	case "", "fixed":
		return PacingFixed, nil
	case "signaled", "signalled":
		return PacingSignaled, nil
	}
	return 0, fmt.Errorf("unknown pacing mode %q", s)
}

const DefaultSignalTimeout = 100 * time.Millisecond

// Clock is the time source for pacing and frame stats.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// FixedPacer ticks at a fixed rate. Each deadline is the previous one plus
// the interval; after falling more than one interval behind it restarts from
// now instead of bursting to catch up.
type FixedPacer struct {
	interval time.Duration
	clock    Clock
	next     time.Time
}

func NewFixedPacer(fps int, clock Clock) *FixedPacer {
	if fps <= 0 {
		fps = 60
	}
	if clock == nil {
		clock = SystemClock
	}
	return &FixedPacer{interval: time.Second / time.Duration(fps), clock: clock}
}

func (p *FixedPacer) Interval() time.Duration { return p.interval }

func (p *FixedPacer) Wait(ctx context.Context) error {
	now := p.clock.Now()
	if p.next.IsZero() {
		p.next = now
	}

	if wait := p.next.Sub(now); wait > 0 {
		if err := p.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	} else if -wait > p.interval {
		p.next = now
	}

	p.next = p.next.Add(p.interval)
	return ctx.Err()
}

// SignaledPacer waits for new bridge contents, but never longer than the
// timeout. The redraw happens either way.
type SignaledPacer struct {
	signal  *frames.Signal
	timeout time.Duration

	fired, timedOut uint64
}

func NewSignaledPacer(signal *frames.Signal, timeout time.Duration) *SignaledPacer {
	if timeout <= 0 {
		timeout = DefaultSignalTimeout
	}
	return &SignaledPacer{signal: signal, timeout: timeout}
}

func (p *SignaledPacer) Wait(ctx context.Context) error {
	if p.signal.Wait(ctx, p.timeout) {
		p.fired++
	} else {
		p.timedOut++
	}
	return ctx.Err()
}

// Counts returns how many waits ended on a notification and how many on the
// timeout.
func (p *SignaledPacer) Counts() (fired, timedOut uint64) {
	return p.fired, p.timedOut
}
