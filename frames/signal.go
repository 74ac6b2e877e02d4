package frames

import (
	"context"
	"time"
)

// Signal is a coalescing readiness flag. Notify never blocks; any number of
// notifications before a Wait collapse into one wakeup.
type Signal struct {
	ch chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until Notify, the timeout or ctx, and reports whether it was
// notified. A non-positive timeout only checks the flag.
func (s *Signal) Wait(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-s.ch:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.ch:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
