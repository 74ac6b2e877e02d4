package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NOT-REAL-GAMES/vkbridge/frames"
	"github.com/NOT-REAL-GAMES/vkbridge/internal/logging"
)

// Mode is how the copy loop takes frames off the channel.
type Mode int

const (
	// ModeBlocking waits in Receive for each frame.
	ModeBlocking Mode = iota
	// ModePolling calls TryReceive on every tick.
	ModePolling
)

func (m Mode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModePolling:
		return "polling"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "blocking":
		return ModeBlocking, nil
	case "polling":
		return ModePolling, nil
	}
	return 0, fmt.Errorf("unknown copy mode %q", s)
}

const DefaultPollInterval = 5 * time.Millisecond

type LoopConfig struct {
	Mode         Mode
	PollInterval time.Duration
}

// Run copies frames until the channel reports end of stream or ctx is done,
// both of which return nil. Extent and format mismatches are skipped; any
// other copy failure stops the loop.
func (c *Copier) Run(ctx context.Context, ch *frames.Channel[frames.Frame], cfg LoopConfig) error {
	log := logging.Logger()
	log.Info("copy loop started", "mode", cfg.Mode.String())
	defer func() {
		log.Info("copy loop stopped", "copied", c.Copied(), "skipped", c.Skipped())
	}()

	if cfg.Mode == ModePolling {
		return c.poll(ctx, ch, cfg.PollInterval)
	}

	for {
		d, err := ch.Receive(ctx)
		switch {
		case errors.Is(err, frames.ErrClosed):
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.copyOne(ctx, d); err != nil {
			return err
		}
	}
}

func (c *Copier) poll(ctx context.Context, ch *frames.Channel[frames.Frame], interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		d, err := ch.TryReceive()
		switch {
		case errors.Is(err, frames.ErrEmpty):
			continue
		case errors.Is(err, frames.ErrClosed):
			return nil
		case err != nil:
			return err
		}
		if err := c.copyOne(ctx, d); err != nil {
			return err
		}
	}
}

func (c *Copier) copyOne(ctx context.Context, d frames.Delivery[frames.Frame]) error {
	err := c.Copy(ctx, d)
	if skippable(err) {
		return nil
	}
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
