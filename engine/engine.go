// Package engine is a synthetic producer: it registers one output, renders a
// test card on the CPU, uploads it into a pool of producer-device images and
// sends each image through a frames.Channel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/NOT-REAL-GAMES/vkbridge/bridge"
	"github.com/NOT-REAL-GAMES/vkbridge/frames"
	"github.com/NOT-REAL-GAMES/vkbridge/internal/logging"
)

// Uploader writes tightly packed RGBA pixels into pool image slot and
// returns that image. It returns after the upload has completed on the GPU.
type Uploader interface {
	Upload(ctx context.Context, slot int, pixels []byte, extent bridge.Extent) (bridge.Image, error)
}

type Config struct {
	Width      uint32
	Height     uint32
	FPS        int
	PoolSize   int
	MaxFrames  uint64
	OutputName string
}

// Output is the registration record of the engine's single output.
type Output struct {
	ID     uuid.UUID
	Name   string
	Extent bridge.Extent
	Format bridge.Format
}

type Engine struct {
	cfg    Config
	up     Uploader
	output Output
	ch     *frames.Channel[frames.Frame]
	free   chan int
	canvas *image.RGBA

	produced atomic.Uint64
}

func New(cfg Config, up Uploader) (*Engine, error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("engine: output size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.PoolSize < 2 {
		return nil, fmt.Errorf("engine: pool size %d, need at least 2", cfg.PoolSize)
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "window_preview"
	}

	e := &Engine{
		cfg: cfg,
		up:  up,
		output: Output{
			ID:     uuid.New(),
			Name:   cfg.OutputName,
			Extent: bridge.Extent{Width: cfg.Width, Height: cfg.Height},
			Format: bridge.FormatRGBA8SRGB,
		},
		free:   make(chan int, cfg.PoolSize),
		canvas: image.NewRGBA(image.Rect(0, 0, int(cfg.Width), int(cfg.Height))),
	}
	for i := 0; i < cfg.PoolSize; i++ {
		e.free <- i
	}
	e.ch = frames.NewChannel(e.recycle)

	logging.Logger().Info("registered output",
		"id", e.output.ID.String(),
		"name", e.output.Name,
		"width", cfg.Width,
		"height", cfg.Height,
		"format", e.output.Format.String())
	return e, nil
}

func (e *Engine) recycle(f frames.Frame) {
	e.free <- f.Slot
}

func (e *Engine) Output() Output { return e.output }

// Channel is the output's frame stream.
func (e *Engine) Channel() *frames.Channel[frames.Frame] { return e.ch }

// Produced is the number of frames sent so far.
func (e *Engine) Produced() uint64 { return e.produced.Load() }

// Run produces frames until MaxFrames is reached or ctx is done, then closes
// the channel. Sends block while the consumer holds the previous frame.
func (e *Engine) Run(ctx context.Context) error {
	defer e.ch.Close()
	log := logging.Logger()

	var tick <-chan time.Time
	var interval time.Duration
	if e.cfg.FPS > 0 {
		interval = time.Second / time.Duration(e.cfg.FPS)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for seq := uint64(1); e.cfg.MaxFrames == 0 || seq <= e.cfg.MaxFrames; seq++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		}

		var slot int
		select {
		case <-ctx.Done():
			return nil
		case slot = <-e.free:
		}

		pts := time.Duration(seq-1) * interval
		RenderPattern(e.canvas, seq, pts)

		img, err := e.up.Upload(ctx, slot, e.canvas.Pix, e.output.Extent)
		if err != nil {
			e.free <- slot
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("engine: upload frame %d: %w", seq, err)
		}

		f := frames.Frame{
			Image:  img,
			Extent: e.output.Extent,
			Format: e.output.Format,
			Seq:    seq,
			PTS:    pts,
			Slot:   slot,
		}
		if err := e.ch.Send(ctx, f); err != nil {
			e.free <- slot
			if errors.Is(err, frames.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		e.produced.Add(1)
		log.Debug("produced frame", "seq", seq, "slot", slot)
	}

	log.Info("engine reached frame limit", "frames", e.produced.Load())
	return nil
}
