package present

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/NOT-REAL-GAMES/vkbridge/internal/logging"
)

type State int

const (
	StateUninitialized State = iota
	StateSurfaceCreated
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSurfaceCreated:
		return "surface-created"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrState is returned when a method is called in the wrong state.
var ErrState = errors.New("present: invalid state")

type Options struct {
	FrameStats bool
	Clock      Clock
}

// Presenter owns the presentation side. All methods must be called from the
// thread that owns the window.
type Presenter struct {
	surface  Surface
	renderer Renderer
	opts     Options
	log      *slog.Logger

	state     State
	format    SurfaceFormat
	pipelines map[int32]Pipeline

	// reconfigure is set after a present reported the swapchain stale or
	// the window was resized.
	reconfigure bool
	recreate    bool
	hidden      bool

	stats        *FrameStats
	presented    uint64
	reconfigures uint64

	closeOnce sync.Once
}

func New(surface Surface, opts Options) *Presenter {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	p := &Presenter{
		surface:   surface,
		opts:      opts,
		log:       logging.Logger(),
		pipelines: make(map[int32]Pipeline),
	}
	if opts.FrameStats {
		p.stats = NewFrameStats(p.log)
	}
	return p
}

func (p *Presenter) State() State { return p.state }

// Format is the format of the current swapchain.
func (p *Presenter) Format() SurfaceFormat { return p.format }

// Presented is the number of successful presents.
func (p *Presenter) Presented() uint64 { return p.presented }

// Reconfigures is the number of swapchain rebuilds after the first.
func (p *Presenter) Reconfigures() uint64 { return p.reconfigures }

// Open creates the window surface.
func (p *Presenter) Open() error {
	if p.state != StateUninitialized {
		return fmt.Errorf("%w: open in state %s", ErrState, p.state)
	}
	if err := p.surface.Open(); err != nil {
		return &SurfaceError{Op: "open", Kind: SurfaceFatal, Err: err}
	}
	p.state = StateSurfaceCreated
	return nil
}

// Ready builds the first swapchain and attaches the renderer.
func (p *Presenter) Ready(r Renderer) error {
	if p.state != StateSurfaceCreated {
		return fmt.Errorf("%w: ready in state %s", ErrState, p.state)
	}
	p.renderer = r

	format, err := p.surface.Configure(false)
	switch {
	case errors.Is(err, ErrSurfaceHidden):
		p.hidden = true
		p.reconfigure = true
	case err != nil:
		return &SurfaceError{Op: "configure", Kind: SurfaceFatal, Err: err}
	default:
		p.format = format
	}

	p.state = StateReady
	p.log.Info("presenter ready", "format", p.format.Name)
	return nil
}

func (p *Presenter) doReconfigure() error {
	format, err := p.surface.Configure(p.recreate)
	if errors.Is(err, ErrSurfaceHidden) {
		p.hidden = true
		p.reconfigure = true
		return err
	}
	if err != nil {
		return &SurfaceError{Op: "configure", Kind: SurfaceFatal, Err: err}
	}
	p.reconfigures++
	p.reconfigure, p.recreate, p.hidden = false, false, false
	if format != p.format {
		p.log.Info("surface format changed", "format", format.Name)
	}
	p.format = format
	return nil
}

func (p *Presenter) pipeline() (Pipeline, error) {
	if pl, ok := p.pipelines[p.format.Code]; ok {
		return pl, nil
	}
	pl, err := p.renderer.BuildPipeline(p.format)
	if err != nil {
		return nil, fmt.Errorf("build blit pipeline for %s: %w", p.format.Name, err)
	}
	p.pipelines[p.format.Code] = pl
	p.log.Debug("built blit pipeline", "format", p.format.Name)
	return pl, nil
}

// acquire gets the next target. Out of date or lost is retried once after a
// reconfigure; a second such failure in the same frame is returned as fatal.
// A suboptimal acquire triggers one reconfigure and re-acquire and does not
// use up that retry. skip is set while the window is hidden.
func (p *Presenter) acquire() (t Target, skip bool, err error) {
	var retried, reacquired bool
	for {
		t, err = p.surface.Acquire()
		if err == nil {
			return t, false, nil
		}

		kind := surfaceErrorKind(err)
		switch {
		case kind == SurfaceSuboptimal && !reacquired:
			// The suboptimal target is dropped with the old swapchain.
			reacquired = true
		case kind == SurfaceSuboptimal:
			return t, false, nil
		case kind.Recoverable() && !retried:
			p.log.Debug("acquire failed, reconfiguring", "err", err)
			retried = true
		case kind.Recoverable():
			return nil, false, &SurfaceError{Op: "acquire", Kind: SurfaceFatal, Err: err}
		default:
			return nil, false, err
		}

		p.recreate = kind == SurfaceLost
		if err := p.doReconfigure(); err != nil {
			if errors.Is(err, ErrSurfaceHidden) {
				return nil, true, nil
			}
			return nil, false, err
		}
	}
}

// Frame draws and presents one frame.
func (p *Presenter) Frame() error {
	if p.state != StateReady {
		return fmt.Errorf("%w: frame in state %s", ErrState, p.state)
	}

	if p.surface.Resized() {
		p.reconfigure = true
	}
	if p.reconfigure {
		if err := p.doReconfigure(); err != nil {
			if errors.Is(err, ErrSurfaceHidden) {
				return nil
			}
			return err
		}
	}

	t, skip, err := p.acquire()
	if err != nil || skip {
		return err
	}

	// Looked up after acquire, which may have reconfigured to a new format.
	pl, err := p.pipeline()
	if err != nil {
		return err
	}

	if err := p.renderer.Blit(t, pl); err != nil {
		return fmt.Errorf("blit: %w", err)
	}

	if err := p.surface.Present(t); err != nil {
		kind := surfaceErrorKind(err)
		if !kind.Recoverable() {
			return err
		}
		p.reconfigure = true
		p.recreate = kind == SurfaceLost
		if kind == SurfaceSuboptimal {
			p.countPresent()
		}
		return nil
	}

	p.countPresent()
	return nil
}

func (p *Presenter) countPresent() {
	p.presented++
	if p.stats != nil {
		p.stats.Record(p.opts.Clock.Now())
	}
}

// Run paces and draws frames until the window asks to close, ctx is done or
// a fatal error occurs.
func (p *Presenter) Run(ctx context.Context, pacer Pacer) error {
	for {
		if p.surface.ShouldClose() {
			p.log.Info("window closed")
			return nil
		}
		if err := pacer.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := p.Frame(); err != nil {
			return err
		}
	}
}

// Close destroys cached pipelines and the surface. Safe to call in any state
// and more than once.
func (p *Presenter) Close() {
	p.closeOnce.Do(func() {
		if p.renderer != nil {
			for code, pl := range p.pipelines {
				p.renderer.DestroyPipeline(pl)
				delete(p.pipelines, code)
			}
		}
		if p.state != StateUninitialized {
			p.surface.Close()
		}
		p.state = StateClosed
	})
}
