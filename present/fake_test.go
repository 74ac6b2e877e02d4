package present

import (
	"context"
	"errors"
	"time"
)

var (
	rgba = SurfaceFormat{Kind: FormatRGBA8SRGB, SRGB: true, Code: 43, Name: "R8G8B8A8_SRGB"}
	bgra = SurfaceFormat{Kind: FormatBGRA8SRGB, SRGB: true, Code: 50, Name: "B8G8R8A8_SRGB"}
)

type fakeSurface struct {
	formats     []SurfaceFormat // returned by successive Configure calls; last one repeats
	configErrs  []error
	acquireErrs []error
	presentErrs []error
	closeAfter  int
	resizeAt    map[int]bool // Resized call numbers (from 1) that report true

	opened      bool
	closed      int
	configures  int
	recreates   int
	acquires    int
	presents    []Target
	shouldClose int
	nextTarget  int
	resizeCalls int
}

func (s *fakeSurface) Open() error {
	s.opened = true
	return nil
}

func (s *fakeSurface) Configure(recreate bool) (SurfaceFormat, error) {
	i := s.configures
	s.configures++
	if recreate {
		s.recreates++
	}
	if i < len(s.configErrs) && s.configErrs[i] != nil {
		return SurfaceFormat{}, s.configErrs[i]
	}
	if len(s.formats) == 0 {
		return rgba, nil
	}
	if i >= len(s.formats) {
		i = len(s.formats) - 1
	}
	return s.formats[i], nil
}

func (s *fakeSurface) Acquire() (Target, error) {
	i := s.acquires
	s.acquires++
	s.nextTarget++
	if i < len(s.acquireErrs) && s.acquireErrs[i] != nil {
		err := s.acquireErrs[i]
		if surfaceErrorKind(err) == SurfaceSuboptimal {
			return s.nextTarget, err
		}
		return nil, err
	}
	return s.nextTarget, nil
}

func (s *fakeSurface) Present(t Target) error {
	i := len(s.presents)
	s.presents = append(s.presents, t)
	if i < len(s.presentErrs) {
		return s.presentErrs[i]
	}
	return nil
}

func (s *fakeSurface) ShouldClose() bool {
	s.shouldClose++
	return s.closeAfter > 0 && s.shouldClose > s.closeAfter
}

func (s *fakeSurface) Resized() bool {
	s.resizeCalls++
	return s.resizeAt[s.resizeCalls]
}

func (s *fakeSurface) Close() { s.closed++ }

type fakeRenderer struct {
	built     []int32
	destroyed int
	blits     []Target
	blitErr   error
}

func (r *fakeRenderer) BuildPipeline(f SurfaceFormat) (Pipeline, error) {
	r.built = append(r.built, f.Code)
	return f.Code, nil
}

func (r *fakeRenderer) Blit(t Target, p Pipeline) error {
	r.blits = append(r.blits, t)
	return r.blitErr
}

func (r *fakeRenderer) DestroyPipeline(Pipeline) { r.destroyed++ }

func surfaceErr(kind SurfaceErrorKind) error {
	return &SurfaceError{Op: "test", Kind: kind, Err: errors.New(kind.String())}
}

// fakeClock advances only when Sleep is called or Advance is used.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type countingPacer struct{ waits int }

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}
