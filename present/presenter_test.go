package present

import (
	"context"
	"errors"
	"testing"
)

func readyPresenter(t *testing.T, s *fakeSurface, r *fakeRenderer) *Presenter {
	t.Helper()
	p := New(s, Options{})
	if err := p.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := p.Ready(r); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	return p
}

func TestStateTransitions(t *testing.T) {
	s := &fakeSurface{}
	r := &fakeRenderer{}
	p := New(s, Options{})

	if p.State() != StateUninitialized {
		t.Fatalf("state = %s", p.State())
	}
	if err := p.Frame(); !errors.Is(err, ErrState) {
		t.Errorf("Frame before Ready: %v", err)
	}
	if err := p.Ready(r); !errors.Is(err, ErrState) {
		t.Errorf("Ready before Open: %v", err)
	}

	if err := p.Open(); err != nil {
		t.Fatal(err)
	}
	if p.State() != StateSurfaceCreated || !s.opened {
		t.Fatalf("state = %s", p.State())
	}
	if err := p.Open(); !errors.Is(err, ErrState) {
		t.Errorf("second Open: %v", err)
	}

	if err := p.Ready(r); err != nil {
		t.Fatal(err)
	}
	if p.State() != StateReady {
		t.Fatalf("state = %s", p.State())
	}

	if err := p.Frame(); err != nil {
		t.Fatal(err)
	}

	p.Close()
	p.Close()
	if p.State() != StateClosed {
		t.Fatalf("state = %s", p.State())
	}
	if s.closed != 1 {
		t.Errorf("surface closed %d times", s.closed)
	}
	if r.destroyed != 1 {
		t.Errorf("destroyed %d pipelines, want 1", r.destroyed)
	}
	if err := p.Frame(); !errors.Is(err, ErrState) {
		t.Errorf("Frame after Close: %v", err)
	}
}

func TestCloseUninitializedSkipsSurface(t *testing.T) {
	s := &fakeSurface{}
	p := New(s, Options{})
	p.Close()
	if s.closed != 0 {
		t.Error("closed a surface that was never opened")
	}
}

func TestFrameBlitsAndPresents(t *testing.T) {
	s := &fakeSurface{}
	r := &fakeRenderer{}
	p := readyPresenter(t, s, r)

	for i := 0; i < 3; i++ {
		if err := p.Frame(); err != nil {
			t.Fatal(err)
		}
	}
	if len(r.blits) != 3 || len(s.presents) != 3 {
		t.Errorf("blits=%d presents=%d", len(r.blits), len(s.presents))
	}
	if len(r.built) != 1 {
		t.Errorf("pipeline built %d times, want once", len(r.built))
	}
	if p.Presented() != 3 {
		t.Errorf("presented = %d", p.Presented())
	}
}

func TestAcquireOutOfDateRetriesOnce(t *testing.T) {
	s := &fakeSurface{acquireErrs: []error{surfaceErr(SurfaceOutOfDate)}}
	r := &fakeRenderer{}
	p := readyPresenter(t, s, r)

	if err := p.Frame(); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if s.configures != 2 {
		t.Errorf("configures = %d, want 2", s.configures)
	}
	if s.acquires != 2 {
		t.Errorf("acquires = %d, want 2", s.acquires)
	}
	if len(s.presents) != 1 {
		t.Errorf("presents = %d", len(s.presents))
	}
	if p.Reconfigures() != 1 {
		t.Errorf("reconfigures = %d", p.Reconfigures())
	}
}

func TestAcquireSecondFailureIsFatal(t *testing.T) {
	for _, kind := range []SurfaceErrorKind{SurfaceOutOfDate, SurfaceLost} {
		t.Run(kind.String(), func(t *testing.T) {
			s := &fakeSurface{acquireErrs: []error{surfaceErr(kind), surfaceErr(kind)}}
			p := readyPresenter(t, s, &fakeRenderer{})

			err := p.Frame()
			var se *SurfaceError
			if !errors.As(err, &se) || se.Kind != SurfaceFatal {
				t.Fatalf("err = %v, want fatal *SurfaceError", err)
			}
			if s.acquires != 2 {
				t.Errorf("acquires = %d, want exactly one retry", s.acquires)
			}
			if s.configures != 2 {
				t.Errorf("configures = %d, want one reconfigure", s.configures)
			}
			if len(s.presents) != 0 {
				t.Error("presented after fatal acquire")
			}
		})
	}
}

func TestAcquireLostRecreatesSurface(t *testing.T) {
	s := &fakeSurface{acquireErrs: []error{surfaceErr(SurfaceLost)}}
	p := readyPresenter(t, s, &fakeRenderer{})
	if err := p.Frame(); err != nil {
		t.Fatal(err)
	}
	if s.recreates != 1 {
		t.Errorf("recreates = %d, want 1", s.recreates)
	}
}

func TestAcquireSuboptimalReconfigures(t *testing.T) {
	s := &fakeSurface{acquireErrs: []error{surfaceErr(SurfaceSuboptimal), surfaceErr(SurfaceSuboptimal)}}
	r := &fakeRenderer{}
	p := readyPresenter(t, s, r)

	if err := p.Frame(); err != nil {
		t.Fatalf("suboptimal acquire must not be fatal: %v", err)
	}
	if s.configures != 2 || s.acquires != 2 {
		t.Errorf("configures=%d acquires=%d", s.configures, s.acquires)
	}
	if len(s.presents) != 1 || s.presents[0] != r.blits[0] {
		t.Errorf("presents = %v, blits = %v", s.presents, r.blits)
	}
}

func TestAcquireSuboptimalKeepsRetry(t *testing.T) {
	tests := []struct {
		name       string
		kinds      []SurfaceErrorKind
		wantFatal  bool
		wantAcq    int
		wantConfig int
	}{
		{
			name:       "suboptimal then out of date",
			kinds:      []SurfaceErrorKind{SurfaceSuboptimal, SurfaceOutOfDate},
			wantAcq:    3,
			wantConfig: 3,
		},
		{
			name:       "out of date then suboptimal",
			kinds:      []SurfaceErrorKind{SurfaceOutOfDate, SurfaceSuboptimal},
			wantAcq:    3,
			wantConfig: 3,
		},
		{
			name:       "suboptimal then lost",
			kinds:      []SurfaceErrorKind{SurfaceSuboptimal, SurfaceLost},
			wantAcq:    3,
			wantConfig: 3,
		},
		{
			name:       "suboptimal then out of date twice",
			kinds:      []SurfaceErrorKind{SurfaceSuboptimal, SurfaceOutOfDate, SurfaceOutOfDate},
			wantFatal:  true,
			wantAcq:    3,
			wantConfig: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSurface{}
			for _, k := range tt.kinds {
				s.acquireErrs = append(s.acquireErrs, surfaceErr(k))
			}
			p := readyPresenter(t, s, &fakeRenderer{})

			err := p.Frame()
			if tt.wantFatal {
				var se *SurfaceError
				if !errors.As(err, &se) || se.Kind != SurfaceFatal {
					t.Fatalf("err = %v, want fatal *SurfaceError", err)
				}
			} else if err != nil {
				t.Fatalf("Frame: %v", err)
			}
			if s.acquires != tt.wantAcq {
				t.Errorf("acquires = %d, want %d", s.acquires, tt.wantAcq)
			}
			if s.configures != tt.wantConfig {
				t.Errorf("configures = %d, want %d", s.configures, tt.wantConfig)
			}
			wantPresents := 1
			if tt.wantFatal {
				wantPresents = 0
			}
			if len(s.presents) != wantPresents {
				t.Errorf("presents = %d, want %d", len(s.presents), wantPresents)
			}
		})
	}
}

func TestAcquireOtherErrorIsFatal(t *testing.T) {
	boom := errors.New("device lost")
	s := &fakeSurface{acquireErrs: []error{boom}}
	p := readyPresenter(t, s, &fakeRenderer{})
	if err := p.Frame(); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if s.configures != 1 {
		t.Error("reconfigured on an unrecoverable error")
	}
}

func TestPresentStaleReconfiguresNextFrame(t *testing.T) {
	s := &fakeSurface{presentErrs: []error{surfaceErr(SurfaceOutOfDate)}}
	p := readyPresenter(t, s, &fakeRenderer{})

	if err := p.Frame(); err != nil {
		t.Fatal(err)
	}
	if s.configures != 1 {
		t.Fatalf("reconfigured inside the failing frame")
	}
	if err := p.Frame(); err != nil {
		t.Fatal(err)
	}
	if s.configures != 2 {
		t.Errorf("configures = %d, want 2", s.configures)
	}
}

func TestResizeReconfiguresBeforeAcquire(t *testing.T) {
	s := &fakeSurface{resizeAt: map[int]bool{2: true}}
	p := readyPresenter(t, s, &fakeRenderer{})

	for i := 0; i < 3; i++ {
		if err := p.Frame(); err != nil {
			t.Fatalf("Frame %d: %v", i, err)
		}
	}
	if s.configures != 2 {
		t.Errorf("configures = %d, want one rebuild for one resize", s.configures)
	}
	if s.recreates != 0 {
		t.Errorf("recreates = %d, resize must keep the surface", s.recreates)
	}
	if p.Reconfigures() != 1 {
		t.Errorf("reconfigures = %d", p.Reconfigures())
	}
	if len(s.presents) != 3 {
		t.Errorf("presents = %d, want 3", len(s.presents))
	}
}

func TestPipelineCachedPerFormat(t *testing.T) {
	s := &fakeSurface{
		formats:     []SurfaceFormat{rgba, bgra, rgba},
		acquireErrs: []error{nil, surfaceErr(SurfaceOutOfDate), nil, surfaceErr(SurfaceOutOfDate)},
	}
	r := &fakeRenderer{}
	p := readyPresenter(t, s, r)

	for i := 0; i < 3; i++ {
		if err := p.Frame(); err != nil {
			t.Fatal(err)
		}
	}
	if len(r.built) != 2 || r.built[0] != rgba.Code || r.built[1] != bgra.Code {
		t.Errorf("built = %v, want one per format", r.built)
	}
	if p.Format() != rgba {
		t.Errorf("format = %+v", p.Format())
	}
	p.Close()
	if r.destroyed != 2 {
		t.Errorf("destroyed = %d", r.destroyed)
	}
}

func TestHiddenWindowSkipsFrames(t *testing.T) {
	s := &fakeSurface{configErrs: []error{ErrSurfaceHidden, ErrSurfaceHidden}}
	r := &fakeRenderer{}
	p := readyPresenter(t, s, r)

	if err := p.Frame(); err != nil {
		t.Fatal(err)
	}
	if s.acquires != 0 {
		t.Error("acquired while hidden")
	}
	if err := p.Frame(); err != nil {
		t.Fatal(err)
	}
	if s.acquires != 1 || len(s.presents) != 1 {
		t.Errorf("acquires=%d presents=%d", s.acquires, len(s.presents))
	}
}

func TestBlitErrorIsFatal(t *testing.T) {
	r := &fakeRenderer{blitErr: errors.New("submit failed")}
	p := readyPresenter(t, &fakeSurface{}, r)
	if err := p.Frame(); !errors.Is(err, r.blitErr) {
		t.Errorf("err = %v", err)
	}
}

func TestRunStopsWhenWindowCloses(t *testing.T) {
	s := &fakeSurface{closeAfter: 4}
	pacer := &countingPacer{}
	p := readyPresenter(t, s, &fakeRenderer{})

	if err := p.Run(context.Background(), pacer); err != nil {
		t.Fatal(err)
	}
	if pacer.waits != 4 || len(s.presents) != 4 {
		t.Errorf("waits=%d presents=%d", pacer.waits, len(s.presents))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p := readyPresenter(t, &fakeSurface{}, &fakeRenderer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx, &countingPacer{}); err != nil {
		t.Errorf("Run = %v", err)
	}
}

func TestRunReturnsFatal(t *testing.T) {
	s := &fakeSurface{acquireErrs: []error{surfaceErr(SurfaceOutOfDate), surfaceErr(SurfaceOutOfDate)}}
	p := readyPresenter(t, s, &fakeRenderer{})
	if err := p.Run(context.Background(), &countingPacer{}); err == nil {
		t.Error("Run swallowed a fatal surface error")
	}
}
