package present

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFrameStatsReport(t *testing.T) {
	var buf bytes.Buffer
	s := NewFrameStats(slog.New(slog.NewTextHandler(&buf, nil)))
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, ok := s.Record(now); ok {
		t.Fatal("report on first present")
	}

	var (
		r  StatsReport
		ok bool
		n  int
	)
	for !ok {
		now = now.Add(16 * time.Millisecond)
		r, ok = s.Record(now)
		n++
	}

	if n != 63 || r.Count != 63 {
		t.Errorf("report after %d presents, count %d; want 63", n, r.Count)
	}
	if r.AvgMs != 16 || r.Min != 16*time.Millisecond || r.Max != 16*time.Millisecond {
		t.Errorf("report = %+v", r)
	}
	if r.AvgFPS != 62.5 {
		t.Errorf("fps = %v", r.AvgFPS)
	}
	if r.Spike {
		t.Error("spike on steady frames")
	}
	if !strings.Contains(buf.String(), "frame stats") {
		t.Errorf("missing stats log: %q", buf.String())
	}
	if s.Gaps() != 0 {
		t.Errorf("gaps = %d", s.Gaps())
	}
}

func TestFrameStatsSpikeAndGap(t *testing.T) {
	var buf bytes.Buffer
	s := NewFrameStats(slog.New(slog.NewTextHandler(&buf, nil)))
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Record(now)

	now = now.Add(80 * time.Millisecond)
	s.Record(now)
	if s.Gaps() != 1 {
		t.Fatalf("gaps = %d", s.Gaps())
	}

	var (
		r  StatsReport
		ok bool
	)
	for !ok {
		now = now.Add(10 * time.Millisecond)
		r, ok = s.Record(now)
	}
	if !r.Spike {
		t.Errorf("no spike reported: %+v", r)
	}
	if r.Max != 80*time.Millisecond || r.Min != 10*time.Millisecond {
		t.Errorf("min/max = %v/%v", r.Min, r.Max)
	}
	out := buf.String()
	if !strings.Contains(out, "present gap") || !strings.Contains(out, "frame time spike") {
		t.Errorf("log = %q", out)
	}
}
