package present

import (
	"log/slog"
	"time"
)

const (
	statsWindow  = time.Second
	gapThreshold = 50 * time.Millisecond
)

// StatsReport summarises the presents of one stats window.
type StatsReport struct {
	Count  int
	AvgFPS float64
	AvgMs  float64
	Min    time.Duration
	Max    time.Duration
	// Spike is set when the slowest frame took more than twice the average.
	Spike bool
}

// FrameStats tracks present-to-present intervals.
type FrameStats struct {
	log *slog.Logger

	last        time.Time
	windowStart time.Time
	count       int
	sum         time.Duration
	min, max    time.Duration
	gaps        int
}

func NewFrameStats(log *slog.Logger) *FrameStats {
	return &FrameStats{log: log}
}

// Record notes a present at now. It returns a report each time a window of
// one second has been filled.
func (s *FrameStats) Record(now time.Time) (StatsReport, bool) {
	if s.last.IsZero() {
		s.last = now
		s.windowStart = now
		return StatsReport{}, false
	}

	d := now.Sub(s.last)
	s.last = now

	if d > gapThreshold {
		s.gaps++
		s.log.Warn("present gap", "gap_ms", float64(d)/float64(time.Millisecond))
	}

	if s.count == 0 || d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
	s.sum += d
	s.count++

	if now.Sub(s.windowStart) < statsWindow {
		return StatsReport{}, false
	}

	avg := s.sum / time.Duration(s.count)
	r := StatsReport{
		Count: s.count,
		AvgMs: float64(avg) / float64(time.Millisecond),
		Min:   s.min,
		Max:   s.max,
		Spike: s.max > 2*avg,
	}
	if avg > 0 {
		r.AvgFPS = float64(time.Second) / float64(avg)
	}

	s.log.Info("frame stats",
		"fps", r.AvgFPS,
		"avg_ms", r.AvgMs,
		"min_ms", float64(r.Min)/float64(time.Millisecond),
		"max_ms", float64(r.Max)/float64(time.Millisecond),
		"count", r.Count)
	if r.Spike {
		s.log.Warn("frame time spike", "max_ms", float64(r.Max)/float64(time.Millisecond), "avg_ms", r.AvgMs)
	}

	s.windowStart = now
	s.count = 0
	s.sum = 0
	s.min, s.max = 0, 0
	return r, true
}

// Gaps is the number of present intervals above 50ms so far.
func (s *FrameStats) Gaps() int { return s.gaps }
