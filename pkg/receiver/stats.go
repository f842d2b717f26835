package receiver

import (
	"context"
	"sync"

	"github.com/robotalks/uartrand/pkg/sample"
)

// Summary is a snapshot of Stats.
type Summary struct {
	Total    int     `json:"total"`
	BadFrame int     `json:"bad_frames"`
	Min      int     `json:"min"`
	Max      int     `json:"max"`
	Mean     float64 `json:"mean"`
	ChiSq    float64 `json:"chi_square"`
	PValue   float64 `json:"p_value"`
}

// Stats accumulates received frames. It's safe for concurrent use.
type Stats struct {
	lock      sync.Mutex
	hist      sample.Histogram
	badFrames int
}

// HandleFrame implements FrameHandler.
func (s *Stats) HandleFrame(ctx context.Context, frame *Frame) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if frame.Valid() {
		s.hist.Add(frame.Sample)
	} else {
		s.badFrames++
	}
}

// Reset clears all counters.
func (s *Stats) Reset() {
	s.lock.Lock()
	s.hist, s.badFrames = sample.Histogram{}, 0
	s.lock.Unlock()
}

// Summary returns the current snapshot.
// Min and Max are -1 when nothing is received.
func (s *Stats) Summary() Summary {
	s.lock.Lock()
	defer s.lock.Unlock()
	sum := Summary{
		Total:    s.hist.Total(),
		BadFrame: s.badFrames,
		Min:      -1,
		Max:      -1,
		Mean:     s.hist.Mean(),
	}
	for n, c := range s.hist.Counts() {
		if c == 0 {
			continue
		}
		if sum.Min < 0 {
			sum.Min = int(sample.Min) + n
		}
		sum.Max = int(sample.Min) + n
	}
	sum.ChiSq, sum.PValue = s.hist.ChiSquare()
	return sum
}
