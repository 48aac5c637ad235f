package confidence

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// outlierSigmas is how far from the window mean a sample may sit before it is ignored.
const outlierSigmas = 2.0

// DistanceSmoother keeps a sliding window of per-frame distance samples and
// reports their outlier-rejected mean.
type DistanceSmoother struct {
	window  []float64
	next    int
	filled  int
	scratch []float64
}

// NewDistanceSmoother creates a smoother over the last size samples.
// Sizes below one are treated as one.
func NewDistanceSmoother(size int) *DistanceSmoother {
	if size < 1 {
		size = 1
	}
	return &DistanceSmoother{
		window:  make([]float64, size),
		scratch: make([]float64, 0, size),
	}
}

// Add records a sample and returns the smoothed distance.
// NaN and infinite samples are dropped; with no samples at all the result is NaN.
func (s *DistanceSmoother) Add(sample float32) float32 {
	v := float64(sample)
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		s.window[s.next] = v
		s.next = (s.next + 1) % len(s.window)
		if s.filled < len(s.window) {
			s.filled++
		}
	}
	return s.Value()
}

// Value returns the current smoothed distance without adding a sample.
func (s *DistanceSmoother) Value() float32 {
	if s.filled == 0 {
		return float32(math.NaN())
	}
	samples := s.window[:s.filled]

	mean, std := stat.MeanStdDev(samples, nil)
	if s.filled < 3 || std == 0 || math.IsNaN(std) {
		return float32(mean)
	}

	s.scratch = s.scratch[:0]
	for _, v := range samples {
		if math.Abs(v-mean) <= outlierSigmas*std {
			s.scratch = append(s.scratch, v)
		}
	}
	if len(s.scratch) == 0 {
		return float32(mean)
	}
	return float32(stat.Mean(s.scratch, nil))
}

// Len returns the number of samples in the window.
func (s *DistanceSmoother) Len() int {
	return s.filled
}

// Reset empties the window.
func (s *DistanceSmoother) Reset() {
	s.next = 0
	s.filled = 0
}
