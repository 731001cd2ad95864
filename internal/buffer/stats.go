package buffer

import (
	"math"
)

// Stats keeps a running summary of the pushed values.
type Stats struct {
	count    int
	sum      float64
	min, max float64
}

// NewStats creates a new Stats.
func NewStats() *Stats {
	return &Stats{
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}
}

// Push adds another value.
func (s *Stats) Push(v float64) {
	s.count++
	s.sum += v
	s.min = math.Min(s.min, v)
	s.max = math.Max(s.max, v)
}

// Avg returns the mean of the values, 0 when there are none.
func (s Stats) Avg() float64 {
	if s.count == 0 {
		return 0
	}
	return s.sum / float64(s.count)
}

func (s Stats) Sum() float64 {
	return s.sum
}

func (s Stats) Count() int {
	return s.count
}

// Min returns the smallest value, 0 when there are none.
func (s Stats) Min() float64 {
	if s.count == 0 {
		return 0
	}
	return s.min
}

// Max returns the largest value, 0 when there are none.
func (s Stats) Max() float64 {
	if s.count == 0 {
		return 0
	}
	return s.max
}
