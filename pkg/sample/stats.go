package sample

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// Histogram counts Samples per value.
type Histogram struct {
	counts [Span]int
	total  int
}

// Add counts a sample, invalid values are ignored.
func (h *Histogram) Add(s Sample) {
	if !s.Valid() {
		return
	}
	h.counts[s-Min]++
	h.total++
}

// Total returns the number of counted samples.
func (h *Histogram) Total() int {
	return h.total
}

// Count returns how many times s was counted.
func (h *Histogram) Count(s Sample) int {
	if !s.Valid() {
		return 0
	}
	return h.counts[s-Min]
}

// Counts returns a copy of per-value counts, index 0 is Min.
func (h *Histogram) Counts() []int {
	counts := make([]int, Span)
	copy(counts, h.counts[:])
	return counts
}

// Mean returns the average of counted samples.
func (h *Histogram) Mean() float64 {
	if h.total == 0 {
		return 0
	}
	var sum int
	for n, c := range h.counts {
		sum += (int(Min) + n) * c
	}
	return float64(sum) / float64(h.total)
}

// ChiSquare tests the counts against the uniform distribution.
// See ChiSquare.
func (h *Histogram) ChiSquare() (stat, p float64) {
	return ChiSquare(h.counts[:])
}

// ChiSquare computes Pearson's goodness-of-fit statistic of counts against
// a uniform distribution over all buckets and its p-value.
// With no observations, it returns (0, 1).
func ChiSquare(counts []int) (stat, p float64) {
	var total int
	for _, c := range counts {
		total += c
	}
	if total == 0 || len(counts) < 2 {
		return 0, 1
	}
	expected := float64(total) / float64(len(counts))
	for _, c := range counts {
		d := float64(c) - expected
		stat += d * d / expected
	}
	p = distuv.ChiSquared{K: float64(len(counts) - 1)}.Survival(stat)
	return stat, p
}
