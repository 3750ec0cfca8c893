package bench

import (
	"slices"
	"sync"
	"time"
)

// Recorder accumulates elapsed-time samples from completed calls. Record is
// safe from concurrent completion callbacks; ordering between concurrent
// appends is unspecified, but no sample is lost.
type Recorder struct {
	mu      sync.Mutex
	samples []time.Duration
}

// NewRecorder returns an empty recorder sized for the expected sample count.
func NewRecorder(capacity int) *Recorder {
	if capacity < 0 {
		capacity = 0
	}
	return &Recorder{samples: make([]time.Duration, 0, capacity)}
}

// Record appends one sample.
func (r *Recorder) Record(d time.Duration) {
	r.mu.Lock()
	r.samples = append(r.samples, d)
	r.mu.Unlock()
}

// Len returns the number of samples recorded so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Summary is the sorted-percentile digest of one measurement phase. Avg is
// the integer division of the sample sum by the sample count, truncating
// toward zero.
type Summary struct {
	Count int
	Avg   time.Duration
	Min   time.Duration
	Max   time.Duration
	P50   time.Duration
	P90   time.Duration
	P99   time.Duration
}

// Report sorts a snapshot of the accumulated samples ascending and computes
// the summary. Percentiles are percentile-at-rank: the value at index
// floor(count*p), clamped to the last sample. Reporting over zero samples
// returns ErrNoSamples.
func (r *Recorder) Report() (Summary, error) {
	r.mu.Lock()
	samples := slices.Clone(r.samples)
	r.mu.Unlock()

	if len(samples) == 0 {
		return Summary{}, ErrNoSamples
	}
	slices.Sort(samples)

	var sum time.Duration
	for _, s := range samples {
		sum += s
	}
	n := len(samples)
	return Summary{
		Count: n,
		Avg:   sum / time.Duration(n),
		Min:   samples[0],
		Max:   samples[n-1],
		P50:   samples[rank(n, 0.50)],
		P90:   samples[rank(n, 0.90)],
		P99:   samples[rank(n, 0.99)],
	}, nil
}

// rank maps a percentile to a sample index: floor(n*p) clamped to [0, n-1].
func rank(n int, p float64) int {
	i := int(float64(n) * p)
	if i > n-1 {
		i = n - 1
	}
	return i
}
