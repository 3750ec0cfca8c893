package bench

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestReportKnownSamples(t *testing.T) {
	rec := NewRecorder(5)
	for _, n := range []int{30, 10, 50, 20, 40} {
		rec.Record(ms(n))
	}

	s, err := rec.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	want := Summary{Count: 5, Avg: ms(30), Min: ms(10), Max: ms(50), P50: ms(30), P90: ms(50), P99: ms(50)}
	if s != want {
		t.Fatalf("summary = %+v, want %+v", s, want)
	}
}

func TestReportEmpty(t *testing.T) {
	_, err := NewRecorder(0).Report()
	if !errors.Is(err, ErrNoSamples) {
		t.Fatalf("err = %v, want ErrNoSamples", err)
	}
}

func TestReportSingleSample(t *testing.T) {
	rec := NewRecorder(1)
	rec.Record(ms(7))

	s, err := rec.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	for name, got := range map[string]time.Duration{
		"avg": s.Avg, "min": s.Min, "max": s.Max, "p50": s.P50, "p90": s.P90, "p99": s.P99,
	} {
		if got != ms(7) {
			t.Errorf("%s = %v, want %v", name, got, ms(7))
		}
	}
}

func TestReportOrdering(t *testing.T) {
	rec := NewRecorder(0)
	for _, n := range []int{93, 5, 41, 12, 77, 3, 60, 28, 85, 19, 54, 8} {
		rec.Record(ms(n))
	}

	s, err := rec.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !(s.Min <= s.P50 && s.P50 <= s.P90 && s.P90 <= s.P99 && s.P99 <= s.Max) {
		t.Fatalf("percentiles out of order: %+v", s)
	}
	if s.Avg < s.Min || s.Avg > s.Max {
		t.Fatalf("avg %v outside [%v, %v]", s.Avg, s.Min, s.Max)
	}
}

func TestRecordConcurrent(t *testing.T) {
	const n = 100
	rec := NewRecorder(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec.Record(ms(i + 1))
		}(i)
	}
	wg.Wait()

	if got := rec.Len(); got != n {
		t.Fatalf("Len = %d, want %d", got, n)
	}
	s, err := rec.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if s.Count != n {
		t.Fatalf("Count = %d, want %d", s.Count, n)
	}
}

func TestRankClamped(t *testing.T) {
	for _, tc := range []struct {
		n    int
		p    float64
		want int
	}{
		{1, 0.5, 0},
		{1, 0.99, 0},
		{5, 0.5, 2},
		{5, 0.9, 4},
		{5, 0.99, 4},
		{100, 0.99, 99},
		{200, 0.99, 198},
	} {
		if got := rank(tc.n, tc.p); got != tc.want {
			t.Errorf("rank(%d, %v) = %d, want %d", tc.n, tc.p, got, tc.want)
		}
	}
}
