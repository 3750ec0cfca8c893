package bench

import (
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of one benchmark run.
type Result struct {
	NumRPCs   int
	Channels  int
	PayloadKB int

	// Recorded is the number of samples that made it into the summary.
	// Failed calls and calls still in flight when the completion wait
	// expired are excluded, so Recorded may be less than NumRPCs.
	Recorded int

	// Partial marks a concurrent run whose completion wait timed out.
	Partial bool

	// Elapsed is the wall-clock duration of the whole measurement phase.
	Elapsed time.Duration

	Summary Summary
}

// String renders the operator-facing report, latencies in milliseconds.
func (res Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "total time: %dms\n", res.Elapsed.Milliseconds())
	fmt.Fprintf(&b, "[Number of RPCs: %d, Number of channels: %d, Payload Size: %dKB]\n",
		res.NumRPCs, res.Channels, res.PayloadKB)
	if res.Partial || res.Recorded < res.NumRPCs {
		fmt.Fprintf(&b, "recorded %d of %d calls\n", res.Recorded, res.NumRPCs)
	}
	s := res.Summary
	fmt.Fprintf(&b, "\t\tAvg\tMin\tp50\tp90\tp99\tMax\n")
	fmt.Fprintf(&b, "  Time(ms)\t%d\t%d\t%d\t%d\t%d\t%d",
		s.Avg.Milliseconds(), s.Min.Milliseconds(),
		s.P50.Milliseconds(), s.P90.Milliseconds(), s.P99.Milliseconds(),
		s.Max.Milliseconds())
	return b.String()
}
