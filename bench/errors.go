package bench

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
)

// ErrNoSamples is returned by Recorder.Report when no samples were recorded.
var ErrNoSamples = errors.New("bench: no samples recorded")

// ErrWaitTimeout reports that the concurrent-mode completion wait expired
// before every dispatched call reached a terminal state.
var ErrWaitTimeout = errors.New("bench: completion wait timed out")

// ConnError reports a channel that could not be established. Pool
// construction is fail-fast: a single ConnError aborts the whole pool.
type ConnError struct {
	Target string
	Index  int
	Err    error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("bench: channel %d to %s: %v", e.Index, e.Target, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// RPCError reports a single failed call with its status classification and
// the time spent before failing. Per-call failures never abort the batch;
// the caller logs them and omits the sample.
type RPCError struct {
	Code    codes.Code
	Elapsed time.Duration
	Err     error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("bench: rpc failed with %s after %s: %v", e.Code, e.Elapsed, e.Err)
}

func (e *RPCError) Unwrap() error { return e.Err }
