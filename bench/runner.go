package bench

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"

	"github.com/ramiyer/grpc-echo-bench/echo"
)

// Phase is a runner lifecycle state. Transitions are strictly
// Idle -> WarmingUp -> Measuring -> Reporting -> Done; WarmingUp may be
// zero-length when no warm-up calls are configured.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseWarmingUp
	PhaseMeasuring
	PhaseReporting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWarmingUp:
		return "warming-up"
	case PhaseMeasuring:
		return "measuring"
	case PhaseReporting:
		return "reporting"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// channelSource is the subset of Pool the runner draws channels from.
type channelSource interface {
	Next() grpc.ClientConnInterface
	Primary() grpc.ClientConnInterface
	Size() int
}

// Runner drives one benchmark run through warm-up, measurement, and
// reporting. The runner itself is single-goroutine; concurrent completions
// only touch the recorder and the latch.
type Runner struct {
	cfg      Config
	channels channelSource
	caller   Caller
	log      *slog.Logger
	req      *echo.Request

	phase atomic.Int32
}

// NewRunner wires a runner over an established pool. The request payload is
// built once and reused for every call of the run.
func NewRunner(cfg Config, pool *Pool, caller Caller, obs Observability) *Runner {
	return &Runner{
		cfg:      cfg,
		channels: pool,
		caller:   caller,
		log:      obs.logger(),
		req:      echo.NewRequest(cfg.PayloadKB, cfg.ResponseSize),
	}
}

// Phase reports the runner's current lifecycle state.
func (r *Runner) Phase() Phase { return Phase(r.phase.Load()) }

func (r *Runner) setPhase(p Phase) { r.phase.Store(int32(p)) }

// Run executes the warm-up phase, the measurement phase, and produces the
// final result. Per-call failures are logged and their samples omitted; a
// concurrent-mode wait timeout yields a partial result, not an error. Run
// fails only on context cancellation or when zero samples were recorded
// (ErrNoSamples).
func (r *Runner) Run(ctx context.Context) (Result, error) {
	r.setPhase(PhaseWarmingUp)
	if err := r.warmup(ctx); err != nil {
		return Result{}, err
	}

	r.setPhase(PhaseMeasuring)
	rec := NewRecorder(r.cfg.NumRPCs)
	start := time.Now()
	var waitErr error
	if r.cfg.Async {
		waitErr = r.measureConcurrent(ctx, rec)
		if waitErr != nil && !errors.Is(waitErr, ErrWaitTimeout) {
			return Result{}, waitErr
		}
	} else {
		if err := r.measureSequential(ctx, rec); err != nil {
			return Result{}, err
		}
	}
	elapsed := time.Since(start)

	r.setPhase(PhaseReporting)
	res := Result{
		NumRPCs:   r.cfg.NumRPCs,
		Channels:  r.channels.Size(),
		PayloadKB: r.cfg.PayloadKB,
		Recorded:  rec.Len(),
		Partial:   errors.Is(waitErr, ErrWaitTimeout),
		Elapsed:   elapsed,
	}
	summary, err := rec.Report()
	r.setPhase(PhaseDone)
	if err != nil {
		return res, err
	}
	res.Summary = summary
	return res, nil
}

// warmup drives the configured number of calls through the measurement call
// path with no sample sink. In concurrent mode it blocks until every
// warm-up call completes so warm-up and measurement never overlap.
func (r *Runner) warmup(ctx context.Context) error {
	if r.cfg.Warmup == 0 {
		return nil
	}
	if r.cfg.Async {
		l := newLatch(r.cfg.Warmup)
		for i := 0; i < r.cfg.Warmup; i++ {
			r.caller.CallAsync(ctx, r.channels.Next(), r.req, func(_ time.Duration, err error) {
				if err != nil {
					r.log.Warn("warm-up call failed", "err", err)
				}
				l.countDown()
			})
		}
		return l.wait(ctx, 0)
	}
	primary := r.channels.Primary()
	for i := 0; i < r.cfg.Warmup; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.caller.CallSync(ctx, primary, r.req); err != nil {
			r.log.Warn("warm-up call failed", "err", err)
		}
	}
	return nil
}

func (r *Runner) measureSequential(ctx context.Context, rec *Recorder) error {
	primary := r.channels.Primary()
	for i := 0; i < r.cfg.NumRPCs; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		elapsed, err := r.caller.CallSync(ctx, primary, r.req)
		if err != nil {
			r.log.Warn("rpc failed", "call", i, "err", err)
		} else {
			rec.Record(elapsed)
		}
		if r.cfg.Wait > 0 && i < r.cfg.NumRPCs-1 {
			time.Sleep(r.cfg.Wait)
		}
	}
	return nil
}

func (r *Runner) measureConcurrent(ctx context.Context, rec *Recorder) error {
	l := newLatch(r.cfg.NumRPCs)
	for i := 0; i < r.cfg.NumRPCs; i++ {
		call := i
		r.caller.CallAsync(ctx, r.channels.Next(), r.req, func(elapsed time.Duration, err error) {
			// Every completion, success or failure, counts down exactly once.
			if err != nil {
				r.log.Warn("rpc failed", "call", call, "err", err)
			} else {
				rec.Record(elapsed)
			}
			l.countDown()
		})
	}
	if err := l.wait(ctx, r.cfg.AsyncTimeout); err != nil {
		r.log.Warn("completion wait expired",
			"recorded", rec.Len(), "dispatched", r.cfg.NumRPCs, "timeout", r.cfg.AsyncTimeout)
		return err
	}
	return nil
}
