// Package bench implements the echo latency benchmark core: a round-robin
// channel pool, a fire-once call invoker, a concurrency-safe latency
// recorder, and the runner driving warm-up and measurement phases.
//
// # Modes
//
// Sequential mode issues one blocking call at a time over the pool's primary
// channel (channel 0, decorated with per-run metadata). Concurrent mode
// fires all calls at once against channels drawn round-robin and waits on a
// countdown latch with a configurable timeout; a partial result is produced
// when the timeout expires first.
//
// # Quick Start
//
//	cfg := bench.DefaultConfig()
//	cfg.Target = "localhost:50051"
//	cfg.NumRPCs = 1000
//
//	pool, err := bench.NewPool(ctx, cfg, obs)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close(cfg.CloseTimeout)
//
//	runner := bench.NewRunner(cfg, pool, &bench.Invoker{}, obs)
//	result, err := runner.Run(ctx)
//
// # Concurrency
//
// Exactly three pieces of state are mutated concurrently: the pool cursor
// (atomic increment), the recorder's sample list (mutex append), and the
// countdown latch (atomic decrement plus close-once channel). Completion
// callbacks run on invoker-owned goroutines; only the explicit latch wait
// blocks the orchestration goroutine. In-flight calls cannot be cancelled
// once dispatched; a callback firing after the wait expired still runs, its
// sample discarded with the rest of the partial report bookkeeping.
package bench
