package bench

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// latch is a countdown barrier: it releases waiters once a fixed number of
// completion signals have arrived. Counts beyond the initial value are
// tolerated rather than panicking, since a late async callback may still
// fire after the run moved on.
type latch struct {
	remaining atomic.Int64
	done      chan struct{}
	once      sync.Once
}

func newLatch(n int) *latch {
	l := &latch{done: make(chan struct{})}
	l.remaining.Store(int64(n))
	if n <= 0 {
		l.release()
	}
	return l
}

// countDown records one completion.
func (l *latch) countDown() {
	if l.remaining.Add(-1) <= 0 {
		l.release()
	}
}

func (l *latch) release() {
	l.once.Do(func() { close(l.done) })
}

// wait blocks until the latch clears, the timeout elapses, or ctx is done.
// A non-positive timeout waits without bound.
func (l *latch) wait(ctx context.Context, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-l.done:
		return nil
	case <-expired:
		return ErrWaitTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
