package bench

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/ramiyer/grpc-echo-bench/echo"
)

// Caller issues single echo RPCs over a channel. Runner depends on this
// interface so tests can substitute scripted latencies.
type Caller interface {
	CallSync(ctx context.Context, conn grpc.ClientConnInterface, req *echo.Request) (time.Duration, error)
	CallAsync(ctx context.Context, conn grpc.ClientConnInterface, req *echo.Request, done func(time.Duration, error))
}

// Invoker performs echo RPCs. Calls are fire-once: no retry, and no
// cancellation once dispatched.
type Invoker struct {
	// Tracer, when non-nil, wraps every synchronous call in a span.
	Tracer trace.Tracer
}

// CallSync sends req over conn and blocks until a terminal state. On success
// it returns the elapsed wall-clock time; on failure an *RPCError carrying
// the gRPC status classification and the time spent.
func (inv *Invoker) CallSync(ctx context.Context, conn grpc.ClientConnInterface, req *echo.Request) (time.Duration, error) {
	if inv.Tracer != nil {
		var span trace.Span
		ctx, span = inv.Tracer.Start(ctx, "echo")
		defer span.End()
	}
	return inv.call(ctx, conn, req)
}

// CallAsync dispatches the call on its own goroutine and returns
// immediately. done is invoked exactly once when the call reaches a terminal
// state. A callback firing after the caller stopped waiting still executes;
// the caller discards its result.
func (inv *Invoker) CallAsync(ctx context.Context, conn grpc.ClientConnInterface, req *echo.Request, done func(time.Duration, error)) {
	go func() {
		done(inv.call(ctx, conn, req))
	}()
}

func (inv *Invoker) call(ctx context.Context, conn grpc.ClientConnInterface, req *echo.Request) (time.Duration, error) {
	start := time.Now()
	_, err := echo.NewClient(conn).EchoWithResponseSize(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, &RPCError{Code: status.Code(err), Elapsed: elapsed, Err: err}
	}
	return elapsed, nil
}

var _ Caller = (*Invoker)(nil)
