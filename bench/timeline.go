package bench

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	grpcstats "google.golang.org/grpc/stats"
	"google.golang.org/grpc/status"
)

// timeline instruments every call made over a pool channel with a latency
// breakdown: dispatch -> first OutHeader (establish/queueing), OutHeader ->
// first OutPayload (send stall), OutPayload -> End (response wait). Results
// feed the callMetrics histograms; they never feed the Recorder.
type timeline struct {
	metrics *callMetrics
	pool    sync.Pool
}

func newTimeline(metrics *callMetrics) *timeline {
	t := &timeline{metrics: metrics}
	t.pool.New = func() any { return &callSpan{} }
	return t
}

// dialOptions returns the options that attach the timeline to a channel.
func (t *timeline) dialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithStatsHandler(&timelineStats{t: t}),
		grpc.WithChainUnaryInterceptor(t.unaryInterceptor()),
	}
}

type callSpanKey struct{}

// callSpan is the per-call mutable state. The stats handler runs on
// transport goroutines, so every field it touches is atomic.
type callSpan struct {
	method    string
	startUnix int64

	outHeaderUnix  atomic.Int64
	outPayloadUnix atomic.Int64
	endUnix        atomic.Int64
}

func (s *callSpan) reset() {
	s.method = ""
	s.startUnix = 0
	s.outHeaderUnix.Store(0)
	s.outPayloadUnix.Store(0)
	s.endUnix.Store(0)
}

func (t *timeline) unaryInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		sp := t.pool.Get().(*callSpan)
		sp.reset()
		sp.method = method
		sp.startUnix = time.Now().UnixNano()

		ctx = context.WithValue(ctx, callSpanKey{}, sp)
		err := invoker(ctx, method, req, reply, cc, opts...)

		// invoker blocks until the unary RPC is complete
		t.finalize(ctx, sp, err)
		t.pool.Put(sp)
		return err
	}
}

func (t *timeline) finalize(ctx context.Context, sp *callSpan, callErr error) {
	start := time.Unix(0, sp.startUnix)
	endUnix := sp.endUnix.Load()
	if endUnix == 0 {
		endUnix = time.Now().UnixNano()
	}
	end := time.Unix(0, endUnix)

	var establish, sendStall, responseWait time.Duration
	oh := sp.outHeaderUnix.Load()
	op := sp.outPayloadUnix.Load()
	if oh > 0 {
		establish = time.Unix(0, oh).Sub(start)
	}
	if oh > 0 && op >= oh {
		sendStall = time.Unix(0, op).Sub(time.Unix(0, oh))
	}
	if op > 0 && endUnix >= op {
		responseWait = end.Sub(time.Unix(0, op))
	}

	t.metrics.record(ctx, sp.method, status.Code(callErr).String(),
		end.Sub(start), establish, sendStall, responseWait)
}

type timelineStats struct {
	t *timeline
}

func (h *timelineStats) TagRPC(ctx context.Context, _ *grpcstats.RPCTagInfo) context.Context {
	return ctx
}

func (h *timelineStats) HandleRPC(ctx context.Context, rs grpcstats.RPCStats) {
	sp, _ := ctx.Value(callSpanKey{}).(*callSpan)
	if sp == nil {
		return
	}

	switch ev := rs.(type) {
	case *grpcstats.OutHeader:
		sp.outHeaderUnix.CompareAndSwap(0, time.Now().UnixNano())

	case *grpcstats.OutPayload:
		ts := ev.SentTime
		if ts.IsZero() {
			ts = time.Now()
		}
		sp.outPayloadUnix.CompareAndSwap(0, ts.UnixNano())

	case *grpcstats.End:
		ts := ev.EndTime
		if ts.IsZero() {
			ts = time.Now()
		}
		sp.endUnix.Store(ts.UnixNano())
	}
}

func (h *timelineStats) TagConn(ctx context.Context, _ *grpcstats.ConnTagInfo) context.Context {
	return ctx
}

func (h *timelineStats) HandleConn(context.Context, grpcstats.ConnStats) {}

var _ grpcstats.Handler = (*timelineStats)(nil)
