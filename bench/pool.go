package bench

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Metadata keys the primary-channel decorator injects.
const (
	cookieHeader  = "x-echo-cookie"
	routingHeader = "x-echo-route"
)

const metricPrefix = "echobench"

// Pool owns a fixed set of gRPC channels to one target and hands them out in
// round-robin order. Channel 0 doubles as the primary channel for sequential
// runs, wrapped with per-run metadata injection.
type Pool struct {
	target  string
	conns   []*grpc.ClientConn
	cursor  atomic.Uint64
	primary grpc.ClientConnInterface
	log     *slog.Logger
}

// NewPool opens cfg.Channels independent channels to cfg.Target and forces
// each one to connect. Fail-fast: if any channel cannot reach Ready within
// cfg.ConnectTimeout, the channels opened so far are torn down and a
// *ConnError is returned.
//
// When obs carries a meter provider, every channel is dialed with the
// latency-timeline instrumentation (see timeline.go). Extra dial options are
// appended last so tests can override the dialer or credentials.
func NewPool(ctx context.Context, cfg Config, obs Observability, opts ...grpc.DialOption) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	creds := insecure.NewCredentials()
	if cfg.TLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if obs.MeterProvider != nil {
		tl := newTimeline(newCallMetrics(obs.MeterProvider, metricPrefix))
		dialOpts = append(dialOpts, tl.dialOptions()...)
	}
	dialOpts = append(dialOpts, opts...)

	p := &Pool{target: cfg.Target, log: obs.logger()}
	for i := 0; i < cfg.Channels; i++ {
		cc, err := grpc.NewClient(cfg.Target, dialOpts...)
		if err == nil {
			err = waitReady(ctx, cc, cfg.ConnectTimeout)
			if err != nil {
				_ = cc.Close()
			}
		}
		if err != nil {
			p.Close(cfg.CloseTimeout)
			return nil, &ConnError{Target: cfg.Target, Index: i, Err: err}
		}
		p.conns = append(p.conns, cc)
	}
	p.primary = &headerConn{cc: p.conns[0], cookie: cfg.Cookie, corp: cfg.Corp}
	return p, nil
}

// grpc.NewClient is lazy; force the connection so a bad target surfaces
// before the measurement phase instead of inflating its first samples.
func waitReady(ctx context.Context, cc *grpc.ClientConn, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cc.Connect()
	for {
		s := cc.GetState()
		if s == connectivity.Ready {
			return nil
		}
		if s == connectivity.TransientFailure || s == connectivity.Shutdown {
			// Fail fast rather than ride the reconnect backoff.
			return fmt.Errorf("channel entered %s", s)
		}
		if !cc.WaitForStateChange(ctx, s) {
			return fmt.Errorf("channel not ready: %w", ctx.Err())
		}
	}
}

// Next returns the channel at the cursor and advances it. Safe for
// concurrent use; only the cursor read-and-advance is atomic, so fairness
// across overlapping calls is best-effort.
func (p *Pool) Next() grpc.ClientConnInterface {
	i := p.cursor.Add(1) - 1
	return p.conns[i%uint64(len(p.conns))]
}

// Primary returns channel 0 wrapped with per-run metadata injection.
func (p *Pool) Primary() grpc.ClientConnInterface { return p.primary }

// Size returns the number of channels in the pool.
func (p *Pool) Size() int { return len(p.conns) }

// Close shuts every channel down, waiting up to timeout for each. Close is
// best-effort cleanup: a channel failing to close is logged and the rest are
// still closed.
func (p *Pool) Close(timeout time.Duration) {
	for i, cc := range p.conns {
		if err := closeConn(cc, timeout); err != nil {
			p.log.Warn("channel close", "index", i, "err", err)
		}
	}
}

func closeConn(cc *grpc.ClientConn, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- cc.Close() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("not closed after %s", timeout)
	}
}

// headerConn decorates a channel with fixed per-run metadata: the auth
// cookie and the corp routing flag, attached to every outgoing call.
type headerConn struct {
	cc     grpc.ClientConnInterface
	cookie string
	corp   bool
}

func (h *headerConn) Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error {
	return h.cc.Invoke(h.annotate(ctx), method, args, reply, opts...)
}

func (h *headerConn) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return h.cc.NewStream(h.annotate(ctx), desc, method, opts...)
}

func (h *headerConn) annotate(ctx context.Context) context.Context {
	if h.cookie != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, cookieHeader, h.cookie)
	}
	if h.corp {
		ctx = metadata.AppendToOutgoingContext(ctx, routingHeader, "corp")
	}
	return ctx
}
