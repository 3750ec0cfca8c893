package bench

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const maxAttrCacheSize = 1024

// callMetrics emits the per-call latency breakdown histograms. Attribute
// options are cached per (method, code) so the completion path stays free of
// per-call attribute allocations.
type callMetrics struct {
	hTotal        metric.Float64Histogram
	hEstablish    metric.Float64Histogram
	hSendStall    metric.Float64Histogram
	hResponseWait metric.Float64Histogram

	mu   sync.Mutex
	opts map[callAttrKey]metric.RecordOption
}

type callAttrKey struct {
	method string
	code   string
}

func newCallMetrics(mp metric.MeterProvider, prefix string) *callMetrics {
	meter := mp.Meter(prefix)
	m := &callMetrics{opts: make(map[callAttrKey]metric.RecordOption)}
	m.hTotal = mustHist(meter, prefix+".call_total_ms")
	m.hEstablish = mustHist(meter, prefix+".channel_establish_ms")
	m.hSendStall = mustHist(meter, prefix+".send_stall_ms")
	m.hResponseWait = mustHist(meter, prefix+".response_wait_ms")
	return m
}

func mustHist(m metric.Meter, name string) metric.Float64Histogram {
	h, _ := m.Float64Histogram(name)
	return h
}

func (m *callMetrics) record(ctx context.Context, method, code string,
	total, establish, sendStall, responseWait time.Duration,
) {
	if ctx == nil {
		ctx = context.Background()
	}
	opt := m.recordOption(method, code)
	m.hTotal.Record(ctx, durMs(total), opt)
	m.hEstablish.Record(ctx, durMs(establish), opt)
	m.hSendStall.Record(ctx, durMs(sendStall), opt)
	m.hResponseWait.Record(ctx, durMs(responseWait), opt)
}

func (m *callMetrics) recordOption(method, code string) metric.RecordOption {
	key := callAttrKey{method: method, code: code}

	m.mu.Lock()
	defer m.mu.Unlock()

	if opt, ok := m.opts[key]; ok {
		return opt
	}
	// bound cache size (simple strategy: clear when too big)
	if len(m.opts) >= maxAttrCacheSize {
		m.opts = make(map[callAttrKey]metric.RecordOption)
	}
	opt := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("code", code),
	)
	m.opts[key] = opt
	return opt
}

func durMs(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
