// Command echobench measures the latency distribution of a remote echo
// service: it issues a configured number of unary RPCs, sequentially or
// concurrently over multiple channels, and prints avg/min/p50/p90/p99/max.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ramiyer/grpc-echo-bench/bench"
	"github.com/ramiyer/grpc-echo-bench/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	defaults := bench.DefaultConfig()

	var (
		configFile   = flag.String("config", "", "optional YAML config file; explicit flags override it")
		target       = flag.String("target", defaults.Target, "echo service host:port")
		useTLS       = flag.Bool("tls", defaults.TLS, "use TLS transport credentials")
		channels     = flag.Int("channels", defaults.Channels, "number of gRPC channels")
		numRPCs      = flag.Int("num-rpcs", defaults.NumRPCs, "number of measured calls")
		warmup       = flag.Int("warmup", defaults.Warmup, "number of warm-up calls (discarded)")
		payloadKB    = flag.Int("payload-kb", defaults.PayloadKB, "request payload size in KB")
		responseSize = flag.Int("response-size", defaults.ResponseSize, "requested response size in bytes")
		async        = flag.Bool("async", defaults.Async, "concurrent mode: dispatch all calls at once")
		asyncTimeout = flag.Duration("async-timeout", defaults.AsyncTimeout, "concurrent-mode completion wait")
		wait         = flag.Duration("wait", defaults.Wait, "fixed delay between sequential calls")
		cookie       = flag.String("cookie", defaults.Cookie, "auth cookie injected on the primary channel")
		corp         = flag.Bool("corp", defaults.Corp, "set the corp routing flag on the primary channel")
		connTimeout  = flag.Duration("connect-timeout", defaults.ConnectTimeout, "per-channel establishment timeout")
		tracing      = flag.Bool("tracer", false, "wrap synchronous calls in trace spans")
		otlpEndpoint = flag.String("otlp-endpoint", "", "OTLP/HTTP trace endpoint (stdout export when empty)")
		metricsPort  = flag.Int("metrics-port", 0, "serve Prometheus metrics on this port (0 disables the endpoint)")
		verbose      = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	log := observability.NewLogger(*verbose)

	cfg := defaults
	if *configFile != "" {
		var err error
		cfg, err = bench.LoadFile(*configFile)
		if err != nil {
			log.Error("load config", "file", *configFile, "err", err)
			return 2
		}
	}
	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "target":
			cfg.Target = *target
		case "tls":
			cfg.TLS = *useTLS
		case "channels":
			cfg.Channels = *channels
		case "num-rpcs":
			cfg.NumRPCs = *numRPCs
		case "warmup":
			cfg.Warmup = *warmup
		case "payload-kb":
			cfg.PayloadKB = *payloadKB
		case "response-size":
			cfg.ResponseSize = *responseSize
		case "async":
			cfg.Async = *async
		case "async-timeout":
			cfg.AsyncTimeout = *asyncTimeout
		case "wait":
			cfg.Wait = *wait
		case "cookie":
			cfg.Cookie = *cookie
		case "corp":
			cfg.Corp = *corp
		case "connect-timeout":
			cfg.ConnectTimeout = *connTimeout
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, stopTracer, err := observability.NewTracer(*tracing, "echobench", *otlpEndpoint, log)
	if err != nil {
		log.Error("tracer init", "err", err)
		return 1
	}
	defer func() {
		if err := stopTracer(context.Background()); err != nil {
			log.Warn("tracer shutdown", "err", err)
		}
	}()

	meter, stopMeter, err := observability.NewMeter(*metricsPort, log)
	if err != nil {
		log.Error("meter init", "err", err)
		return 1
	}
	defer func() {
		if err := stopMeter(context.Background()); err != nil {
			log.Warn("meter shutdown", "err", err)
		}
	}()

	obs := bench.Observability{Logger: log, Tracer: tracer, MeterProvider: meter}

	pool, err := bench.NewPool(ctx, cfg, obs)
	if err != nil {
		log.Error("pool construction failed", "err", err)
		return 1
	}
	defer pool.Close(cfg.CloseTimeout)

	runner := bench.NewRunner(cfg, pool, &bench.Invoker{Tracer: tracer}, obs)
	result, err := runner.Run(ctx)
	if err != nil {
		log.Error("benchmark run failed", "err", err)
		return 1
	}
	fmt.Println(result.String())
	return 0
}
