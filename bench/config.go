package bench

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.yaml.in/yaml/v4"
)

// Config controls one benchmark run.
type Config struct {
	// Target is the host:port of the echo service.
	Target string

	// TLS enables transport security. Off by default; local echo servers
	// listen in plaintext.
	TLS bool

	// Channels is the number of independent gRPC channels to open.
	// Concurrent mode draws them round-robin; sequential mode only ever
	// uses the primary one.
	Channels int

	// NumRPCs is the number of measured calls.
	NumRPCs int

	// Warmup is the number of calls issued and discarded before
	// measurement. Zero skips the warm-up phase.
	Warmup int

	// PayloadKB sizes the request message in kilobytes.
	PayloadKB int

	// ResponseSize is the requested response size in bytes.
	ResponseSize int

	// Async selects concurrent mode: all calls dispatched at once,
	// completions awaited on a countdown latch.
	Async bool

	// AsyncTimeout bounds the concurrent-mode completion wait. When it
	// expires the run reports whatever samples were recorded.
	AsyncTimeout time.Duration

	// Wait is an optional fixed delay between sequential calls.
	Wait time.Duration

	// Cookie is injected as metadata on every primary-channel call.
	Cookie string

	// Corp flags the primary channel for corp routing.
	Corp bool

	// ConnectTimeout bounds per-channel establishment during pool creation.
	ConnectTimeout time.Duration

	// CloseTimeout bounds per-channel shutdown.
	CloseTimeout time.Duration
}

// DefaultConfig returns sensible defaults for a local run.
func DefaultConfig() Config {
	return Config{
		Target:         "localhost:50051",
		Channels:       1,
		NumRPCs:        5,
		Warmup:         5,
		PayloadKB:      1,
		ResponseSize:   10,
		AsyncTimeout:   5 * time.Second,
		ConnectTimeout: 10 * time.Second,
		CloseTimeout:   5 * time.Second,
	}
}

// Validate checks that the Config has usable values.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Target) == "" {
		return errors.New("Target cannot be empty")
	}
	if c.Channels < 1 {
		return fmt.Errorf("Channels must be >= 1, got %d", c.Channels)
	}
	if c.NumRPCs < 1 {
		return fmt.Errorf("NumRPCs must be >= 1, got %d", c.NumRPCs)
	}
	if c.Warmup < 0 {
		return fmt.Errorf("Warmup must be >= 0, got %d", c.Warmup)
	}
	if c.PayloadKB < 0 {
		return fmt.Errorf("PayloadKB must be >= 0, got %d", c.PayloadKB)
	}
	if c.ResponseSize < 0 {
		return fmt.Errorf("ResponseSize must be >= 0, got %d", c.ResponseSize)
	}
	if c.Async && c.AsyncTimeout <= 0 {
		return fmt.Errorf("AsyncTimeout must be > 0 in async mode, got %v", c.AsyncTimeout)
	}
	if c.Wait < 0 {
		return fmt.Errorf("Wait must be >= 0, got %v", c.Wait)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("ConnectTimeout must be > 0, got %v", c.ConnectTimeout)
	}
	if c.CloseTimeout <= 0 {
		return fmt.Errorf("CloseTimeout must be > 0, got %v", c.CloseTimeout)
	}
	return nil
}

// fileConfig is the YAML rendition of Config. Durations are strings in
// time.ParseDuration syntax ("500ms", "5s").
type fileConfig struct {
	Target         string  `yaml:"target"`
	TLS            *bool   `yaml:"tls"`
	Channels       *int    `yaml:"channels"`
	NumRPCs        *int    `yaml:"num_rpcs"`
	Warmup         *int    `yaml:"warmup"`
	PayloadKB      *int    `yaml:"payload_kb"`
	ResponseSize   *int    `yaml:"response_size"`
	Async          *bool   `yaml:"async"`
	AsyncTimeout   string  `yaml:"async_timeout"`
	Wait           string  `yaml:"wait"`
	Cookie         *string `yaml:"cookie"`
	Corp           *bool   `yaml:"corp"`
	ConnectTimeout string  `yaml:"connect_timeout"`
	CloseTimeout   string  `yaml:"close_timeout"`
}

// LoadFile reads a YAML config file and applies it over DefaultConfig.
// Fields absent from the file keep their defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if strings.TrimSpace(fc.Target) != "" {
		cfg.Target = strings.TrimSpace(fc.Target)
	}
	if fc.TLS != nil {
		cfg.TLS = *fc.TLS
	}
	if fc.Channels != nil {
		cfg.Channels = *fc.Channels
	}
	if fc.NumRPCs != nil {
		cfg.NumRPCs = *fc.NumRPCs
	}
	if fc.Warmup != nil {
		cfg.Warmup = *fc.Warmup
	}
	if fc.PayloadKB != nil {
		cfg.PayloadKB = *fc.PayloadKB
	}
	if fc.ResponseSize != nil {
		cfg.ResponseSize = *fc.ResponseSize
	}
	if fc.Async != nil {
		cfg.Async = *fc.Async
	}
	if fc.Cookie != nil {
		cfg.Cookie = *fc.Cookie
	}
	if fc.Corp != nil {
		cfg.Corp = *fc.Corp
	}
	if cfg.AsyncTimeout, err = overlayDuration(fc.AsyncTimeout, cfg.AsyncTimeout); err != nil {
		return cfg, fmt.Errorf("async_timeout: %w", err)
	}
	if cfg.Wait, err = overlayDuration(fc.Wait, cfg.Wait); err != nil {
		return cfg, fmt.Errorf("wait: %w", err)
	}
	if cfg.ConnectTimeout, err = overlayDuration(fc.ConnectTimeout, cfg.ConnectTimeout); err != nil {
		return cfg, fmt.Errorf("connect_timeout: %w", err)
	}
	if cfg.CloseTimeout, err = overlayDuration(fc.CloseTimeout, cfg.CloseTimeout); err != nil {
		return cfg, fmt.Errorf("close_timeout: %w", err)
	}
	return cfg, nil
}

func overlayDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(strings.TrimSpace(value))
}

// Observability carries the explicitly constructed logger, tracer, and meter
// provider handed to every component that needs one. There is no implicit
// global lookup: a nil Tracer disables spans, a nil MeterProvider disables
// histograms, and a nil Logger discards log output.
type Observability struct {
	Logger        *slog.Logger
	Tracer        trace.Tracer
	MeterProvider metric.MeterProvider
}

func (o Observability) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}
