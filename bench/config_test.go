package bench

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig invalid: %v", err)
	}

	cases := map[string]func(*Config){
		"empty target":       func(c *Config) { c.Target = " " },
		"zero channels":      func(c *Config) { c.Channels = 0 },
		"zero rpcs":          func(c *Config) { c.NumRPCs = 0 },
		"negative warmup":    func(c *Config) { c.Warmup = -1 },
		"negative payload":   func(c *Config) { c.PayloadKB = -1 },
		"negative response":  func(c *Config) { c.ResponseSize = -1 },
		"async no timeout":   func(c *Config) { c.Async = true; c.AsyncTimeout = 0 },
		"negative wait":      func(c *Config) { c.Wait = -time.Second },
		"no connect timeout": func(c *Config) { c.ConnectTimeout = 0 },
		"no close timeout":   func(c *Config) { c.CloseTimeout = 0 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate accepted the config", name)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	data := `target: example.com:443
tls: true
channels: 4
num_rpcs: 100
warmup: 0
async: true
async_timeout: 30s
wait: 250ms
cookie: abc
corp: true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Target != "example.com:443" || !cfg.TLS || cfg.Channels != 4 || cfg.NumRPCs != 100 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Warmup != 0 {
		t.Fatalf("warmup = %d, want explicit 0", cfg.Warmup)
	}
	if !cfg.Async || cfg.AsyncTimeout != 30*time.Second || cfg.Wait != 250*time.Millisecond {
		t.Fatalf("unexpected timing config: %+v", cfg)
	}
	if cfg.Cookie != "abc" || !cfg.Corp {
		t.Fatalf("unexpected metadata config: %+v", cfg)
	}
	// Fields absent from the file keep their defaults.
	if cfg.PayloadKB != DefaultConfig().PayloadKB {
		t.Fatalf("payload = %d, want default %d", cfg.PayloadKB, DefaultConfig().PayloadKB)
	}
	if cfg.ConnectTimeout != DefaultConfig().ConnectTimeout {
		t.Fatalf("connect timeout = %v, want default", cfg.ConnectTimeout)
	}
}

func TestLoadFileBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte("async_timeout: soon\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile accepted an unparseable duration")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadFile accepted a missing file")
	}
}
