package bench

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"github.com/ramiyer/grpc-echo-bench/echo"
)

func testObs() Observability { return Observability{} }

// startEchoServer serves the echo service in-process and returns the dial
// options routing "passthrough:///bufnet" through it.
func startEchoServer(t *testing.T, srv *echo.Server, serverOpts ...grpc.ServerOption) []grpc.DialOption {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer(serverOpts...)
	echo.Register(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	return []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	}
}

func testConfig(channels int) Config {
	cfg := DefaultConfig()
	cfg.Target = "passthrough:///bufnet"
	cfg.Channels = channels
	cfg.ConnectTimeout = 5 * time.Second
	cfg.CloseTimeout = time.Second
	return cfg
}

func TestPoolRoundRobin(t *testing.T) {
	opts := startEchoServer(t, &echo.Server{})
	cfg := testConfig(3)

	pool, err := NewPool(context.Background(), cfg, testObs(), opts...)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close(cfg.CloseTimeout)

	if pool.Size() != 3 {
		t.Fatalf("Size = %d, want 3", pool.Size())
	}
	for round := 0; round < 3; round++ {
		for i := 0; i < 3; i++ {
			if got := pool.Next(); got != pool.conns[i] {
				t.Fatalf("round %d call %d: got wrong channel", round, i)
			}
		}
	}
}

func TestPoolNextConcurrent(t *testing.T) {
	opts := startEchoServer(t, &echo.Server{})
	cfg := testConfig(4)

	pool, err := NewPool(context.Background(), cfg, testObs(), opts...)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close(cfg.CloseTimeout)

	members := make(map[grpc.ClientConnInterface]bool, pool.Size())
	for _, cc := range pool.conns {
		members[cc] = true
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for g := 0; g < 50; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if !members[pool.Next()] {
					errs <- errors.New("Next returned a channel not in the pool")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
}

func TestPoolPrimaryInjectsHeaders(t *testing.T) {
	var mu sync.Mutex
	var got metadata.MD
	capture := grpc.UnaryInterceptor(func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		mu.Lock()
		got = md
		mu.Unlock()
		return handler(ctx, req)
	})
	opts := startEchoServer(t, &echo.Server{}, capture)

	cfg := testConfig(1)
	cfg.Cookie = "secret"
	cfg.Corp = true

	pool, err := NewPool(context.Background(), cfg, testObs(), opts...)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close(cfg.CloseTimeout)

	inv := &Invoker{}
	if _, err := inv.CallSync(context.Background(), pool.Primary(), echo.NewRequest(0, 1)); err != nil {
		t.Fatalf("CallSync: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if v := got.Get(cookieHeader); len(v) != 1 || v[0] != "secret" {
		t.Errorf("cookie metadata = %v, want [secret]", v)
	}
	if v := got.Get(routingHeader); len(v) != 1 || v[0] != "corp" {
		t.Errorf("routing metadata = %v, want [corp]", v)
	}
}

func TestPoolPlainChannelSkipsHeaders(t *testing.T) {
	var mu sync.Mutex
	var got metadata.MD
	capture := grpc.UnaryInterceptor(func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		mu.Lock()
		got = md
		mu.Unlock()
		return handler(ctx, req)
	})
	opts := startEchoServer(t, &echo.Server{}, capture)

	cfg := testConfig(1)
	cfg.Cookie = "secret"

	pool, err := NewPool(context.Background(), cfg, testObs(), opts...)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close(cfg.CloseTimeout)

	inv := &Invoker{}
	if _, err := inv.CallSync(context.Background(), pool.Next(), echo.NewRequest(0, 1)); err != nil {
		t.Fatalf("CallSync: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if v := got.Get(cookieHeader); len(v) != 0 {
		t.Errorf("cookie metadata = %v on round-robin channel, want none", v)
	}
}

func TestPoolUnreachableTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = "127.0.0.1:1"
	cfg.Channels = 2
	cfg.ConnectTimeout = 2 * time.Second
	cfg.CloseTimeout = time.Second

	_, err := NewPool(context.Background(), cfg, testObs())
	var ce *ConnError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConnError", err)
	}
	if ce.Index != 0 {
		t.Fatalf("failed channel index = %d, want 0", ce.Index)
	}
}

func TestPoolInvalidConfig(t *testing.T) {
	cfg := testConfig(0)
	if _, err := NewPool(context.Background(), cfg, testObs()); err == nil {
		t.Fatal("NewPool accepted zero channels")
	}
}
