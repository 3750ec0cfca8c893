// Command echoserver serves the echo service in plaintext for local runs
// and end-to-end testing of the benchmark client.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/ramiyer/grpc-echo-bench/echo"
)

func main() {
	port := flag.Int("port", 50051, "listen port")
	delay := flag.Duration("delay", 0, "fixed per-response delay, simulating processing time")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		log.Error("listen", "port", *port, "err", err)
		os.Exit(1)
	}

	s := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    10 * time.Second,
			Timeout: 5 * time.Second,
		}),
	)
	echo.Register(s, &echo.Server{Delay: *delay})

	log.Info("echo server listening", "addr", lis.Addr().String(), "delay", delay.String())
	if err := s.Serve(lis); err != nil {
		log.Error("serve", "err", err)
		os.Exit(1)
	}
}
