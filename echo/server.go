package echo

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server implements the echo service for local runs and tests.
type Server struct {
	// Delay is added before every response, simulating processing time.
	Delay time.Duration
}

// EchoWithResponseSize returns a response of exactly req.ResponseSize bytes.
func (s *Server) EchoWithResponseSize(ctx context.Context, req *Request) (*Response, error) {
	if req.ResponseSize < 0 {
		return nil, status.Error(codes.InvalidArgument, "response_size must be >= 0")
	}
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, status.FromContextError(ctx.Err()).Err()
		}
	}
	return &Response{Message: strings.Repeat("x", req.ResponseSize)}, nil
}

// Register binds the echo service onto a gRPC server.
func Register(r grpc.ServiceRegistrar, srv *Server) {
	r.RegisterService(&serviceDesc, srv)
}

type echoService interface {
	EchoWithResponseSize(context.Context, *Request) (*Response, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*echoService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "EchoWithResponseSize",
			Handler:    echoWithResponseSizeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "echo/echo.go",
}

func echoWithResponseSizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(echoService).EchoWithResponseSize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodEchoWithResponseSize}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(echoService).EchoWithResponseSize(ctx, req.(*Request))
	}
	return interceptor(ctx, in, info, handler)
}
