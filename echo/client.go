package echo

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a thin stub over any gRPC channel, decorated or not.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a stub issuing echo calls over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// EchoWithResponseSize performs one unary echo call and blocks until a
// terminal response or error.
func (c *Client) EchoWithResponseSize(ctx context.Context, req *Request, opts ...grpc.CallOption) (*Response, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(Response)
	if err := c.cc.Invoke(ctx, MethodEchoWithResponseSize, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
