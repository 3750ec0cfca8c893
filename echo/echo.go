// Package echo defines the wire types and gRPC bindings for the echo
// benchmark service.
//
// The service carries a single unary method, EchoWithResponseSize: the
// client sends a payload of a configured size and asks for a response of
// another size. Messages travel as JSON over plain gRPC framing; the codec
// is registered with the gRPC encoding registry under the "json"
// content-subtype, so no generated protobuf code is involved.
package echo

import "strings"

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "echo.Echo"

// MethodEchoWithResponseSize is the full method path of the unary echo call.
const MethodEchoWithResponseSize = "/echo.Echo/EchoWithResponseSize"

// Request asks the service to echo back a message of ResponseSize bytes.
// A Request is immutable once built; benchmark runs construct one and reuse
// it for every call.
type Request struct {
	Message      string `json:"message"`
	ResponseSize int    `json:"response_size"`
}

// Response carries the echoed message.
type Response struct {
	Message string `json:"message"`
}

// NewRequest builds the fixed request for a benchmark run: payloadKB
// kilobytes of filler plus the desired response size in bytes.
func NewRequest(payloadKB, responseSize int) *Request {
	return &Request{
		Message:      strings.Repeat("x", payloadKB*1024),
		ResponseSize: responseSize,
	}
}
