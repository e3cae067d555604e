// Package transport connects to a local daemon endpoint (a Unix domain
// socket or a Windows named pipe) and adapts the connection for net/http.
package transport

import (
	"context"
	"fmt"
	"net"
)

// HandshakeByte is written once, right after connecting and before any
// HTTP bytes.
const HandshakeByte byte = 0x01

// TransportError reports a failure to reach or greet a daemon endpoint.
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DialFunc opens a raw connection to a local endpoint.
type DialFunc func(ctx context.Context, addr string) (net.Conn, error)

// Dial opens a raw connection using the platform primitive.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	return dial(ctx, addr)
}

// Connect dials addr and performs the handshake. It does not retry.
func Connect(ctx context.Context, addr string) (net.Conn, error) {
	return ConnectWith(ctx, Dial, addr)
}

func ConnectWith(ctx context.Context, dialFn DialFunc, addr string) (net.Conn, error) {
	conn, err := dialFn(ctx, addr)
	if err != nil {
		return nil, &TransportError{Op: "dial", Addr: addr, Err: err}
	}
	if _, err := conn.Write([]byte{HandshakeByte}); err != nil {
		_ = conn.Close()
		return nil, &TransportError{Op: "handshake", Addr: addr, Err: err}
	}
	return conn, nil
}
