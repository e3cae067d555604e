//go:build windows

package transport

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
)

func dial(ctx context.Context, addr string) (net.Conn, error) {
	conn, err := winio.DialPipeContext(ctx, addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// SocketAddr returns the named pipe for a provider. Pipes are global, so
// home and context do not take part.
func SocketAddr(_ string, _ string, provider string) string {
	return `\\.\pipe\devpod.` + provider
}
