//go:build !windows

package transport

import (
	"context"
	"net"
	"path/filepath"
)

func dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// SocketAddr returns the daemon socket for a provider inside a DevPod home.
func SocketAddr(home string, devpodContext string, provider string) string {
	if devpodContext == "" {
		devpodContext = "default"
	}
	return filepath.Join(home, "contexts", devpodContext, "providers", provider, "daemon", "devpod.sock")
}
