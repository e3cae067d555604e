package transport

import (
	"io"
	"net"
	"time"
)

type bridgeAddr struct{}

func (bridgeAddr) Network() string { return "local" }
func (bridgeAddr) String() string  { return "local" }

type bridge struct {
	rw io.ReadWriteCloser
}

// Bridge presents any bidirectional stream as a net.Conn. Reads, writes
// and Close go straight to rw. Address and deadline methods delegate when
// rw implements them and are no-ops otherwise.
func Bridge(rw io.ReadWriteCloser) net.Conn {
	return &bridge{rw: rw}
}

func (b *bridge) Read(p []byte) (int, error)  { return b.rw.Read(p) }
func (b *bridge) Write(p []byte) (int, error) { return b.rw.Write(p) }
func (b *bridge) Close() error                { return b.rw.Close() }

func (b *bridge) LocalAddr() net.Addr {
	if a, ok := b.rw.(interface{ LocalAddr() net.Addr }); ok {
		return a.LocalAddr()
	}
	return bridgeAddr{}
}

func (b *bridge) RemoteAddr() net.Addr {
	if a, ok := b.rw.(interface{ RemoteAddr() net.Addr }); ok {
		return a.RemoteAddr()
	}
	return bridgeAddr{}
}

func (b *bridge) SetDeadline(t time.Time) error {
	if d, ok := b.rw.(interface{ SetDeadline(time.Time) error }); ok {
		return d.SetDeadline(t)
	}
	return nil
}

func (b *bridge) SetReadDeadline(t time.Time) error {
	if d, ok := b.rw.(interface{ SetReadDeadline(time.Time) error }); ok {
		return d.SetReadDeadline(t)
	}
	return nil
}

func (b *bridge) SetWriteDeadline(t time.Time) error {
	if d, ok := b.rw.(interface{ SetWriteDeadline(time.Time) error }); ok {
		return d.SetWriteDeadline(t)
	}
	return nil
}
