// Package daemon speaks HTTP/1.1 to a local pro daemon over its socket or
// named pipe.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kamranahmedse/podsup/internal/log"
	"github.com/kamranahmedse/podsup/internal/transport"
)

const (
	// VirtualHost is the URL authority used on the wire. It never resolves;
	// every connection goes to the client's socket.
	VirtualHost = "localclient.devpod"
	// HostHeader is the Host header daemons expect.
	HostHeader = "sh.loft.devpod.desktop"

	statusPath = "/status"
)

// StatusError is returned when the daemon answers with a non-200 status.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("daemon returned HTTP %d for %s", e.StatusCode, e.Path)
	}
	return fmt.Sprintf("daemon returned HTTP %d for %s: %s", e.StatusCode, e.Path, e.Body)
}

// Client opens a fresh connection per request; nothing is pooled.
type Client struct {
	addr      string
	connect   transport.DialFunc
	transport *http.Transport
}

func NewClient(addr string) *Client {
	return newClient(addr, transport.Connect)
}

func newClient(addr string, connect transport.DialFunc) *Client {
	c := &Client{addr: addr, connect: connect}
	c.transport = &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			conn, err := c.connect(ctx, c.addr)
			if err != nil {
				return nil, err
			}
			return &loggedConn{Conn: transport.Bridge(conn), addr: c.addr}, nil
		},
		DisableKeepAlives:  true,
		DisableCompression: true,
	}
	return c
}

func (c *Client) Addr() string {
	return c.addr
}

// Status fetches GET /status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+VirtualHost+statusPath, nil)
	if err != nil {
		return Status{}, err
	}
	req.Host = HostHeader

	res, err := c.transport.RoundTrip(req)
	if err != nil {
		return Status{}, fmt.Errorf("requesting daemon status: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return Status{}, &StatusError{
			Path:       statusPath,
			StatusCode: res.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var st Status
	if err := json.NewDecoder(res.Body).Decode(&st); err != nil {
		return Status{}, fmt.Errorf("decoding daemon status: %w", err)
	}
	return st, nil
}

// Proxy forwards req to the daemon and returns its response as is. Only
// the scheme, authority and Host header are rewritten; redirects are not
// followed.
func (c *Client) Proxy(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = "http"
	out.URL.Host = VirtualHost
	out.Host = HostHeader
	out.RequestURI = ""

	res, err := c.transport.RoundTrip(out)
	if err != nil {
		return nil, fmt.Errorf("proxying %s %s: %w", req.Method, req.URL.Path, err)
	}
	return res, nil
}

// RoundTripper exposes Proxy for use with httputil.ReverseProxy.
func (c *Client) RoundTripper() http.RoundTripper {
	return RoundTripperFunc(c.Proxy)
}

type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// loggedConn reports teardown failures that happen after the response has
// already been handed back.
type loggedConn struct {
	net.Conn
	addr string
}

func (c *loggedConn) Close() error {
	err := c.Conn.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		log.Debug("closing daemon connection %s: %v", c.addr, err)
	}
	return err
}
