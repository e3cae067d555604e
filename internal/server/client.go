package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/kamranahmedse/podsup/internal/daemon"
	"github.com/kamranahmedse/podsup/internal/httperr"
)

// Client talks to a running control server from the CLI.
type Client struct {
	base string
	http *http.Client
}

func NewClient(addr string) *Client {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Client{
		base: "http://" + addr,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return httperr.Wrap("contacting podsup", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return httperr.FromResponse(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) DaemonStatus(ctx context.Context, host string) (daemon.Status, error) {
	var status daemon.Status
	err := c.get(ctx, "/daemon/"+url.PathEscape(host)+"/status", &status)
	return status, err
}

func (c *Client) RestartDaemon(ctx context.Context, host string) error {
	return c.get(ctx, "/daemon/"+url.PathEscape(host)+"/restart", nil)
}
