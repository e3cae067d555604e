package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kamranahmedse/podsup/internal/daemon"
	"github.com/kamranahmedse/podsup/internal/httperr"
)

func TestClientDaemonStatusAndRestart(t *testing.T) {
	ts := newTestServer(t)
	hs := httptest.NewServer(ts.srv.Handler())
	defer hs.Close()

	c := NewClient(strings.TrimPrefix(hs.URL, "http://"))
	ctx := context.Background()

	status, err := c.DaemonStatus(ctx, "pro.example.com")
	if err != nil {
		t.Fatalf("DaemonStatus: %v", err)
	}
	if status.State != daemon.StateRunning {
		t.Fatalf("unexpected status %+v", status)
	}

	if err := c.RestartDaemon(ctx, "pro.example.com"); err != nil {
		t.Fatalf("RestartDaemon: %v", err)
	}
}

func TestClientSurfacesServerErrors(t *testing.T) {
	ts := newTestServer(t)
	hs := httptest.NewServer(ts.srv.Handler())
	defer hs.Close()

	c := NewClient(strings.TrimPrefix(hs.URL, "http://"))
	_, err := c.DaemonStatus(context.Background(), "missing.example.com")

	var resp *httperr.ResponseError
	if !errors.As(err, &resp) {
		t.Fatalf("expected ErrorResponse, got %T: %v", err, err)
	}
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(resp.Message, "missing.example.com") {
		t.Fatalf("unexpected error %+v", resp)
	}
}

func TestClientNotRunning(t *testing.T) {
	hs := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(hs.URL, "http://")
	hs.Close()

	if err := NewClient(addr).RestartDaemon(context.Background(), "pro.example.com"); err == nil {
		t.Fatal("expected error when nothing is listening")
	}
}
