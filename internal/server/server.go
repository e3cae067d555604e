// Package server is the loopback HTTP and WebSocket control surface the UI
// talks to.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/kamranahmedse/podsup/internal/log"
	"github.com/kamranahmedse/podsup/internal/osutil"
	"github.com/kamranahmedse/podsup/internal/releases"
	"github.com/kamranahmedse/podsup/internal/resource"
	"github.com/kamranahmedse/podsup/internal/ui"
)

const (
	DefaultAddr = "127.0.0.1:25842"

	bindAttempts = 5
)

// ReleaseSource provides the cached release list.
type ReleaseSource interface {
	Releases() []releases.Release
}

// Bus is the part of the UI bus the server uses.
type Bus interface {
	ui.Sender
	Subscribe() (<-chan ui.Message, func())
}

type Options struct {
	Addr     string
	State    *resource.State
	Bus      Bus
	Releases ReleaseSource
	// Interrupt delivers the cooperative stop signal to a pid; defaults to
	// osutil.Interrupt.
	Interrupt func(pid int) error
}

type Server struct {
	addr      string
	state     *resource.State
	bus       Bus
	releases  ReleaseSource
	interrupt func(pid int) error

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	clients    int
}

func New(opts Options) *Server {
	s := &Server{
		addr:      opts.Addr,
		state:     opts.State,
		bus:       opts.Bus,
		releases:  opts.Releases,
		interrupt: opts.Interrupt,
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.interrupt == nil {
		s.interrupt = osutil.Interrupt
	}
	return s
}

// Addr is the bound address once Start is listening, else the configured
// one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) listen() (net.Listener, error) {
	var ln net.Listener
	op := func() error {
		var err error
		ln, err = net.Listen("tcp", s.addr)
		if err != nil {
			log.Debug("binding %s: %v", s.addr, err)
		}
		return err
	}
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), bindAttempts-1)
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return ln, nil
}

// Start binds and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	ln, err := s.listen()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = srv
	s.mu.Unlock()

	log.Info("control server listening on %s", ln.Addr())

	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
