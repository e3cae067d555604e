package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/kamranahmedse/podsup/internal/log"
	"github.com/kamranahmedse/podsup/internal/ui"
)

const (
	wsWriteTimeout = 5 * time.Second
	busSendTimeout = time.Second
)

// handleWS attaches a UI client to the bus. The first client marks the UI
// ready and the last one to leave marks it gone.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Warn("accepting websocket: %v", err)
		return
	}
	id := uuid.NewString()
	defer conn.CloseNow()

	msgs, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.attach(id)
	defer s.detach(id)

	go func() {
		defer cancel()
		for msg := range msgs {
			wctx, wcancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(wctx, conn, msg)
			wcancel()
			if err != nil {
				log.Debug("ws %s: write: %v", id, err)
				return
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				log.Debug("ws %s: read: %v", id, err)
			}
			return
		}
		setup, err := ui.ParseSetupPro(data)
		if err != nil {
			log.Warn("ws %s: dropping message: %v", id, err)
			continue
		}
		s.send(ui.SetupProMessage(setup))
	}
}

func (s *Server) attach(id string) {
	s.mu.Lock()
	s.clients++
	first := s.clients == 1
	s.mu.Unlock()

	log.Info("ui client %s connected", id)
	if first {
		s.send(ui.Ready())
	}
}

func (s *Server) detach(id string) {
	s.mu.Lock()
	s.clients--
	last := s.clients == 0
	s.mu.Unlock()

	log.Info("ui client %s disconnected", id)
	if last {
		s.send(ui.ExitRequested())
	}
}

func (s *Server) send(msg ui.Message) {
	if s.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), busSendTimeout)
	defer cancel()
	if err := s.bus.Send(ctx, msg); err != nil {
		log.Warn("%v", err)
	}
}
