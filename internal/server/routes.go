package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/kamranahmedse/podsup/internal/daemon"
	"github.com/kamranahmedse/podsup/internal/log"
	"github.com/kamranahmedse/podsup/internal/releases"
	"github.com/kamranahmedse/podsup/internal/resource"
	"github.com/kamranahmedse/podsup/internal/supervisor"
	"github.com/kamranahmedse/podsup/internal/ui"
)

// SignalRequest is the body of POST /child-process/signal.
type SignalRequest struct {
	ProcessID int `json:"processId"`
	Signal    int `json:"signal"`
}

const sigint = 2

func (s *Server) handleReleases(w http.ResponseWriter, _ *http.Request) {
	list := []releases.Release{}
	if s.releases != nil {
		list = s.releases.Releases()
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var req SignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.ProcessID <= 0 {
		writeError(w, http.StatusBadRequest, "processId must be positive")
		return
	}
	if req.Signal != sigint {
		log.Info("signal %d requested for pid %d, sending SIGINT", req.Signal, req.ProcessID)
	}
	if err := s.interrupt(req.ProcessID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("signalling process %d: %v", req.ProcessID, err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// client looks up the daemon client for a pro instance under the read lock.
// The lock is released before any I/O happens.
func (s *Server) client(proID string) supervisor.Client {
	var c supervisor.Client
	s.state.Pro.Read(func(p *resource.ProState) {
		inst := p.Find(proID)
		if inst == nil || inst.Daemon == nil {
			return
		}
		c = inst.Daemon.Client()
	})
	return c
}

func (s *Server) handleDaemonStatus(w http.ResponseWriter, r *http.Request) {
	proID := r.PathValue("proId")
	c := s.client(proID)
	if c == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no daemon for %s", proID))
		return
	}
	status, err := c.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleDaemonRestart(w http.ResponseWriter, r *http.Request) {
	proID := r.PathValue("proId")
	found := false
	s.state.Pro.Write(func(p *resource.ProState) {
		inst := p.Find(proID)
		if inst == nil || inst.Daemon == nil {
			return
		}
		found = true
		inst.Daemon.TryStop()
	})
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no daemon for %s", proID))
		return
	}
	log.Info("[%s] daemon restart requested", proID)
	s.send(ui.ShowToast("Restarting daemon", proID, ui.ToastInfo))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDaemonProxy(w http.ResponseWriter, r *http.Request) {
	proID := r.PathValue("proId")
	c := s.client(proID)
	if c == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no daemon for %s", proID))
		return
	}

	rest, rawRest := proxiedPath(r)
	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Scheme = "http"
			pr.Out.URL.Host = daemon.VirtualHost
			pr.Out.URL.Path = rest
			pr.Out.URL.RawPath = rawRest
			pr.Out.URL.RawQuery = pr.In.URL.RawQuery
			// The daemon sees the caller's headers as sent, forwarding
			// headers included.
			pr.Out.Header = pr.In.Header.Clone()
		},
		Transport: daemon.RoundTripperFunc(c.Proxy),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if r.Context().Err() == context.Canceled {
				return
			}
			log.Error("[%s] proxying %s %s: %v", proID, r.Method, rest, err)
			writeError(w, http.StatusBadGateway, err.Error())
		},
	}
	rp.ServeHTTP(w, r)
}

// proxiedPath returns the request path below /daemon-proxy/{proId}/, both
// decoded and in its original escaped form.
func proxiedPath(r *http.Request) (string, string) {
	decoded := "/" + r.PathValue("path")

	escaped := strings.TrimPrefix(r.URL.EscapedPath(), "/daemon-proxy/")
	_, after, ok := strings.Cut(escaped, "/")
	if !ok {
		return decoded, ""
	}
	raw := "/" + after
	if p, err := url.PathUnescape(raw); err != nil || p != decoded {
		return decoded, ""
	}
	return decoded, raw
}
