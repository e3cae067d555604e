package app

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/kamranahmedse/podsup/internal/config"
	"github.com/kamranahmedse/podsup/internal/log"
)

const ipcTimeout = 5 * time.Second

// IPCServer answers admin requests from the CLI on a local socket.
type IPCServer struct {
	path     string
	listener net.Listener
	handler  func(Request) Response
}

func NewIPCServer(path string, handler func(Request) Response) (*IPCServer, error) {
	_ = os.Remove(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on socket: %w", err)
	}

	return &IPCServer{path: path, listener: ln, handler: handler}, nil
}

func (s *IPCServer) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *IPCServer) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ipcTimeout))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		_ = json.NewEncoder(conn).Encode(Response{OK: false, Error: err.Error()})
		return
	}

	if err := json.NewEncoder(conn).Encode(s.handler(req)); err != nil {
		log.Debug("writing ipc response: %v", err)
	}
}

func (s *IPCServer) Close() {
	_ = s.listener.Close()
	_ = os.Remove(s.path)
}

func SendIPC(req Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", config.SocketPath(), ipcTimeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to podsup: %w (is podsup running?)", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ipcTimeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &resp, nil
}

// Status asks a running server for its state.
func Status() (*StatusData, error) {
	resp, err := SendIPC(Request{Type: MsgStatus})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("status: %s", resp.Error)
	}
	var data StatusData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}
	return &data, nil
}
