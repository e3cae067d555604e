package app

import "encoding/json"

type MessageType string

const (
	MsgShutdown MessageType = "shutdown"
	MsgStatus   MessageType = "status"
)

type Request struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type Response struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type StatusData struct {
	Running    bool           `json:"running"`
	PID        int            `json:"pid"`
	ListenAddr string         `json:"listenAddr"`
	UIReady    bool           `json:"uiReady"`
	AllReady   bool           `json:"allReady"`
	Workspaces int            `json:"workspaces"`
	Instances  []InstanceInfo `json:"instances"`
}

// InstanceInfo is one pro instance as seen by its supervisor. State is empty
// for instances without the daemon capability.
type InstanceInfo struct {
	Host          string `json:"host"`
	Provider      string `json:"provider"`
	Context       string `json:"context,omitempty"`
	State         string `json:"state,omitempty"`
	Online        bool   `json:"online"`
	LoginRequired bool   `json:"loginRequired"`
	RetryCount    int    `json:"retryCount"`
	PID           int    `json:"pid,omitempty"`
}
