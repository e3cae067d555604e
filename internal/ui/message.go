// Package ui carries messages between the supervisor and the embedded UI.
package ui

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/kamranahmedse/podsup/internal/resource"
)

type Type string

const (
	TypeReady         Type = "ready"
	TypeExitRequested Type = "exitRequested"
	TypeShowToast     Type = "showToast"
	TypeSetupPro      Type = "setupPro"
	TypeLoginRequired Type = "loginRequired"
	TypeMenuChanged   Type = "menuChanged"
	TypeTrayReady     Type = "trayReady"
)

// Message is serialised as its payload's fields plus a "type" tag.
type Message struct {
	Type    Type
	Payload any
}

func (m Message) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if m.Payload != nil {
		raw, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("payload of %s is not an object: %w", m.Type, err)
		}
	}
	tag, err := json.Marshal(m.Type)
	if err != nil {
		return nil, err
	}
	fields["type"] = tag
	return json.Marshal(fields)
}

type ToastStatus string

const (
	ToastInfo    ToastStatus = "info"
	ToastSuccess ToastStatus = "success"
	ToastWarning ToastStatus = "warning"
	ToastError   ToastStatus = "error"
)

type Toast struct {
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Status  ToastStatus `json:"status"`
}

type SetupPro struct {
	Host      string            `json:"host"`
	AccessKey string            `json:"accessKey,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
}

type LoginRequiredPayload struct {
	Host     string `json:"host"`
	Provider string `json:"provider"`
}

type MenuChangedPayload struct {
	Changes []resource.Change `json:"changes"`
}

type TrayReadyPayload struct {
	Ready bool `json:"ready"`
}

func Ready() Message         { return Message{Type: TypeReady} }
func ExitRequested() Message { return Message{Type: TypeExitRequested} }

func ShowToast(title, message string, status ToastStatus) Message {
	return Message{Type: TypeShowToast, Payload: Toast{Title: title, Message: message, Status: status}}
}

func SetupProMessage(p SetupPro) Message {
	return Message{Type: TypeSetupPro, Payload: p}
}

func LoginRequired(host, provider string) Message {
	return Message{Type: TypeLoginRequired, Payload: LoginRequiredPayload{Host: host, Provider: provider}}
}

func MenuChanged(changes []resource.Change) Message {
	return Message{Type: TypeMenuChanged, Payload: MenuChangedPayload{Changes: changes}}
}

func TrayReady(ready bool) Message {
	return Message{Type: TypeTrayReady, Payload: TrayReadyPayload{Ready: ready}}
}

// ParseSetupPro decodes a setup request. host is required, the access key
// may be spelled accessKey or access_key, and options is a URL-encoded
// JSON object of strings.
func ParseSetupPro(data []byte) (SetupPro, error) {
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		return SetupPro{}, fmt.Errorf("parsing setup request: %w", err)
	}

	host := fields["host"]
	if host == "" {
		return SetupPro{}, fmt.Errorf("setup request: host is required")
	}

	p := SetupPro{Host: host, AccessKey: fields["accessKey"]}
	if p.AccessKey == "" {
		p.AccessKey = fields["access_key"]
	}

	if raw := fields["options"]; raw != "" {
		decoded, err := url.QueryUnescape(raw)
		if err != nil {
			return SetupPro{}, fmt.Errorf("setup request: decoding options: %w", err)
		}
		if err := json.Unmarshal([]byte(decoded), &p.Options); err != nil {
			return SetupPro{}, fmt.Errorf("setup request: parsing options: %w", err)
		}
	}
	return p, nil
}
