package ui

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/kamranahmedse/podsup/internal/resource"
)

func TestMessageMarshalFlattensPayload(t *testing.T) {
	data, err := json.Marshal(LoginRequired("pro.example.com", "pro-a"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["type"] != "loginRequired" || got["host"] != "pro.example.com" || got["provider"] != "pro-a" {
		t.Fatalf("unexpected message %s", data)
	}
}

func TestMessageMarshalWithoutPayload(t *testing.T) {
	data, err := json.Marshal(Ready())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"type":"ready"}` {
		t.Fatalf("unexpected message %s", data)
	}
}

func TestMenuChangedCarriesChanges(t *testing.T) {
	msg := MenuChanged([]resource.Change{{Kind: resource.KindWorkspace, Op: resource.OpAdded, ID: "ws-1"}})
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"changes":[{"kind":"workspace","op":"added","id":"ws-1"}],"type":"menuChanged"}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestParseSetupPro(t *testing.T) {
	options := url.QueryEscape(`{"project":"default","team":"core"}`)

	tests := []struct {
		name    string
		in      string
		want    SetupPro
		wantErr bool
	}{
		{name: "camel access key", in: `{"host":"pro.example.com","accessKey":"k1"}`, want: SetupPro{Host: "pro.example.com", AccessKey: "k1"}},
		{name: "snake access key", in: `{"host":"pro.example.com","access_key":"k2"}`, want: SetupPro{Host: "pro.example.com", AccessKey: "k2"}},
		{name: "host only", in: `{"host":"pro.example.com"}`, want: SetupPro{Host: "pro.example.com"}},
		{name: "missing host", in: `{"accessKey":"k1"}`, wantErr: true},
		{name: "not json", in: `hello`, wantErr: true},
		{name: "bad options", in: `{"host":"h","options":"%7Bnope"}`, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseSetupPro([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err == nil && (got.Host != tt.want.Host || got.AccessKey != tt.want.AccessKey) {
			t.Fatalf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}

	got, err := ParseSetupPro([]byte(`{"host":"h","options":"` + options + `"}`))
	if err != nil {
		t.Fatalf("ParseSetupPro with options: %v", err)
	}
	if got.Options["project"] != "default" || got.Options["team"] != "core" {
		t.Fatalf("unexpected options %v", got.Options)
	}
}
