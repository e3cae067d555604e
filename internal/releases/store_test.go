package releases

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "releases.json"))
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := s.Releases()
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", got)
	}
	data, _ := json.Marshal(got)
	if string(data) != "[]" {
		t.Fatalf("expected [] on the wire, got %s", data)
	}
}

func TestLoadParsesGitHubShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "releases.json")
	raw := `[{"url":"https://api.github.com/repos/loft-sh/devpod/releases/1","html_url":"https://github.com/loft-sh/devpod/releases/tag/v0.5.0","assets_url":"a","upload_url":"u","tarball_url":null,"zipball_url":null,"id":1,"node_id":"RE_1","tag_name":"v0.5.0","target_commitish":"main","name":"v0.5.0","body":null,"draft":false,"prerelease":true,"created_at":"2024-05-01T10:00:00Z","published_at":"2024-05-01T11:00:00Z","author":{"login":"bot","id":7},"assets":[{"url":"x","browser_download_url":"y","id":2,"node_id":"RA_2","name":"devpod-linux-amd64","label":null,"state":"uploaded","content_type":"application/octet-stream","size":10,"download_count":3,"created_at":"2024-05-01T10:00:00Z","updated_at":"2024-05-01T10:00:00Z"}]}]`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := s.Releases()
	if len(got) != 1 || got[0].TagName != "v0.5.0" || !got[0].Prerelease || len(got[0].Assets) != 1 {
		t.Fatalf("unexpected releases %+v", got)
	}
	if got[0].Author.Login != "bot" || got[0].Assets[0].Name != "devpod-linux-amd64" {
		t.Fatalf("unexpected nested fields %+v", got[0])
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "releases.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := NewStore(path).Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "releases.json")
	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	data, err := json.Marshal([]Release{{ID: 9, TagName: "v1.0.0"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		writeAtomic(t, path, data)
		if got := s.Releases(); len(got) == 1 && got[0].TagName == "v1.0.0" {
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Watch: %v", err)
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("store was not reloaded after the cache file changed")
}

func writeAtomic(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
}
