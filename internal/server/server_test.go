package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kamranahmedse/podsup/internal/daemon"
	"github.com/kamranahmedse/podsup/internal/log"
	"github.com/kamranahmedse/podsup/internal/releases"
	"github.com/kamranahmedse/podsup/internal/resource"
	"github.com/kamranahmedse/podsup/internal/supervisor"
	"github.com/kamranahmedse/podsup/internal/ui"
)

type fakeDaemonClient struct {
	mu        sync.Mutex
	status    daemon.Status
	statusErr error
	proxyErr  error
	proxied   []*http.Request
}

func (c *fakeDaemonClient) Status(context.Context) (daemon.Status, error) {
	return c.status, c.statusErr
}

func (c *fakeDaemonClient) Proxy(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.proxied = append(c.proxied, req)
	c.mu.Unlock()
	if c.proxyErr != nil {
		return nil, c.proxyErr
	}
	return &http.Response{
		StatusCode: http.StatusCreated,
		Header:     http.Header{"X-Daemon": []string{"yes"}},
		Body:       io.NopCloser(strings.NewReader("from daemon")),
		Request:    req,
	}, nil
}

type fakeProcess struct {
	stdout      chan string
	interrupted int
}

func (p *fakeProcess) PID() int              { return 4242 }
func (p *fakeProcess) Stdout() <-chan string { return p.stdout }
func (p *fakeProcess) DrainStderr() []string { return nil }
func (p *fakeProcess) Kill() error           { return nil }
func (p *fakeProcess) Done() <-chan struct{} { return exited }

var exited = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
func (p *fakeProcess) Interrupt() error {
	p.interrupted++
	return nil
}

type fakeLauncher struct{}

func (fakeLauncher) DaemonCommand(host string, _ bool) (string, []string, []string) {
	return "devpod", []string{"pro", "daemon", "start", "--host=" + host}, nil
}

type fakeBus struct {
	mu   sync.Mutex
	sent []ui.Message
}

func (b *fakeBus) Send(_ context.Context, msg ui.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, msg)
	return nil
}

func (b *fakeBus) Subscribe() (<-chan ui.Message, func()) {
	ch := make(chan ui.Message)
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}

type staticReleases []releases.Release

func (r staticReleases) Releases() []releases.Release { return r }

type testServer struct {
	srv    *Server
	state  *resource.State
	client *fakeDaemonClient
	proc   *fakeProcess
	bus    *fakeBus
	sup    *supervisor.Supervisor
	pids   []int
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		state:  resource.NewState(),
		client: &fakeDaemonClient{status: daemon.Status{State: daemon.StateRunning, Online: true}},
		proc:   &fakeProcess{stdout: make(chan string, 1)},
		bus:    &fakeBus{},
	}
	ts.proc.stdout <- `{"state":"running"}`
	ts.sup = supervisor.New(supervisor.Options{
		Client:   ts.client,
		Launcher: fakeLauncher{},
		Provider: "pro-a",
		Starter: func(context.Context, string, []string, []string) (supervisor.Process, error) {
			return ts.proc, nil
		},
		Terminate: func(int) error { return nil },
	})
	ts.state.Pro.Write(func(p *resource.ProState) {
		p.Instances = []*resource.ProInstance{
			{Host: "pro.example.com", Provider: "pro-a", Capabilities: []string{resource.CapabilityDaemon}, Daemon: ts.sup},
			{Host: "plain.example.com"},
		}
	})
	ts.srv = New(Options{
		State:    ts.state,
		Bus:      ts.bus,
		Releases: staticReleases{{TagName: "v0.6.0"}},
		Interrupt: func(pid int) error {
			ts.pids = append(ts.pids, pid)
			if pid == 13 {
				return errors.New("no such process")
			}
			return nil
		},
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestPreflightReturnsNoContentWithCORS(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/daemon/pro.example.com/status", nil)
	req.Header.Set("Origin", "http://localhost:1420")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()

	ts.srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "content-type" {
		t.Fatalf("expected requested headers echoed, got %q", got)
	}
}

func TestCORSHeadersOnRegularResponses(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/releases", "")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func TestReleasesReturnsCachedList(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/releases", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []releases.Release
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(got) != 1 || got[0].TagName != "v0.6.0" {
		t.Fatalf("unexpected releases %+v", got)
	}
}

func TestReleasesWithoutSourceIsEmptyArray(t *testing.T) {
	srv := New(Options{State: resource.NewState(), Bus: &fakeBus{}})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/releases", nil))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", rec.Body.String())
	}
}

func TestSignalInterruptsProcess(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/child-process/signal", `{"processId":321,"signal":15}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(ts.pids) != 1 || ts.pids[0] != 321 {
		t.Fatalf("expected interrupt of pid 321, got %v", ts.pids)
	}
}

func TestSignalRejectsBadBodies(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{`not json`, `{"processId":0,"signal":2}`} {
		rec := ts.do(t, http.MethodPost, "/child-process/signal", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
	if len(ts.pids) != 0 {
		t.Fatalf("expected no signals sent, got %v", ts.pids)
	}
}

func TestSignalFailureIsServerError(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/child-process/signal", `{"processId":13,"signal":2}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestDaemonStatus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/daemon/pro.example.com/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status daemon.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if status.State != daemon.StateRunning || !status.Online {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestDaemonStatusUnknownOrNoDaemon(t *testing.T) {
	ts := newTestServer(t)
	for _, host := range []string{"missing.example.com", "plain.example.com"} {
		rec := ts.do(t, http.MethodGet, "/daemon/"+host+"/status", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", host, rec.Code)
		}
	}
}

func TestDaemonStatusUpstreamErrorIsBadGateway(t *testing.T) {
	ts := newTestServer(t)
	ts.client.statusErr = errors.New("connection refused")
	rec := ts.do(t, http.MethodGet, "/daemon/pro.example.com/status", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("expected upstream error in body, got %q", rec.Body.String())
	}
}

func TestDaemonRestartStopsChild(t *testing.T) {
	ts := newTestServer(t)
	ts.state.Pro.Write(func(*resource.ProState) {
		ts.sup.Tick(context.Background(), "pro.example.com")
	})
	if !ts.sup.HasChild() {
		t.Fatal("expected tick to spawn a child")
	}

	rec := ts.do(t, http.MethodGet, "/daemon/pro.example.com/restart", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ts.sup.HasChild() {
		t.Fatal("expected restart to drop the child")
	}
	if ts.proc.interrupted != 1 {
		t.Fatalf("expected child interrupted once, got %d", ts.proc.interrupted)
	}
	if ts.sup.Status() != daemon.DefaultStatus() {
		t.Fatalf("expected default status after restart, got %+v", ts.sup.Status())
	}
	ts.bus.mu.Lock()
	defer ts.bus.mu.Unlock()
	if len(ts.bus.sent) != 1 || ts.bus.sent[0].Type != ui.TypeShowToast {
		t.Fatalf("expected a restart toast, got %+v", ts.bus.sent)
	}
	if toast := ts.bus.sent[0].Payload.(ui.Toast); toast.Message != "pro.example.com" || toast.Status != ui.ToastInfo {
		t.Fatalf("unexpected toast %+v", toast)
	}
}

func TestDaemonRestartUnknown(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/daemon/missing.example.com/restart", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDaemonProxyStripsPrefixAndKeepsQuery(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/daemon-proxy/pro.example.com/api/workspaces/list?watch=true&x=1", `{"a":1}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected daemon status passed through, got %d", rec.Code)
	}
	if rec.Body.String() != "from daemon" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if rec.Header().Get("X-Daemon") != "yes" {
		t.Fatal("expected daemon headers passed through")
	}

	if len(ts.client.proxied) != 1 {
		t.Fatalf("expected one proxied request, got %d", len(ts.client.proxied))
	}
	out := ts.client.proxied[0]
	if out.URL.Path != "/api/workspaces/list" {
		t.Fatalf("expected prefix stripped, got %q", out.URL.Path)
	}
	if out.URL.RawQuery != "watch=true&x=1" {
		t.Fatalf("expected query kept, got %q", out.URL.RawQuery)
	}
	if out.Method != http.MethodPost {
		t.Fatalf("expected method kept, got %s", out.Method)
	}
	body, _ := io.ReadAll(out.Body)
	if string(body) != `{"a":1}` {
		t.Fatalf("expected body forwarded, got %q", body)
	}
}

func TestDaemonProxyKeepsEscapedPathAndForwardingHeaders(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/daemon-proxy/pro.example.com/files/a%2Fb?x=1", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.7")
	req.Header.Set("Forwarded", "for=10.0.0.7;proto=http")
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	ts.srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected daemon status passed through, got %d", rec.Code)
	}
	if len(ts.client.proxied) != 1 {
		t.Fatalf("expected one proxied request, got %d", len(ts.client.proxied))
	}
	out := ts.client.proxied[0]
	if got := out.URL.EscapedPath(); got != "/files/a%2Fb" {
		t.Fatalf("expected escaped segment kept, got %q", got)
	}
	if out.URL.RawQuery != "x=1" {
		t.Fatalf("expected query kept, got %q", out.URL.RawQuery)
	}
	for name, want := range map[string]string{
		"X-Forwarded-For": "10.0.0.7",
		"Forwarded":       "for=10.0.0.7;proto=http",
		"Authorization":   "Bearer token",
	} {
		if got := out.Header.Get(name); got != want {
			t.Fatalf("expected %s %q forwarded, got %q", name, want, got)
		}
	}
}

func TestDaemonProxyErrors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/daemon-proxy/missing.example.com/anything", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown instance, got %d", rec.Code)
	}

	ts.client.proxyErr = errors.New("socket gone")
	rec = ts.do(t, http.MethodGet, "/daemon-proxy/pro.example.com/anything", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "socket gone") {
		t.Fatalf("expected error in body, got %q", rec.Body.String())
	}
}

func TestAccessLogRecordsRequests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	if err := log.SetAccessLog(path, "full"); err != nil {
		t.Fatalf("SetAccessLog: %v", err)
	}
	t.Cleanup(log.Close)

	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/daemon/pro.example.com/status", "")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading access log: %v", err)
	}
	fields := strings.Split(strings.TrimSpace(string(data)), "\t")
	if len(fields) != 7 {
		t.Fatalf("expected 7 fields, got %d: %q", len(fields), data)
	}
	if fields[3] != "/daemon/pro.example.com/status" || fields[4] != "pro.example.com" || fields[5] != "200" {
		t.Fatalf("unexpected access log line %q", data)
	}
}

func TestStartAndShutdown(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.addr = "127.0.0.1:0"

	errc := make(chan error, 1)
	go func() { errc <- ts.srv.Start() }()

	deadline := time.Now().Add(5 * time.Second)
	var resp *http.Response
	var err error
	for time.Now().Before(deadline) {
		addr := ts.srv.Addr()
		if addr != "127.0.0.1:0" {
			resp, err = http.Get("http://" + addr + "/releases")
			if err == nil {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	if resp == nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ts.srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("expected clean Start return, got %v", err)
	}
}

func TestShutdownBeforeStartIsNoop(t *testing.T) {
	srv := New(Options{})
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if srv.Addr() != DefaultAddr {
		t.Fatalf("expected default addr, got %q", srv.Addr())
	}
}
