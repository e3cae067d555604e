// Package supervisor keeps one pro daemon alive per instance: it spawns
// the child, health-checks it and restarts it with bounded retries.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kamranahmedse/podsup/internal/daemon"
	"github.com/kamranahmedse/podsup/internal/log"
	"github.com/kamranahmedse/podsup/internal/osutil"
)

const (
	MaxRetryCount       = 10
	RetryDebugThreshold = 7
	SpawnTimeout        = 30 * time.Second
	StopTimeout         = 5 * time.Second

	// Past MaxRetryCount only every slowRetryEvery-th tick attempts a start.
	slowRetryEvery = 5

	failedTitle = "Failed to start daemon"
	failedBody  = `Please take a look at "Settings > Open Logs" or report this issue to an administrator`
)

var (
	ErrSpawnTimeout = errors.New("timed out waiting for daemon status")
	ErrProtocol     = errors.New("daemon protocol error")
)

// SpawnError wraps every failure to bring a daemon up.
type SpawnError struct {
	Host string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("starting daemon for %s: %v", e.Host, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Client is the daemon connection a supervisor health-checks and the
// control server proxies through.
type Client interface {
	Status(ctx context.Context) (daemon.Status, error)
	Proxy(req *http.Request) (*http.Response, error)
}

// Launcher builds the command line that starts a daemon.
type Launcher interface {
	DaemonCommand(host string, debug bool) (name string, args []string, env []string)
}

type Notifier interface {
	Notify(title string, body string) error
}

type Options struct {
	Client   Client
	Launcher Launcher
	Provider string

	Starter  ProcessStarter
	Notifier Notifier
	// LoginRequired is called once per logged-out episode.
	LoginRequired func(ctx context.Context, host string, provider string)
	// Terminate force-kills a pid; defaults to osutil.Terminate.
	Terminate func(pid int) error
	// Alive reports whether a pid still exists; defaults to osutil.Alive.
	Alive        func(pid int) bool
	SpawnTimeout time.Duration
	// StopTimeout bounds the wait for an interrupted child to exit.
	StopTimeout time.Duration
}

// Supervisor is not safe for concurrent use; callers hold the pro store's
// write lock while driving it.
type Supervisor struct {
	status     daemon.Status
	child      Process
	retryCount int
	client     Client
	provider   string

	notifiedFailed        bool
	notifiedLoginRequired bool

	launcher      Launcher
	starter       ProcessStarter
	notifier      Notifier
	loginRequired func(ctx context.Context, host string, provider string)
	terminate     func(pid int) error
	alive         func(pid int) bool
	spawnTimeout  time.Duration
	stopTimeout   time.Duration
}

func New(opts Options) *Supervisor {
	s := &Supervisor{
		status:        daemon.DefaultStatus(),
		client:        opts.Client,
		provider:      opts.Provider,
		launcher:      opts.Launcher,
		starter:       opts.Starter,
		notifier:      opts.Notifier,
		loginRequired: opts.LoginRequired,
		terminate:     opts.Terminate,
		alive:         opts.Alive,
		spawnTimeout:  opts.SpawnTimeout,
		stopTimeout:   opts.StopTimeout,
	}
	if s.starter == nil {
		s.starter = ExecStarter
	}
	if s.terminate == nil {
		s.terminate = osutil.Terminate
	}
	if s.alive == nil {
		s.alive = osutil.Alive
	}
	if s.spawnTimeout <= 0 {
		s.spawnTimeout = SpawnTimeout
	}
	if s.stopTimeout <= 0 {
		s.stopTimeout = StopTimeout
	}
	return s
}

func (s *Supervisor) Status() daemon.Status { return s.status }
func (s *Supervisor) RetryCount() int       { return s.retryCount }
func (s *Supervisor) Client() Client        { return s.client }
func (s *Supervisor) Provider() string      { return s.provider }
func (s *Supervisor) HasChild() bool        { return s.child != nil }

// PID of the tracked child, or 0.
func (s *Supervisor) PID() int {
	if s.child == nil {
		return 0
	}
	return s.child.PID()
}

// TryStart stops any tracked child and spawns a new one, adopting the
// status it prints first.
func (s *Supervisor) TryStart(ctx context.Context, host string) error {
	log.Info("[%s] attempting to start daemon", host)
	s.TryStop()

	proc, err := s.spawn(ctx, host)
	if err != nil {
		log.Error("[%s] failed to start daemon: %v", host, err)
		return err
	}
	s.child = proc
	log.Info("[%s] started daemon (pid %d)", host, proc.PID())
	return nil
}

func (s *Supervisor) spawn(ctx context.Context, host string) (Process, error) {
	name, args, env := s.launcher.DaemonCommand(host, s.ShouldDebug())
	proc, err := s.starter(ctx, name, args, env)
	if err != nil {
		return nil, &SpawnError{Host: host, Err: err}
	}

	timer := time.NewTimer(s.spawnTimeout)
	defer timer.Stop()

	select {
	case line, ok := <-proc.Stdout():
		if !ok {
			s.discard(host, proc)
			return nil, &SpawnError{Host: host, Err: fmt.Errorf("%w: daemon exited before reporting status", ErrProtocol)}
		}
		status, err := daemon.ParseStatus([]byte(line))
		if err != nil {
			s.discard(host, proc)
			return nil, &SpawnError{Host: host, Err: fmt.Errorf("%w: %v", ErrProtocol, err)}
		}
		s.status = status
		if status.LoginRequired {
			s.notifyLoginRequired(ctx, host)
		}
		return proc, nil
	case <-timer.C:
		s.discard(host, proc)
		return nil, &SpawnError{Host: host, Err: ErrSpawnTimeout}
	case <-ctx.Done():
		s.discard(host, proc)
		return nil, &SpawnError{Host: host, Err: ctx.Err()}
	}
}

// discard kills a child that never became usable and logs its stderr.
func (s *Supervisor) discard(host string, proc Process) {
	for _, line := range proc.DrainStderr() {
		log.Error("[%s] %s", host, line)
	}
	if err := proc.Kill(); err != nil {
		log.Debug("[%s] killing daemon %d: %v", host, proc.PID(), err)
	}
}

// TryStop interrupts the child if there is one, force-kills it when it does
// not exit within the stop timeout, and resets to the default status. It
// always clears the child.
func (s *Supervisor) TryStop() {
	if s.child != nil {
		s.stop(s.child)
	}
	s.child = nil
	s.status = daemon.DefaultStatus()
}

func (s *Supervisor) stop(proc Process) {
	pid := proc.PID()
	if err := proc.Interrupt(); err != nil {
		log.Debug("interrupting daemon %d: %v", pid, err)
		if err := s.terminate(pid); err != nil {
			log.Error("failed to stop daemon %d: %v", pid, err)
		}
		return
	}

	timer := time.NewTimer(s.stopTimeout)
	defer timer.Stop()
	select {
	case <-proc.Done():
		return
	case <-timer.C:
	}

	if !s.alive(pid) {
		return
	}
	log.Warn("daemon %d ignored interrupt, killing it", pid)
	if err := proc.Kill(); err != nil {
		log.Debug("killing daemon %d: %v", pid, err)
		if err := s.terminate(pid); err != nil {
			log.Error("failed to stop daemon %d: %v", pid, err)
		}
	}
}

// ShouldRetry is called once per tick and counts it.
func (s *Supervisor) ShouldRetry() bool {
	if s.status.LoginRequired {
		return false
	}

	s.retryCount++
	if s.retryCount < MaxRetryCount {
		return true
	}

	s.notifyFailed()
	return s.retryCount%slowRetryEvery == 0
}

func (s *Supervisor) ShouldDebug() bool {
	return s.retryCount >= RetryDebugThreshold
}

// Tick runs one health check and reports whether the daemon is running.
func (s *Supervisor) Tick(ctx context.Context, host string) bool {
	if s.child == nil {
		s.status.State = daemon.StatePending
		_ = s.TryStart(ctx, host)
		return false
	}

	status, err := s.client.Status(ctx)
	if err != nil {
		log.Info("[%s] failed to get daemon status: %v", host, err)
		s.status.State = daemon.StateStopped
		s.reap(host)
		return false
	}

	s.status = status
	if status.LoginRequired {
		s.notifyLoginRequired(ctx, host)
	}
	switch status.State {
	case daemon.StateRunning:
		s.retryCount = 0
		s.notifiedLoginRequired = false
		return true
	case daemon.StateStopped:
		log.Info("[%s] daemon reported stopped, restarting", host)
		s.status.State = daemon.StatePending
		_ = s.TryStart(ctx, host)
	}
	return false
}

// reap replays buffered stderr and force-kills the child.
func (s *Supervisor) reap(host string) {
	for _, line := range s.child.DrainStderr() {
		log.Error("[%s] %s", host, line)
	}
	pid := s.child.PID()
	if err := s.child.Kill(); err != nil {
		log.Debug("[%s] killing daemon %d: %v", host, pid, err)
		if err := s.terminate(pid); err != nil {
			log.Error("[%s] failed to kill daemon %d: %v", host, pid, err)
		}
	}
	s.child = nil
}

func (s *Supervisor) notifyFailed() {
	if s.notifiedFailed {
		return
	}
	s.notifiedFailed = true
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(failedTitle, failedBody); err != nil {
		log.Error("sending notification: %v", err)
	}
}

func (s *Supervisor) notifyLoginRequired(ctx context.Context, host string) {
	if s.notifiedLoginRequired {
		return
	}
	s.notifiedLoginRequired = true
	if s.loginRequired != nil {
		s.loginRequired(ctx, host, s.provider)
	}
}
