package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	godaemon "github.com/sevlyar/go-daemon"

	"github.com/kamranahmedse/podsup/internal/config"
	"github.com/kamranahmedse/podsup/internal/log"
)

func IsRunning() bool {
	if _, err := os.Stat(config.SocketPath()); err != nil {
		return false
	}
	resp, err := SendIPC(Request{Type: MsgStatus})
	if err != nil {
		return false
	}
	return resp.OK
}

// RunDetached forks into the background. The parent returns immediately.
func RunDetached() error {
	if err := os.MkdirAll(config.Dir(), 0755); err != nil {
		return err
	}

	cntxt := &godaemon.Context{
		PidFileName: config.PidPath(),
		PidFilePerm: 0644,
		LogFileName: "",
		WorkDir:     config.Dir(),
		Umask:       027,
	}

	child, err := cntxt.Reborn()
	if err != nil {
		return fmt.Errorf("daemonize: %w", err)
	}
	if child != nil {
		return nil
	}

	defer cntxt.Release()
	return Run(true)
}

func WaitForReady() error {
	for i := 0; i < 50; i++ {
		if IsRunning() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("podsup failed to start within 5 seconds")
}

// Stop asks a running server to shut down and waits for it to go away.
func Stop() error {
	resp, err := SendIPC(Request{Type: MsgShutdown})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("shutdown: %s", resp.Error)
	}
	for i := 0; i < 100; i++ {
		if !IsRunning() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("podsup did not stop within 10 seconds")
}

// Run serves in the foreground until SIGINT, SIGTERM or an admin shutdown.
// When toFile is set the application log goes to the log file instead of
// stderr.
func Run(toFile bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if toFile {
		if err := log.SetOutput(config.LogPath()); err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
	}
	defer log.Close()
	log.SetDebug(cfg.Debug)
	if err := log.SetAccessLog(config.AccessLogPath(), cfg.EffectiveLogMode()); err != nil {
		return err
	}

	a, err := New(cfg, Deps{})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ipc, err := NewIPCServer(config.SocketPath(), func(req Request) Response {
		return a.handleIPC(req, cancel)
	})
	if err != nil {
		return err
	}
	defer ipc.Close()
	go ipc.Serve()

	if err := os.WriteFile(config.PidPath(), []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	defer os.Remove(config.PidPath())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			log.Info("received %s", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Info("podsup starting (pid %d)", os.Getpid())
	return a.Serve(ctx)
}

// IsDetachedChild reports whether this process is the background copy
// started by RunDetached.
func IsDetachedChild() bool {
	return godaemon.WasReborn()
}
