// Package app wires the supervisor, watcher, UI bus and control server into
// one long-running process.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/kamranahmedse/podsup/internal/config"
	"github.com/kamranahmedse/podsup/internal/daemon"
	"github.com/kamranahmedse/podsup/internal/devpod"
	"github.com/kamranahmedse/podsup/internal/log"
	"github.com/kamranahmedse/podsup/internal/notify"
	"github.com/kamranahmedse/podsup/internal/releases"
	"github.com/kamranahmedse/podsup/internal/resource"
	"github.com/kamranahmedse/podsup/internal/server"
	"github.com/kamranahmedse/podsup/internal/supervisor"
	"github.com/kamranahmedse/podsup/internal/transport"
	"github.com/kamranahmedse/podsup/internal/ui"
	"github.com/kamranahmedse/podsup/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

// Deps are the seams to the outside world. Zero values use the real
// implementations.
type Deps struct {
	Runner   devpod.CommandRunner
	Starter  supervisor.ProcessStarter
	Notifier notify.Notifier
}

type App struct {
	cfg      *config.Config
	home     string
	cli      *devpod.CLI
	starter  supervisor.ProcessStarter
	notifier notify.Notifier

	state    *resource.State
	bus      *ui.Bus
	releases *releases.Store
	watcher  *watcher.Watcher
	server   *server.Server
}

func New(cfg *config.Config, deps Deps) (*App, error) {
	home := cfg.DevpodHome
	if home == "" {
		var err error
		if home, err = devpod.Home(); err != nil {
			return nil, err
		}
	} else if err := os.Setenv(devpod.HomeEnv, home); err != nil {
		return nil, fmt.Errorf("setting %s: %w", devpod.HomeEnv, err)
	}

	a := &App{
		cfg:      cfg,
		home:     home,
		cli:      devpod.New(cfg.DevpodBinary, deps.Runner),
		starter:  deps.Starter,
		notifier: deps.Notifier,
		state:    resource.NewState(),
	}
	releasesPath := cfg.ReleasesPath
	if releasesPath == "" {
		releasesPath = config.DefaultReleasesPath()
	}
	a.releases = releases.NewStore(releasesPath)
	if a.notifier == nil {
		a.notifier = notify.New()
	}
	a.bus = ui.NewBus(a.notifier)

	publisher := ui.Publisher{Sender: a.bus}
	a.watcher = watcher.New(watcher.Options{
		State:           a.state,
		Lister:          a.cli,
		NewSupervisor:   a.newSupervisor,
		Menu:            publisher,
		Indicator:       publisher,
		DaemonInterval:  cfg.DaemonInterval,
		RefreshInterval: cfg.RefreshInterval,
	})
	a.server = server.New(server.Options{
		Addr:     cfg.ListenAddr,
		State:    a.state,
		Bus:      a.bus,
		Releases: a.releases,
	})
	return a, nil
}

func (a *App) State() *resource.State { return a.state }
func (a *App) Bus() *ui.Bus           { return a.bus }
func (a *App) Server() *server.Server { return a.server }

func (a *App) newSupervisor(inst *resource.ProInstance) (*supervisor.Supervisor, error) {
	if inst.Provider == "" {
		return nil, fmt.Errorf("pro instance %s has no provider", inst.Host)
	}
	addr := transport.SocketAddr(a.home, inst.Context, inst.Provider)
	log.Debug("[%s] daemon address %s", inst.Host, addr)

	return supervisor.New(supervisor.Options{
		Client:        daemon.NewClient(addr),
		Launcher:      a.cli,
		Provider:      inst.Provider,
		Starter:       a.starter,
		Notifier:      a.notifier,
		LoginRequired: a.loginRequired,
	}), nil
}

func (a *App) loginRequired(ctx context.Context, host string, provider string) {
	log.Warn("[%s] login required", host)
	if err := a.bus.Send(ctx, ui.LoginRequired(host, provider)); err != nil {
		log.Warn("%v", err)
	}
}

// Serve runs every component until ctx is done or the control server
// fails, then stops them in reverse order.
func (a *App) Serve(ctx context.Context) error {
	if err := a.releases.Load(); err != nil {
		log.Warn("loading releases: %v", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	wg.Go(func() { a.bus.Listen(ctx) })
	wg.Go(func() {
		if err := a.releases.Watch(ctx); err != nil {
			log.Warn("watching releases: %v", err)
		}
	})
	a.watcher.Start(ctx)

	errc := make(chan error, 1)
	go func() { errc <- a.server.Start() }()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
		if err == nil {
			err = fmt.Errorf("control server stopped")
		}
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if serr := a.server.Shutdown(shutdownCtx); serr != nil {
		log.Warn("stopping control server: %v", serr)
	}
	a.watcher.Shutdown()
	cancel()
	wg.Wait()
	return err
}

// StatusData is a snapshot of what the running process supervises.
func (a *App) StatusData() StatusData {
	data := StatusData{
		Running:    true,
		PID:        os.Getpid(),
		ListenAddr: a.server.Addr(),
		UIReady:    a.bus.Ready(),
	}
	a.state.Workspaces.Read(func(w *resource.WorkspaceState) {
		data.Workspaces = len(w.Workspaces)
	})
	a.state.Pro.Read(func(p *resource.ProState) {
		data.AllReady = p.AllReady
		for _, inst := range p.Instances {
			info := InstanceInfo{Host: inst.Host, Provider: inst.Provider, Context: inst.Context}
			if inst.Daemon != nil {
				st := inst.Daemon.Status()
				info.State = string(st.State)
				info.Online = st.Online
				info.LoginRequired = st.LoginRequired
				info.RetryCount = inst.Daemon.RetryCount()
				info.PID = inst.Daemon.PID()
			}
			data.Instances = append(data.Instances, info)
		}
	})
	return data
}

func (a *App) handleIPC(req Request, shutdown func()) Response {
	switch req.Type {
	case MsgShutdown:
		go shutdown()
		return Response{OK: true}

	case MsgStatus:
		data, err := json.Marshal(a.StatusData())
		if err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true, Data: data}

	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown message type: %s", req.Type)}
	}
}
