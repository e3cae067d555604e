// Package watcher drives the two background loops: one ticks every pro
// daemon, the other refreshes the workspace and pro instance lists.
package watcher

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/kamranahmedse/podsup/internal/log"
	"github.com/kamranahmedse/podsup/internal/resource"
	"github.com/kamranahmedse/podsup/internal/supervisor"
)

const (
	DefaultDaemonInterval  = time.Second
	DefaultRefreshInterval = 5 * time.Second
)

type Lister interface {
	ListWorkspaces(ctx context.Context) ([]resource.Workspace, error)
	ListProInstances(ctx context.Context) ([]*resource.ProInstance, error)
}

// Menu receives workspace and pro instance additions and removals.
type Menu interface {
	Apply(changes []resource.Change)
}

// Indicator shows whether every daemon is up.
type Indicator interface {
	SetReady(ready bool)
}

// SupervisorFactory creates the supervisor for a daemon-capable instance.
type SupervisorFactory func(inst *resource.ProInstance) (*supervisor.Supervisor, error)

type Options struct {
	State           *resource.State
	Lister          Lister
	NewSupervisor   SupervisorFactory
	Menu            Menu
	Indicator       Indicator
	DaemonInterval  time.Duration
	RefreshInterval time.Duration
}

type Watcher struct {
	state           *resource.State
	lister          Lister
	newSupervisor   SupervisorFactory
	menu            Menu
	indicator       Indicator
	daemonInterval  time.Duration
	refreshInterval time.Duration

	cancel context.CancelFunc
	wg     conc.WaitGroup
}

func New(opts Options) *Watcher {
	w := &Watcher{
		state:           opts.State,
		lister:          opts.Lister,
		newSupervisor:   opts.NewSupervisor,
		menu:            opts.Menu,
		indicator:       opts.Indicator,
		daemonInterval:  opts.DaemonInterval,
		refreshInterval: opts.RefreshInterval,
	}
	if w.daemonInterval <= 0 {
		w.daemonInterval = DefaultDaemonInterval
	}
	if w.refreshInterval <= 0 {
		w.refreshInterval = DefaultRefreshInterval
	}
	return w
}

// Start launches both loops. They run until ctx is done or Shutdown.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Go(func() { loop(ctx, w.daemonInterval, w.WatchDaemons) })
	w.wg.Go(func() { loop(ctx, w.refreshInterval, w.Refresh) })
}

// loop runs fn, then sleeps interval, until ctx is done.
func loop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			fn(ctx)
			timer.Reset(interval)
		}
	}
}

// Shutdown stops both loops, waits for them and then stops every daemon.
func (w *Watcher) Shutdown() {
	log.Info("shutting down resource watchers")
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	w.state.Pro.Write(func(p *resource.ProState) {
		for _, inst := range p.Instances {
			if inst.Daemon == nil {
				continue
			}
			log.Info("[%s] stopping daemon", inst.Host)
			inst.Daemon.TryStop()
		}
	})
}

// WatchDaemons runs one pass over the pro instances under the write lock.
func (w *Watcher) WatchDaemons(ctx context.Context) {
	var (
		changed  bool
		allReady bool
	)

	w.state.Pro.Write(func(p *resource.ProState) {
		allReady = true
		for _, inst := range p.Instances {
			if ctx.Err() != nil {
				allReady = false
				break
			}
			if !inst.HasCapability(resource.CapabilityDaemon) {
				continue
			}
			if inst.Daemon == nil {
				d, err := w.newSupervisor(inst)
				if err != nil {
					log.Error("[%s] creating daemon supervisor: %v", inst.Host, err)
					allReady = false
					continue
				}
				inst.Daemon = d
			}
			if !inst.Daemon.ShouldRetry() {
				allReady = false
				continue
			}
			if !inst.Daemon.Tick(ctx, inst.Host) {
				allReady = false
			}
		}
		if p.AllReady != allReady {
			p.AllReady = allReady
			changed = true
		}
	})

	if changed && w.indicator != nil {
		w.indicator.SetReady(allReady)
	}
}

// Refresh fetches both lists from the CLI and replaces the stored ones
// when they differ.
func (w *Watcher) Refresh(ctx context.Context) {
	w.refreshWorkspaces(ctx)
	w.refreshProInstances(ctx)
}

func (w *Watcher) refreshWorkspaces(ctx context.Context) {
	list, err := w.lister.ListWorkspaces(ctx)
	if err != nil {
		log.Debug("listing workspaces: %v", err)
		return
	}

	var changes []resource.Change
	w.state.Workspaces.Write(func(s *resource.WorkspaceState) {
		if resource.EqualWorkspaces(s.Workspaces, list) {
			return
		}
		removed, added := resource.Diff(s.Workspaces, list)
		changes = resource.Changes(resource.KindWorkspace, removed, added)
		s.Workspaces = list
	})
	w.publish(changes)
}

func (w *Watcher) refreshProInstances(ctx context.Context) {
	list, err := w.lister.ListProInstances(ctx)
	if err != nil {
		log.Debug("listing pro instances: %v", err)
		return
	}

	var changes []resource.Change
	w.state.Pro.Write(func(p *resource.ProState) {
		if resource.EqualProInstances(p.Instances, list) {
			return
		}
		removed, added := resource.Diff(p.Instances, list)
		changes = resource.Changes(resource.KindPro, removed, added)

		for _, d := range resource.CarryDaemons(p.Instances, list) {
			d.TryStop()
		}
		p.Instances = list
	})
	w.publish(changes)
}

func (w *Watcher) publish(changes []resource.Change) {
	if len(changes) == 0 || w.menu == nil {
		return
	}
	w.menu.Apply(changes)
}
