// Package resource holds the workspaces and pro instances listed by the
// devpod CLI and the shared state the watcher and control server use.
package resource

import (
	"slices"

	"github.com/kamranahmedse/podsup/internal/supervisor"
)

// CapabilityDaemon marks pro instances that run a local daemon.
const CapabilityDaemon = "daemon"

// Identifiable values carry a stable string identity.
type Identifiable interface {
	Key() string
}

type WorkspaceProvider struct {
	Name string `json:"name"`
}

type WorkspaceIDE struct {
	Name string `json:"name,omitempty"`
}

type WorkspaceSource struct {
	GitRepository string `json:"gitRepository,omitempty"`
	GitBranch     string `json:"gitBranch,omitempty"`
	LocalFolder   string `json:"localFolder,omitempty"`
	Image         string `json:"image,omitempty"`
}

type Workspace struct {
	ID       string            `json:"id"`
	UID      string            `json:"uid,omitempty"`
	Provider WorkspaceProvider `json:"provider"`
	Context  string            `json:"context,omitempty"`
	Source   WorkspaceSource   `json:"source"`
	IDE      WorkspaceIDE      `json:"ide"`
	LastUsed string            `json:"lastUsed,omitempty"`
}

func (w Workspace) Key() string { return w.ID }

type ProInstance struct {
	Host          string   `json:"host"`
	Provider      string   `json:"provider,omitempty"`
	Context       string   `json:"context,omitempty"`
	Capabilities  []string `json:"capabilities,omitempty"`
	Authenticated *bool    `json:"authenticated,omitempty"`

	Daemon *supervisor.Supervisor `json:"-"`
}

func (p *ProInstance) Key() string { return p.Host }

func (p *ProInstance) HasCapability(c string) bool {
	return slices.Contains(p.Capabilities, c)
}

// sameListing compares what the CLI reports, ignoring the supervisor.
func (p *ProInstance) sameListing(o *ProInstance) bool {
	if p.Host != o.Host || p.Provider != o.Provider || p.Context != o.Context {
		return false
	}
	if (p.Authenticated == nil) != (o.Authenticated == nil) {
		return false
	}
	if p.Authenticated != nil && *p.Authenticated != *o.Authenticated {
		return false
	}
	return slices.Equal(p.Capabilities, o.Capabilities)
}

func EqualWorkspaces(a, b []Workspace) bool {
	return slices.Equal(a, b)
}

func EqualProInstances(a, b []*ProInstance) bool {
	return slices.EqualFunc(a, b, func(x, y *ProInstance) bool { return x.sameListing(y) })
}

// CarryDaemons moves supervisors from old instances to new ones with the
// same host and returns the supervisors whose instance disappeared.
func CarryDaemons(old, updated []*ProInstance) []*supervisor.Supervisor {
	byHost := make(map[string]*supervisor.Supervisor, len(old))
	for _, inst := range old {
		if inst.Daemon != nil {
			byHost[inst.Host] = inst.Daemon
		}
	}
	for _, inst := range updated {
		if d, ok := byHost[inst.Host]; ok && inst.Daemon == nil {
			inst.Daemon = d
			delete(byHost, inst.Host)
		}
	}

	var orphaned []*supervisor.Supervisor
	for _, inst := range old {
		if d, ok := byHost[inst.Host]; ok {
			orphaned = append(orphaned, d)
			delete(byHost, inst.Host)
		}
	}
	return orphaned
}
