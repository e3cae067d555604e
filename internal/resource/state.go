package resource

import "sync"

type WorkspaceState struct {
	Workspaces []Workspace
}

type ProState struct {
	Instances []*ProInstance
	// AllReady is true when every daemon-capable instance reported running
	// on the last pass.
	AllReady bool
}

// Find returns the instance with host, or nil.
func (p *ProState) Find(host string) *ProInstance {
	for _, inst := range p.Instances {
		if inst.Host == host {
			return inst
		}
	}
	return nil
}

type WorkspaceStore struct {
	mu    sync.RWMutex
	state WorkspaceState
}

// Read runs fn under the shared lock. fn must not modify the state.
func (s *WorkspaceStore) Read(fn func(*WorkspaceState)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.state)
}

func (s *WorkspaceStore) Write(fn func(*WorkspaceState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

type ProStore struct {
	mu    sync.RWMutex
	state ProState
}

// Read runs fn under the shared lock. fn must not modify the state.
func (s *ProStore) Read(fn func(*ProState)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.state)
}

func (s *ProStore) Write(fn func(*ProState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// State is shared by pointer between the watcher and the control server.
type State struct {
	Workspaces WorkspaceStore
	Pro        ProStore
}

func NewState() *State {
	return &State{}
}
