package pkg

import (
	"sort"
	"sync"
)

// FailedHosts tracks hosts that failed a task. Hosts stay in the set until recovered.
type FailedHosts struct {
	mu    sync.RWMutex
	hosts map[string]struct{}
}

func NewFailedHosts() *FailedHosts {
	return &FailedHosts{hosts: make(map[string]struct{})}
}

// MarkFailed adds host to the set
func (f *FailedHosts) MarkFailed(host string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hosts[host] = struct{}{}
}

// IsFailed reports whether host is in the set
func (f *FailedHosts) IsFailed(host string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.hosts[host]
	return ok
}

// Recover removes a single host from the set
func (f *FailedHosts) Recover(host string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.hosts, host)
}

// Reset empties the set
func (f *FailedHosts) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hosts = make(map[string]struct{})
}

// Hosts returns the failed hosts sorted by name
func (f *FailedHosts) Hosts() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	hosts := make([]string, 0, len(f.hosts))
	for h := range f.hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

func (f *FailedHosts) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.hosts)
}

// GlobalState is shared by a session and every view derived from it.
type GlobalState struct {
	DryRun      bool
	FailedHosts *FailedHosts
}

func NewGlobalState(dryRun bool) *GlobalState {
	return &GlobalState{DryRun: dryRun, FailedHosts: NewFailedHosts()}
}
