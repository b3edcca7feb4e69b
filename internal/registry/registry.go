package registry

import (
	"sort"
	"sync"
)

// Droplet status values the registry cares about. Everything else
// ("new", "off", ...) is provider-defined and passed through verbatim.
const (
	StatusNew    = "new"
	StatusActive = "active"
	// StatusError is assigned locally when convergence polling gives up.
	StatusError = "error"
)

// Resource is the last-known snapshot of one provisioned droplet.
type Resource struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	IP     string `json:"ip,omitempty"`
	Region string `json:"region,omitempty"`
	Memory int    `json:"memory,omitempty"`
	Vcpus  int    `json:"vcpus,omitempty"`
	Disk   int    `json:"disk,omitempty"`
}

// Ready reports whether the droplet has converged: active with a
// usable public address.
func (r Resource) Ready() bool {
	return r.Status == StatusActive && r.IP != ""
}

// Registry is an in-memory mapping from droplet id to its last-known
// snapshot. It lives for the process's lifetime; there is no eviction
// and no persistence.
type Registry struct {
	mu        sync.RWMutex
	resources map[int]Resource
}

// New creates a new empty registry
func New() *Registry {
	return &Registry{
		resources: make(map[int]Resource),
	}
}

// Get returns a copy of the snapshot for id
func (reg *Registry) Get(id int) (Resource, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	r, exists := reg.resources[id]
	return r, exists
}

// Set stores a full snapshot, overwriting any previous one
func (reg *Registry) Set(id int, r Resource) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.resources[id] = r
}

// Update mutates the snapshot for id in place. Returns false when no
// entry exists, in which case the mutator is not called.
func (reg *Registry) Update(id int, updateFn func(*Resource)) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, exists := reg.resources[id]
	if !exists {
		return false
	}

	updateFn(&r)
	reg.resources[id] = r
	return true
}

// List returns copies of all snapshots, ordered by id
func (reg *Registry) List() []Resource {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]Resource, 0, len(reg.resources))
	for _, r := range reg.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
