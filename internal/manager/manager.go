package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tfitzpatrick0/openclaw-droplet/internal/config"
	"github.com/tfitzpatrick0/openclaw-droplet/internal/logging"
	"github.com/tfitzpatrick0/openclaw-droplet/internal/provisioning"
	"github.com/tfitzpatrick0/openclaw-droplet/internal/registry"

	"github.com/alitto/pond/v2"
	"github.com/digitalocean/godo"
	"go.uber.org/zap"
)

// StatusProvisioning is what a successful create reports back to the
// caller while the droplet is still converging in the background.
const StatusProvisioning = "provisioning"

// maxConcurrentPollers bounds how many convergence pollers run at once.
const maxConcurrentPollers = 32

// Clock abstracts the delay between poll attempts so tests can
// fast-forward through the retry budget without wall-clock waiting.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// CreateResult is returned immediately after a droplet creation is
// accepted; convergence happens in the background.
type CreateResult struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Manager provisions droplets and tracks their convergence. It owns the
// registry of last-known snapshots and one background poller per
// created droplet.
type Manager struct {
	cfg      *config.Config
	api      provisioning.DropletAPI
	registry *registry.Registry
	clock    Clock
	pool     pond.Pool

	mu      sync.Mutex
	pollers map[int]pond.Task
}

// New creates a Manager driven by the real clock.
func New(cfg *config.Config, api provisioning.DropletAPI, reg *registry.Registry) *Manager {
	return NewWithClock(cfg, api, reg, realClock{})
}

// NewWithClock creates a Manager with an injected clock.
func NewWithClock(cfg *config.Config, api provisioning.DropletAPI, reg *registry.Registry, clock Clock) *Manager {
	return &Manager{
		cfg:      cfg,
		api:      api,
		registry: reg,
		clock:    clock,
		pool:     pond.NewPool(maxConcurrentPollers),
		pollers:  make(map[int]pond.Task),
	}
}

// Registry exposes the snapshot store, mainly for listing.
func (m *Manager) Registry() *registry.Registry {
	return m.registry
}

// Create provisions a new droplet. It returns as soon as the provider
// accepts the creation; a background poller drives the droplet toward
// convergence afterwards.
func (m *Manager) Create(ctx context.Context) (*CreateResult, error) {
	if m.cfg.Token == "" {
		return nil, provisioning.ErrNoToken
	}

	name := fmt.Sprintf("openclaw-%d", time.Now().UnixMilli())

	sshKeys := make([]godo.DropletCreateSSHKey, 0, len(m.cfg.SSHKeys))
	for _, id := range m.cfg.SSHKeys {
		sshKeys = append(sshKeys, godo.DropletCreateSSHKey{ID: id})
	}

	var tags []string
	if m.cfg.Tag != "" {
		tags = append(tags, m.cfg.Tag)
	}

	createRequest := &godo.DropletCreateRequest{
		Name:   name,
		Region: m.cfg.Region,
		Size:   m.cfg.Size,
		Image: godo.DropletCreateImage{
			Slug: m.cfg.Image,
		},
		SSHKeys:    sshKeys,
		Backups:    false,
		IPv6:       true,
		Monitoring: true,
		Tags:       tags,
	}

	droplet, _, err := m.api.Create(ctx, createRequest)
	if err != nil {
		cerr := provisioning.Classify(err)
		logging.Logger().Error("droplet creation failed",
			zap.String("name", name),
			zap.String("error", logging.Truncate(cerr.Error())))
		return nil, cerr
	}

	m.registry.Set(droplet.ID, registry.Resource{
		ID:     droplet.ID,
		Name:   name,
		Status: registry.StatusNew,
	})
	m.watch(droplet.ID)

	logging.Logger().Info("droplet creation accepted",
		zap.Int("droplet_id", droplet.ID),
		zap.String("name", name))

	return &CreateResult{
		ID:     droplet.ID,
		Name:   name,
		Status: StatusProvisioning,
	}, nil
}

// Status returns the best-known state for id. A converged snapshot is
// served from the registry without touching the provider; anything else
// triggers a fresh fetch whose result overwrites the cached entry.
func (m *Manager) Status(ctx context.Context, id int) (registry.Resource, error) {
	if cached, ok := m.registry.Get(id); ok && cached.Ready() {
		return cached, nil
	}

	droplet, _, err := m.api.Get(ctx, id)
	if err != nil {
		return registry.Resource{}, provisioning.ClassifyFetch(err)
	}

	snapshot := fromDroplet(droplet)
	m.registry.Set(id, snapshot)
	return snapshot, nil
}

// List returns the last-known snapshots of every droplet created by
// this process.
func (m *Manager) List() []registry.Resource {
	return m.registry.List()
}

// AwaitConvergence blocks until the background poller for id finishes.
// It returns provisioning.ErrConvergenceTimeout when the retry budget
// ran out, nil on convergence or when no poller was ever started.
func (m *Manager) AwaitConvergence(id int) error {
	m.mu.Lock()
	task, ok := m.pollers[id]
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return task.Wait()
}

// watch starts the convergence poller for id. At most one poller runs
// per droplet id: one creation, one poller lifeline.
func (m *Manager) watch(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.pollers[id]; exists {
		return
	}
	m.pollers[id] = m.pool.SubmitErr(func() error {
		return m.converge(id)
	})
}

// converge polls the provider until the droplet is active with a public
// address, or the retry budget is exhausted. Fetch errors are treated
// as non-ready observations; each attempt costs budget either way.
func (m *Manager) converge(id int) error {
	ctx := context.Background()

	for attempt := 1; attempt <= m.cfg.PollMaxAttempts; attempt++ {
		droplet, _, err := m.api.Get(ctx, id)
		if err != nil {
			logging.Logger().Warn("droplet poll failed",
				zap.Int("droplet_id", id),
				zap.Int("attempt", attempt),
				zap.String("error", logging.Truncate(err.Error())))
		} else {
			snapshot := fromDroplet(droplet)
			m.registry.Set(id, snapshot)

			if snapshot.Ready() {
				logging.Logger().Info("droplet converged",
					zap.Int("droplet_id", id),
					zap.String("ip", snapshot.IP),
					zap.Int("attempt", attempt))
				return nil
			}

			logging.Logger().Debug("droplet not ready yet",
				zap.Int("droplet_id", id),
				zap.String("status", snapshot.Status),
				zap.Int("attempt", attempt))
		}

		<-m.clock.After(m.cfg.PollInterval())
	}

	m.registry.Update(id, func(r *registry.Resource) {
		r.Status = registry.StatusError
	})
	logging.Logger().Error("droplet never converged, giving up",
		zap.Int("droplet_id", id),
		zap.Int("attempts", m.cfg.PollMaxAttempts))
	return provisioning.ErrConvergenceTimeout
}

// fromDroplet maps a provider response onto a registry snapshot.
func fromDroplet(d *godo.Droplet) registry.Resource {
	ip, _ := d.PublicIPv4()

	region := ""
	if d.Region != nil {
		region = d.Region.Slug
	}

	return registry.Resource{
		ID:     d.ID,
		Name:   d.Name,
		Status: d.Status,
		IP:     ip,
		Region: region,
		Memory: d.Memory,
		Vcpus:  d.Vcpus,
		Disk:   d.Disk,
	}
}
