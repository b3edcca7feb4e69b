package manager

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/tfitzpatrick0/openclaw-droplet/internal/config"
	"github.com/tfitzpatrick0/openclaw-droplet/internal/provisioning"
	"github.com/tfitzpatrick0/openclaw-droplet/internal/registry"

	"github.com/digitalocean/godo"
)

// immediateClock fires instantly so tests can run through the full
// retry budget without waiting.
type immediateClock struct{}

func (immediateClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

// stubAPI counts calls and serves scripted responses.
type stubAPI struct {
	mu      sync.Mutex
	creates int
	gets    int

	createDroplet *godo.Droplet
	createErr     error

	// getFn is invoked with the 1-based call number
	getFn func(n int) (*godo.Droplet, error)
}

func (s *stubAPI) Create(ctx context.Context, req *godo.DropletCreateRequest) (*godo.Droplet, *godo.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	return s.createDroplet, nil, s.createErr
}

func (s *stubAPI) Get(ctx context.Context, id int) (*godo.Droplet, *godo.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	d, err := s.getFn(s.gets)
	return d, nil, err
}

func (s *stubAPI) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func testConfig() *config.Config {
	return &config.Config{
		Token:               "test-token",
		Region:              "nyc3",
		Size:                "s-1vcpu-1gb",
		Image:               "ubuntu-22-04-x64",
		Tag:                 "openclaw",
		PollIntervalSeconds: 5,
		PollMaxAttempts:     60,
	}
}

func activeDroplet(id int, ip string) *godo.Droplet {
	return &godo.Droplet{
		ID:     id,
		Name:   "openclaw-123",
		Status: "active",
		Memory: 1024,
		Vcpus:  1,
		Disk:   25,
		Region: &godo.Region{Slug: "nyc3"},
		Networks: &godo.Networks{
			V4: []godo.NetworkV4{{IPAddress: ip, Type: "public"}},
		},
	}
}

func newDroplet(id int) *godo.Droplet {
	return &godo.Droplet{ID: id, Name: "openclaw-123", Status: "new"}
}

func providerRejection(code int, msg string) error {
	return &godo.ErrorResponse{
		Response: &http.Response{
			StatusCode: code,
			Request: &http.Request{
				Method: "POST",
				URL:    &url.URL{Path: "/v2/droplets"},
			},
		},
		Message: msg,
	}
}

func TestCreateWithoutToken(t *testing.T) {
	cfg := testConfig()
	cfg.Token = ""
	api := &stubAPI{}
	reg := registry.New()
	m := NewWithClock(cfg, api, reg, immediateClock{})

	_, err := m.Create(context.Background())
	if !errors.Is(err, provisioning.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if api.creates != 0 {
		t.Errorf("expected zero provider calls, got %d", api.creates)
	}
	if len(reg.List()) != 0 {
		t.Errorf("expected empty registry, got %d entries", len(reg.List()))
	}
}

func TestCreateProviderRejection(t *testing.T) {
	api := &stubAPI{
		createErr: providerRejection(422, "droplet limit exceeded"),
	}
	reg := registry.New()
	m := NewWithClock(testConfig(), api, reg, immediateClock{})

	_, err := m.Create(context.Background())

	var providerErr *provisioning.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if providerErr.Message != "droplet limit exceeded" {
		t.Errorf("expected provider message to surface, got %q", providerErr.Message)
	}
	if len(reg.List()) != 0 {
		t.Errorf("expected no registry entry after rejection, got %d", len(reg.List()))
	}
	if err := m.AwaitConvergence(0); err != nil {
		t.Errorf("no poller should have started, got %v", err)
	}
}

func TestCreateRegistersPlaceholder(t *testing.T) {
	api := &stubAPI{
		createDroplet: newDroplet(42),
		getFn: func(n int) (*godo.Droplet, error) {
			return activeDroplet(42, "203.0.113.10"), nil
		},
	}
	reg := registry.New()
	m := NewWithClock(testConfig(), api, reg, immediateClock{})

	result, err := m.Create(context.Background())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if result.ID != 42 {
		t.Errorf("expected id 42, got %d", result.ID)
	}
	if result.Status != StatusProvisioning {
		t.Errorf("expected status %q, got %q", StatusProvisioning, result.Status)
	}

	// Placeholder must be visible immediately, before convergence
	entry, ok := reg.Get(42)
	if !ok {
		t.Fatal("expected registry entry right after create")
	}
	// The poller may already have made progress, but an entry must exist
	if entry.Status != registry.StatusNew && entry.Status != registry.StatusActive {
		t.Errorf("unexpected placeholder status %q", entry.Status)
	}

	if err := m.AwaitConvergence(42); err != nil {
		t.Fatalf("convergence failed: %v", err)
	}
}

func TestCreateTransportError(t *testing.T) {
	api := &stubAPI{createErr: errors.New("connection refused")}
	reg := registry.New()
	m := NewWithClock(testConfig(), api, reg, immediateClock{})

	_, err := m.Create(context.Background())

	var transportErr *provisioning.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if len(reg.List()) != 0 {
		t.Errorf("expected no registry entry, got %d", len(reg.List()))
	}
}

func TestStatusServesConvergedFromCache(t *testing.T) {
	api := &stubAPI{
		getFn: func(n int) (*godo.Droplet, error) {
			return activeDroplet(7, "203.0.113.7"), nil
		},
	}
	reg := registry.New()
	reg.Set(7, registry.Resource{ID: 7, Name: "openclaw-7", Status: registry.StatusActive, IP: "203.0.113.7"})
	m := NewWithClock(testConfig(), api, reg, immediateClock{})

	res, err := m.Status(context.Background(), 7)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if res.IP != "203.0.113.7" {
		t.Errorf("expected cached ip, got %q", res.IP)
	}
	if api.getCount() != 0 {
		t.Errorf("converged entry must not trigger a provider fetch, got %d calls", api.getCount())
	}
}

func TestStatusRefreshesNonConvergedEntry(t *testing.T) {
	api := &stubAPI{
		getFn: func(n int) (*godo.Droplet, error) {
			return activeDroplet(7, "203.0.113.7"), nil
		},
	}
	reg := registry.New()
	reg.Set(7, registry.Resource{ID: 7, Name: "openclaw-7", Status: registry.StatusNew})
	m := NewWithClock(testConfig(), api, reg, immediateClock{})

	res, err := m.Status(context.Background(), 7)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if api.getCount() != 1 {
		t.Errorf("expected one provider fetch, got %d", api.getCount())
	}
	if !res.Ready() {
		t.Errorf("expected refreshed snapshot to be ready, got %+v", res)
	}

	// The fresh snapshot must now be cached
	cached, _ := reg.Get(7)
	if cached.IP != "203.0.113.7" {
		t.Errorf("expected registry updated with fresh snapshot, got %+v", cached)
	}
}

func TestStatusUnknownDroplet(t *testing.T) {
	api := &stubAPI{
		getFn: func(n int) (*godo.Droplet, error) {
			return nil, providerRejection(404, "The resource you requested could not be found.")
		},
	}
	m := NewWithClock(testConfig(), api, registry.New(), immediateClock{})

	_, err := m.Status(context.Background(), 99)
	if !errors.Is(err, provisioning.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStatusTransientFetchFailure(t *testing.T) {
	api := &stubAPI{
		getFn: func(n int) (*godo.Droplet, error) {
			return nil, errors.New("connection reset")
		},
	}
	m := NewWithClock(testConfig(), api, registry.New(), immediateClock{})

	_, err := m.Status(context.Background(), 99)
	if errors.Is(err, provisioning.ErrNotFound) {
		t.Fatal("transient failure must not be reported as not-found")
	}
	var transportErr *provisioning.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestPollerConvergesOnThirdFetch(t *testing.T) {
	api := &stubAPI{
		createDroplet: newDroplet(42),
		getFn: func(n int) (*godo.Droplet, error) {
			if n < 3 {
				return newDroplet(42), nil
			}
			return activeDroplet(42, "203.0.113.42"), nil
		},
	}
	reg := registry.New()
	m := NewWithClock(testConfig(), api, reg, immediateClock{})

	if _, err := m.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := m.AwaitConvergence(42); err != nil {
		t.Fatalf("convergence failed: %v", err)
	}

	if api.getCount() != 3 {
		t.Errorf("expected exactly 3 poll attempts, got %d", api.getCount())
	}

	entry, _ := reg.Get(42)
	if !entry.Ready() {
		t.Errorf("expected converged snapshot, got %+v", entry)
	}
	if entry.IP != "203.0.113.42" {
		t.Errorf("expected converged ip, got %q", entry.IP)
	}

	// A later status read is served from cache, no downgrade and no
	// further provider calls
	res, err := m.Status(context.Background(), 42)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !res.Ready() {
		t.Errorf("converged snapshot was downgraded: %+v", res)
	}
	if api.getCount() != 3 {
		t.Errorf("expected no further provider calls after convergence, got %d", api.getCount())
	}
}

func TestPollerExhaustsRetryBudget(t *testing.T) {
	api := &stubAPI{
		createDroplet: newDroplet(42),
		getFn: func(n int) (*godo.Droplet, error) {
			return newDroplet(42), nil
		},
	}
	reg := registry.New()
	m := NewWithClock(testConfig(), api, reg, immediateClock{})

	if _, err := m.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := m.AwaitConvergence(42)
	if !errors.Is(err, provisioning.ErrConvergenceTimeout) {
		t.Fatalf("expected ErrConvergenceTimeout, got %v", err)
	}

	if api.getCount() != 60 {
		t.Errorf("expected exactly 60 poll attempts, got %d", api.getCount())
	}

	entry, _ := reg.Get(42)
	if entry.Status != registry.StatusError {
		t.Errorf("expected status %q after exhaustion, got %q", registry.StatusError, entry.Status)
	}
}

func TestPollerSurvivesFetchErrors(t *testing.T) {
	api := &stubAPI{
		createDroplet: newDroplet(42),
		getFn: func(n int) (*godo.Droplet, error) {
			if n == 1 {
				return nil, errors.New("connection reset")
			}
			return activeDroplet(42, "203.0.113.42"), nil
		},
	}
	reg := registry.New()
	m := NewWithClock(testConfig(), api, reg, immediateClock{})

	if _, err := m.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := m.AwaitConvergence(42); err != nil {
		t.Fatalf("expected convergence despite transient fetch error, got %v", err)
	}
	if api.getCount() != 2 {
		t.Errorf("expected 2 poll attempts, got %d", api.getCount())
	}
}
