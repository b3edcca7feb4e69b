package provisioning

import (
	"context"

	"github.com/digitalocean/godo"
)

// DropletAPI is the subset of godo's droplet operations this service
// needs. godo.DropletsService satisfies it; tests substitute stubs.
type DropletAPI interface {
	Create(ctx context.Context, createRequest *godo.DropletCreateRequest) (*godo.Droplet, *godo.Response, error)
	Get(ctx context.Context, dropletID int) (*godo.Droplet, *godo.Response, error)
}
