package provisioning

import (
	"fmt"
	"net/http"

	"github.com/digitalocean/godo"
	"github.com/hashicorp/go-retryablehttp"
)

const userAgent = "openclaw-droplet/1.0"

// bearerTransport injects the API token into every request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

// NewClient creates a DigitalOcean API client authenticated with token.
// Transient transport faults are retried a couple of times per call;
// the domain-level retry budget lives in the convergence poller.
func NewClient(token string) (*godo.Client, error) {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Transport = &bearerTransport{token: token}

	client, err := godo.New(rc.StandardClient(), godo.SetUserAgent(userAgent))
	if err != nil {
		return nil, fmt.Errorf("failed to create digitalocean client: %w", err)
	}
	return client, nil
}
