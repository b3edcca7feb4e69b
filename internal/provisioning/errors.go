package provisioning

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/digitalocean/godo"
)

var (
	// ErrNoToken means no DigitalOcean credential is configured. Creation
	// fails with it before any provider call is attempted.
	ErrNoToken = errors.New("digitalocean token is not configured")

	// ErrNotFound means the provider does not know the droplet id.
	ErrNotFound = errors.New("droplet not found")

	// ErrConvergenceTimeout means the poller exhausted its retry budget
	// before the droplet became active with an address.
	ErrConvergenceTimeout = errors.New("droplet never became active")
)

// ProviderError is a rejection from the DigitalOcean API (non-2xx with a
// parseable body).
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider rejected the request (%d): %s", e.StatusCode, e.Message)
}

// TransportError is a network-level failure talking to the provider.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to reach provider: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Classify maps a godo call error onto the local taxonomy: provider
// rejections become *ProviderError, everything else a *TransportError.
// Returns nil for nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var errResp *godo.ErrorResponse
	if errors.As(err, &errResp) {
		code := 0
		if errResp.Response != nil {
			code = errResp.Response.StatusCode
		}
		msg := errResp.Message
		if msg == "" {
			msg = "unknown provider error"
		}
		return &ProviderError{StatusCode: code, Message: msg}
	}

	return &TransportError{Err: err}
}

// ClassifyFetch is Classify for the read path, where a provider 404
// means the droplet id is simply unknown.
func ClassifyFetch(err error) error {
	var errResp *godo.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return Classify(err)
}
