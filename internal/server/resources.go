package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tfitzpatrick0/openclaw-droplet/internal/logging"
	"github.com/tfitzpatrick0/openclaw-droplet/internal/provisioning"

	"go.uber.org/zap"
)

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	result, err := s.manager.Create(r.Context())
	if err != nil {
		status, msg := mapError(err)
		respondError(w, status, msg)
		return
	}

	respondJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "droplet not found")
		return
	}

	resource, err := s.manager.Status(r.Context(), id)
	if err != nil {
		status, msg := mapError(err)
		respondError(w, status, msg)
		return
	}

	respondJSON(w, http.StatusOK, resource)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.manager.List())
}

// mapError translates the provisioning error taxonomy into an HTTP
// status and caller-facing message. Provider rejections surface the
// provider's own message; transport faults stay generic.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, provisioning.ErrNotFound):
		return http.StatusNotFound, "droplet not found"
	case errors.Is(err, provisioning.ErrNoToken):
		return http.StatusInternalServerError, provisioning.ErrNoToken.Error()
	}

	var providerErr *provisioning.ProviderError
	if errors.As(err, &providerErr) {
		return http.StatusInternalServerError, providerErr.Message
	}

	logging.Logger().Error("request failed", zap.Error(err))
	return http.StatusInternalServerError, "failed to reach provider"
}
