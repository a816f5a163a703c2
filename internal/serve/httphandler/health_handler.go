package httphandler

import (
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/render/httpjson"
)

// Status indicates whether the service is healthy.
type Status string

const (
	StatusPass Status = "pass"
)

// HealthResponse follows the draft IETF "Health Check Response Format for
// HTTP APIs".
type HealthResponse struct {
	Status    Status `json:"status"`
	Version   string `json:"version,omitempty"`
	ServiceID string `json:"service_id,omitempty"`
	ReleaseID string `json:"release_id,omitempty"`
}

// HealthHandler implements the ambient /health endpoint.
type HealthHandler struct {
	Version   string
	ServiceID string
	ReleaseID string
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpjson.RenderStatus(w, http.StatusOK, HealthResponse{
		Status:    StatusPass,
		Version:   h.Version,
		ServiceID: h.ServiceID,
		ReleaseID: h.ReleaseID,
	}, httpjson.JSON)
}
