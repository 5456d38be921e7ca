package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"perpscope/pkg/contracts"
)

// HealthResponse is the healthz payload.
type HealthResponse struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Time    time.Time `json:"time"`
}

// Healthz reports process liveness. It deliberately does not touch the
// upstream providers; a missing key must not fail health checks.
func Healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:  "healthy",
		Version: contracts.Version,
		Time:    time.Now().UTC(),
	})
}
