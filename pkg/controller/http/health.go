package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/breakwatch/pkg/domain/types"
	"github.com/m-mizutani/ctxlog"
)

// newHealthHandler returns a health check handler reporting the server start time
func newHealthHandler(startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := &model.HealthStatus{
			Status:    "healthy",
			Service:   types.ServiceName,
			Version:   types.Version,
			StartedAt: startedAt,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			ctxlog.From(r.Context()).Error("Failed to encode health response", "error", err)
		}
	}
}
