package handlers

import (
	"context"

	gateway "github.com/dakar-humidity/alert-gateway/internal/gateways"
	xhttp "github.com/dakar-humidity/alert-gateway/pkg/http"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ProviderStatser interface {
	Stats() gateway.ProviderStats
}

type HealthHandler struct {
	db  Pinger
	sms ProviderStatser
}

func RegisterHealthRoutes(r *xhttp.Router, h *HealthHandler) {
	r.GET("/health", h.GetHealth)
}

// NewHealthHandler accepts nil for either dependency.
func NewHealthHandler(db Pinger, sms ProviderStatser) *HealthHandler {
	return &HealthHandler{db: db, sms: sms}
}

type healthResponse struct {
	Status   string                 `json:"status"`
	Database string                 `json:"database,omitempty"`
	SMS      *gateway.ProviderStats `json:"sms,omitempty"`
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	resp := healthResponse{Status: "ok"}
	status := xhttp.StatusOK

	if h.db != nil {
		resp.Database = "ok"
		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			status = xhttp.StatusServiceUnavailable
		}
	}
	if h.sms != nil {
		stats := h.sms.Stats()
		resp.SMS = &stats
	}

	writeJSON(ctx, status, resp)
}
