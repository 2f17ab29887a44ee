package handlers

import (
	"context"

	"github.com/dakar-humidity/alert-gateway/internal/jobs"
	"github.com/dakar-humidity/alert-gateway/internal/model"
	xhttp "github.com/dakar-humidity/alert-gateway/pkg/http"
)

type HumidityService interface {
	Predict(ctx context.Context, in model.HumidityInput) (*model.HumidityPrediction, error)
}

type HumidityCheck interface {
	Run(ctx context.Context) jobs.CheckResult
}

type HumidityHandler struct {
	svc   HumidityService
	check HumidityCheck
}

func RegisterHumidityRoutes(r *xhttp.Router, h *HumidityHandler) {
	g := r.Group("/humidity")
	g.POST("/predict", h.Predict)
	g.POST("/check-dakar-now", h.CheckNow)
}

func NewHumidityHandler(svc HumidityService, check HumidityCheck) *HumidityHandler {
	return &HumidityHandler{svc: svc, check: check}
}

func (h *HumidityHandler) Predict(ctx *xhttp.RequestCtx) {
	var in model.HumidityInput
	if err := readJSON(ctx, &in); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	// any scoring failure is the caller's input
	prediction, err := h.svc.Predict(ctx, in)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, prediction)
}

// CheckNow runs the periodic check synchronously. It always answers 200.
func (h *HumidityHandler) CheckNow(ctx *xhttp.RequestCtx) {
	result := h.check.Run(ctx)
	writeJSON(ctx, xhttp.StatusOK, result)
}
