package services

import (
	"context"
	"math"

	"github.com/dakar-humidity/alert-gateway/internal/alert"
	"github.com/dakar-humidity/alert-gateway/internal/model"
	"github.com/dakar-humidity/alert-gateway/pkg/prom"
)

type HumidityPredictor interface {
	Predict(in model.HumidityInput) (float64, error)
}

type HumidityService struct {
	predictor HumidityPredictor
}

func NewHumidityService(predictor HumidityPredictor) *HumidityService {
	return &HumidityService{predictor: predictor}
}

// Predict scores in and attaches the display classification.
func (s *HumidityService) Predict(_ context.Context, in model.HumidityInput) (*model.HumidityPrediction, error) {
	h, err := s.predictor.Predict(in)
	if err != nil {
		return nil, err
	}
	h = math.Round(h*10) / 10
	prom.AddPrediction(in.Region, h)

	c := alert.Classify(h)
	return &model.HumidityPrediction{Humidity: h, Alert: c.Label, Level: c.Level}, nil
}
