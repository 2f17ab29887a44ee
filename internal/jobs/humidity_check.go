package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dakar-humidity/alert-gateway/internal/alert"
	"github.com/dakar-humidity/alert-gateway/internal/model"
	"github.com/dakar-humidity/alert-gateway/pkg/logger"
	"github.com/dakar-humidity/alert-gateway/pkg/prom"
)

type CheckStatus string

const (
	CheckSkipped     CheckStatus = "skipped"
	CheckNoAlert     CheckStatus = "no_alert"
	CheckAlertSent   CheckStatus = "alert_sent"
	CheckAlertFailed CheckStatus = "alert_failed"
	CheckError       CheckStatus = "error"
)

type CheckResult struct {
	Status         CheckStatus      `json:"status"`
	Humidity       *float64         `json:"humidity,omitempty"`
	Level          model.AlertLevel `json:"level,omitempty"`
	NotificationID *int64           `json:"notification_id,omitempty"`
	Detail         string           `json:"detail,omitempty"`
}

type WeatherFetcher interface {
	Configured() bool
	FetchCurrent(ctx context.Context) (*model.WeatherObservation, error)
}

type Predictor interface {
	Predict(in model.HumidityInput) (float64, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req model.DispatchRequest) (*model.Notification, error)
}

type CheckConfig struct {
	Recipient string
	Timeout   time.Duration
	Evaluator alert.Evaluator
}

// HumidityCheck runs one fetch, predict, alert cycle. Run never fails; every
// problem is logged and reported through CheckResult.
type HumidityCheck struct {
	weather    WeatherFetcher
	predictor  Predictor
	dispatcher Dispatcher
	config     CheckConfig
}

func NewHumidityCheck(weather WeatherFetcher, predictor Predictor, dispatcher Dispatcher, config CheckConfig) *HumidityCheck {
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	return &HumidityCheck{
		weather:    weather,
		predictor:  predictor,
		dispatcher: dispatcher,
		config:     config,
	}
}

func (h *HumidityCheck) Run(ctx context.Context) (result CheckResult) {
	start := time.Now()
	stage := "config"
	recipient := h.config.Recipient

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Humidity check panicked", "stage", stage, "recipient", recipient, "panic", r)
			result = CheckResult{Status: CheckError, Detail: fmt.Sprintf("%s: %v", stage, r)}
		}
		prom.AddCheckRun(string(result.Status), time.Since(start).Seconds())
	}()

	if !h.weather.Configured() || recipient == "" {
		logger.Warn("Humidity check skipped, weather key or alert recipient missing",
			"stage", stage, "weather_configured", h.weather.Configured(), "recipient", recipient)
		return CheckResult{Status: CheckSkipped, Detail: "missing weather api key or alert recipient"}
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	fail := func(err error) CheckResult {
		logger.Error("Humidity check failed", "stage", stage, "recipient", recipient, "error", err)
		return CheckResult{Status: CheckError, Detail: fmt.Sprintf("%s: %v", stage, err)}
	}

	stage = "fetch_weather"
	obs, err := h.weather.FetchCurrent(ctx)
	if err != nil {
		return fail(err)
	}

	stage = "predict"
	humidity, err := h.predictor.Predict(obs.Features())
	if err != nil {
		return fail(err)
	}
	prom.AddPrediction(obs.Region, humidity)
	logger.Info("Humidity predicted", "region", obs.Region, "humidity", humidity, "threshold", h.config.Evaluator.Threshold)

	stage = "evaluate"
	decision := h.config.Evaluator.Evaluate(humidity)
	if !decision.Fires {
		return CheckResult{Status: CheckNoAlert, Humidity: &humidity, Level: decision.Severity}
	}
	logger.Info("Humidity alert triggered", "humidity", humidity, "severity", decision.Severity, "label", decision.Message)

	stage = "dispatch"
	n, err := h.dispatcher.Dispatch(ctx, model.DispatchRequest{
		Message:   alert.AlertMessage(*obs, humidity),
		Recipient: recipient,
		Type:      model.NotificationTypeSMS,
	})
	if err != nil {
		r := fail(err)
		r.Humidity = &humidity
		r.Level = decision.Severity
		return r
	}

	result = CheckResult{Status: CheckAlertSent, Humidity: &humidity, Level: decision.Severity, NotificationID: &n.ID}
	if n.Status == model.NotificationStatusFailed {
		result.Status = CheckAlertFailed
		if n.ErrorDetail != nil {
			result.Detail = *n.ErrorDetail
		}
		logger.Warn("Humidity alert not delivered", "stage", stage, "recipient", recipient,
			"notification_id", n.ID, "error", result.Detail)
	}
	return result
}
