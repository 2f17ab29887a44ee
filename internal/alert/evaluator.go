// Package alert decides when a predicted humidity warrants a notification
// and how it is presented.
package alert

import (
	"fmt"

	"github.com/dakar-humidity/alert-gateway/internal/model"
)

const DefaultThreshold = 80.0

type Classification struct {
	Label string           `json:"alert"`
	Level model.AlertLevel `json:"level"`
}

// Decision is the outcome of evaluating one humidity value.
type Decision struct {
	Fires    bool
	Message  string
	Severity model.AlertLevel
}

// Evaluator holds the single alert threshold. The zero value uses DefaultThreshold.
type Evaluator struct {
	Threshold float64
}

func NewEvaluator(threshold float64) Evaluator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Evaluator{Threshold: threshold}
}

func (e Evaluator) threshold() float64 {
	if e.Threshold <= 0 {
		return DefaultThreshold
	}
	return e.Threshold
}

// ShouldAlert reports whether humidity is strictly above the threshold.
func (e Evaluator) ShouldAlert(humidity float64) bool {
	return humidity > e.threshold()
}

// Classify maps humidity to fixed display tiers. It does not depend on the threshold.
func Classify(humidity float64) Classification {
	switch {
	case humidity > 80:
		return Classification{Label: "Humidité très élevée : risque de moisissures", Level: model.AlertLevelDanger}
	case humidity > 70:
		return Classification{Label: "Humidité élevée : aérez les pièces", Level: model.AlertLevelWarning}
	case humidity > 50:
		return Classification{Label: "Humidité normale", Level: model.AlertLevelSuccess}
	default:
		return Classification{Label: "Air sec", Level: model.AlertLevelInfo}
	}
}

func (e Evaluator) Evaluate(humidity float64) Decision {
	c := Classify(humidity)
	return Decision{
		Fires:    e.ShouldAlert(humidity),
		Message:  c.Label,
		Severity: c.Level,
	}
}

// AlertMessage builds the SMS text for an alert on obs.
func AlertMessage(obs model.WeatherObservation, humidity float64) string {
	place := obs.Region
	if place == "" {
		place = "DAKAR"
	}
	return fmt.Sprintf("ALERTE HUMIDITÉ %s: %.1f%% ! Risque moisissures. Temp: %.1f°C, Vent: %.1f m/s",
		place, humidity, obs.Temperature, obs.WindSpeed)
}
