package model

import (
	"fmt"
	"strings"
)

type HumidityInput struct {
	Region      string  `json:"region"`
	Departement string  `json:"departement"`
	Weather     string  `json:"weather"`
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"wind_speed"`
	Date        string  `json:"date"`
}

func (in HumidityInput) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Region) == "" {
		missing = append(missing, "region")
	}
	if strings.TrimSpace(in.Departement) == "" {
		missing = append(missing, "departement")
	}
	if strings.TrimSpace(in.Date) == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// AlertLevel is the severity tier shown for a humidity value.
type AlertLevel string

const (
	AlertLevelDanger  AlertLevel = "danger"
	AlertLevelWarning AlertLevel = "warning"
	AlertLevelSuccess AlertLevel = "success"
	AlertLevelInfo    AlertLevel = "info"
)

type HumidityPrediction struct {
	Humidity float64    `json:"humidity"`
	Alert    string     `json:"alert"`
	Level    AlertLevel `json:"level"`
}
