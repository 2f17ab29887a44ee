// Package predictor evaluates the humidity regression model exported by the
// training pipeline.
package predictor

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dakar-humidity/alert-gateway/internal/model"
)

const defaultWeatherCode = 4

var dateLayouts = []string{
	model.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Artifact is the on-disk model description.
type Artifact struct {
	FeatureColumns []string `json:"feature_columns"`
	Encoders       Encoders `json:"encoders"`
	Scaler         *Scaler  `json:"scaler,omitempty"`
	Model          Head     `json:"model"`
}

type Encoders struct {
	Region         map[string]int `json:"region_dict"`
	Departement    map[string]int `json:"departement_dict"`
	Weather        map[string]int `json:"weather_order"`
	WeatherDefault *int           `json:"weather_default,omitempty"`
}

// Scaler standardizes features as (x - mean) / scale, per column.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Head is the linear regression layer.
type Head struct {
	Name         string    `json:"name"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// Predictor holds everything needed to predict. It is read-only after Load
// and safe for concurrent use.
type Predictor struct {
	columns        []string
	regions        map[string]int
	departements   map[string]int
	weather        map[string]int
	weatherDefault int
	mean           []float64
	scale          []float64
	intercept      float64
	coefficients   []float64
	name           string
}

func Load(path string) (*Predictor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read model %s: %w", model.ErrConfiguration, path, err)
	}
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: decode model %s: %w", model.ErrConfiguration, path, err)
	}
	return New(a)
}

func New(a Artifact) (*Predictor, error) {
	n := len(a.FeatureColumns)
	if n == 0 {
		return nil, fmt.Errorf("%w: model has no feature columns", model.ErrConfiguration)
	}
	for _, col := range a.FeatureColumns {
		if !knownColumn(col) {
			return nil, fmt.Errorf("%w: unknown feature column %q", model.ErrConfiguration, col)
		}
	}
	if len(a.Model.Coefficients) != n {
		return nil, fmt.Errorf("%w: %d coefficients for %d features", model.ErrConfiguration, len(a.Model.Coefficients), n)
	}

	c := &Predictor{
		columns:        append([]string(nil), a.FeatureColumns...),
		regions:        copyMap(a.Encoders.Region),
		departements:   copyMap(a.Encoders.Departement),
		weather:        copyMap(a.Encoders.Weather),
		weatherDefault: defaultWeatherCode,
		intercept:      a.Model.Intercept,
		coefficients:   append([]float64(nil), a.Model.Coefficients...),
		name:           a.Model.Name,
	}
	if a.Encoders.WeatherDefault != nil {
		c.weatherDefault = *a.Encoders.WeatherDefault
	}
	if a.Scaler != nil {
		if len(a.Scaler.Mean) != n || len(a.Scaler.Scale) != n {
			return nil, fmt.Errorf("%w: scaler does not match %d features", model.ErrConfiguration, n)
		}
		c.mean = append([]float64(nil), a.Scaler.Mean...)
		c.scale = append([]float64(nil), a.Scaler.Scale...)
	}
	return c, nil
}

func (c *Predictor) Name() string { return c.name }

// Predict returns the predicted relative humidity in percent, clamped to [0, 100].
func (c *Predictor) Predict(in model.HumidityInput) (float64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	values, err := c.features(in)
	if err != nil {
		return 0, err
	}

	y := c.intercept
	for i, col := range c.columns {
		x := values[col]
		if c.scale != nil && c.scale[i] != 0 {
			x = (x - c.mean[i]) / c.scale[i]
		}
		y += x * c.coefficients[i]
	}

	if math.IsNaN(y) {
		return 0, fmt.Errorf("%w: prediction is not a number", model.ErrValidation)
	}
	return math.Max(0, math.Min(100, y)), nil
}

func (c *Predictor) features(in model.HumidityInput) (map[string]float64, error) {
	ts, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	region, ok := c.regions[in.Region]
	if !ok {
		return nil, fmt.Errorf("%w: unknown region %q", model.ErrValidation, in.Region)
	}
	departement, ok := c.departements[in.Departement]
	if !ok {
		return nil, fmt.Errorf("%w: unknown departement %q", model.ErrValidation, in.Departement)
	}
	weather, ok := c.weather[in.Weather]
	if !ok {
		weather = c.weatherDefault
	}

	return map[string]float64{
		"region_code":      float64(region),
		"departement_code": float64(departement),
		"weather_code":     float64(weather),
		"temperature":      in.Temperature,
		"wind_speed":       in.WindSpeed,
		"mois":             float64(ts.Month()),
		"jour":             float64(ts.Day()),
		"heure":            float64(ts.Hour()),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", model.ErrValidation, s)
}

func knownColumn(col string) bool {
	switch col {
	case "region_code", "departement_code", "weather_code", "temperature", "wind_speed", "mois", "jour", "heure":
		return true
	}
	return false
}

func copyMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
