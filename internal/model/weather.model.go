package model

import "time"

// DateLayout is the timestamp layout the model was trained on.
const DateLayout = "2006-01-02 15:04:05"

// WeatherObservation is the current conditions for the watched location,
// already shaped as prediction features.
type WeatherObservation struct {
	Region      string    `json:"region"`
	Departement string    `json:"departement"`
	Weather     string    `json:"weather"`
	Temperature float64   `json:"temperature"`
	WindSpeed   float64   `json:"wind_speed"`
	Date        string    `json:"date"`
	ObservedAt  time.Time `json:"-"`
}

// Features converts the observation into model input.
func (o WeatherObservation) Features() HumidityInput {
	return HumidityInput{
		Region:      o.Region,
		Departement: o.Departement,
		Weather:     o.Weather,
		Temperature: o.Temperature,
		WindSpeed:   o.WindSpeed,
		Date:        o.Date,
	}
}
