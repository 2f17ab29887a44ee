package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dakar-humidity/alert-gateway/internal/model"
	"github.com/dakar-humidity/alert-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org"

type WeatherConfig struct {
	APIKey      string
	BaseURL     string
	Lat         float64
	Lon         float64
	Region      string
	Departement string
	Timeout     time.Duration
}

// WeatherClient fetches current conditions for a fixed location from OpenWeather.
type WeatherClient struct {
	config WeatherConfig
	client *fasthttp.Client
}

func NewWeatherClient(config WeatherConfig, client *fasthttp.Client) *WeatherClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultOpenWeatherBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &fasthttp.Client{
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
		}
	}
	return &WeatherClient{config: config, client: client}
}

func (c *WeatherClient) Configured() bool { return c.config.APIKey != "" }

type currentWeather struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt       int64  `json:"dt"`
	Timezone int    `json:"timezone"`
	Message  string `json:"message"`
}

// FetchCurrent returns the current observation mapped to model features.
func (c *WeatherClient) FetchCurrent(ctx context.Context) (*model.WeatherObservation, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: missing OPENWEATHER_API_KEY", model.ErrConfiguration)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + "/data/2.5/weather")
	req.Header.SetMethod(fasthttp.MethodGet)
	q := req.URI().QueryArgs()
	q.Set("lat", fmt.Sprintf("%g", c.config.Lat))
	q.Set("lon", fmt.Sprintf("%g", c.config.Lon))
	q.Set("appid", c.config.APIKey)
	q.Set("units", "metric")

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}

	var body currentWeather
	if resp.StatusCode() != fasthttp.StatusOK {
		msg := strings.TrimSpace(string(resp.Body()))
		if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
			msg = body.Message
		}
		return nil, fmt.Errorf("unexpected status code: %d, message: %s", resp.StatusCode(), msg)
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weather response: %w", err)
	}

	observedAt := time.Now()
	if body.Dt > 0 {
		observedAt = time.Unix(body.Dt, 0)
	}
	observedAt = observedAt.In(time.FixedZone("", body.Timezone))

	weather := ""
	if len(body.Weather) > 0 {
		weather = body.Weather[0].Description
	}

	obs := &model.WeatherObservation{
		Region:      c.config.Region,
		Departement: c.config.Departement,
		Weather:     weather,
		Temperature: body.Main.Temp,
		WindSpeed:   body.Wind.Speed,
		Date:        observedAt.Format(model.DateLayout),
		ObservedAt:  observedAt,
	}

	logger.Debug("Weather fetched", "region", obs.Region, "weather", obs.Weather, "temperature", obs.Temperature)

	return obs, nil
}
