// Package app builds the dependency graph shared by the api and scheduler binaries.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/dakar-humidity/alert-gateway/internal/alert"
	"github.com/dakar-humidity/alert-gateway/internal/config"
	gateway "github.com/dakar-humidity/alert-gateway/internal/gateways"
	"github.com/dakar-humidity/alert-gateway/internal/jobs"
	"github.com/dakar-humidity/alert-gateway/internal/predictor"
	"github.com/dakar-humidity/alert-gateway/internal/repository"
	"github.com/dakar-humidity/alert-gateway/internal/services"
	"github.com/dakar-humidity/alert-gateway/pkg/logger"
	"github.com/dakar-humidity/alert-gateway/pkg/pg"
	"github.com/dakar-humidity/alert-gateway/pkg/prom"
	"github.com/dakar-humidity/alert-gateway/pkg/redis"
)

type App struct {
	DB            *pg.DB
	SMS           *gateway.TwilioChannel
	Weather       *gateway.WeatherClient
	Predictor     *predictor.Predictor
	Notifications *services.NotificationService
	Humidity      *services.HumidityService
	Check         *jobs.HumidityCheck
}

func ReadConfig(c *config.Config) pg.Config {
	return pg.Config{
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
	}
}

func WriteConfig(c *config.Config) pg.Config {
	return pg.Config{
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
	}
}

// Build connects to postgres and loads the model artifact. Missing Twilio or
// OpenWeather credentials are not fatal: dispatch and the periodic check
// report them per call.
func Build(c *config.Config) (*App, error) {
	db, err := pg.CreateReadWrite(ReadConfig(c), WriteConfig(c), c.AppEnv == "dev")
	if err != nil {
		return nil, fmt.Errorf("connecting to pg: %w", err)
	}
	return BuildWithDB(c, db)
}

func BuildWithDB(c *config.Config, db *pg.DB) (*App, error) {
	p, err := predictor.Load(c.ModelPath)
	if err != nil {
		return nil, err
	}
	logger.Info("model loaded", "path", c.ModelPath, "model", p.Name())

	sms := gateway.NewTwilioChannel(gateway.TwilioConfig{
		AccountSID:    c.TwilioAccountSID,
		AuthToken:     c.TwilioAuthToken,
		FromNumber:    c.TwilioFromNumber,
		BaseURL:       c.TwilioBaseURL,
		Timeout:       c.SmsSendTimeout,
		RatePerSecond: c.SmsRatePerSecond,
	})
	if err := sms.Validate(); err != nil {
		logger.Warn("sms channel not configured, dispatch will fail", "error", err)
	}

	weather := gateway.NewWeatherClient(gateway.WeatherConfig{
		APIKey:      c.OpenWeatherAPIKey,
		BaseURL:     c.OpenWeatherBaseURL,
		Lat:         c.WeatherLat,
		Lon:         c.WeatherLon,
		Region:      c.WeatherRegion,
		Departement: c.WeatherDepartement,
	}, nil)

	notifications := services.NewNotificationService(
		repository.NewNotificationRepository(db),
		gateway.NewChannels(sms),
		c.SmsSendTimeout,
	)

	check := jobs.NewHumidityCheck(weather, p, notifications, jobs.CheckConfig{
		Recipient: c.AlertPhone,
		Timeout:   c.HumidityCheckTimeout,
		Evaluator: alert.NewEvaluator(c.HumidityAlertThreshold),
	})

	return &App{
		DB:            db,
		SMS:           sms,
		Weather:       weather,
		Predictor:     p,
		Notifications: notifications,
		Humidity:      services.NewHumidityService(p),
		Check:         check,
	}, nil
}

// StartMetrics registers the collectors and, when addr is set, serves them.
func StartMetrics(c *config.Config) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, c.AppEnv, c.PromNamespace); err != nil {
		return fmt.Errorf("creating prometheus metrics: %w", err)
	}
	if c.PromListenAddr != "" {
		go prom.ListenAndServer(c.PromListenAddr, "/metrics")
	}
	return nil
}

// Redis returns nil when REDIS_ADDR is unset.
func Redis(c *config.Config) (redis.RedisAdapter, error) {
	if c.RedisAddr == "" {
		return nil, nil
	}
	return redis.NewRedisAdapter("default", c.RedisKeyPrefix, &redis.Options{
		Addrs:      []string{c.RedisAddr},
		ClientName: c.AppName,
		DB:         c.RedisDatabase,
		Username:   c.RedisUsername,
		Password:   c.RedisPassword,
	})
}

// EnvPath returns the value of --env=path when that file exists.
func EnvPath() string {
	return flagValue("--env=")
}

func flagValue(prefix string) string {
	for _, v := range os.Args[1:] {
		if strings.HasPrefix(v, prefix) {
			p := strings.TrimPrefix(v, prefix)
			if _, err := os.Stat(p); err != nil {
				logger.Error("failed to open the passed file", "path", p, "error", err)
				return ""
			}
			return p
		}
	}
	return ""
}
