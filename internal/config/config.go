package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/dakar-humidity/alert-gateway/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every setting the binaries read. Nothing else in the
// module should touch the environment directly.
type Config struct {
	AppEnv   string `env:"APP_ENV,default=dev"`
	AppName  string `env:"APP_NAME,default=humidity_alert_gateway"`
	AppDebug bool   `env:"APP_DEBUG,default=false"`

	HttpListenAddr         string        `env:"HTTP_LISTEN_ADDR,default=:8000"`
	HttpServerReadTimeout  time.Duration `env:"HTTP_SERVER_READ_TIMEOUT,default=10s"`
	HttpServerWriteTimeout time.Duration `env:"HTTP_SERVER_WRITE_TIMEOUT,default=30s"`

	PromNamespace  string `env:"PROM_NAMESPACE,default=humidity"`
	PromListenAddr string `env:"PROM_LISTEN_ADDR"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT,default=5432"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT,default=5432"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr      string `env:"REDIS_ADDR"`
	RedisUsername  string `env:"REDIS_USER"`
	RedisPassword  string `env:"REDIS_PASS"`
	RedisDatabase  int    `env:"REDIS_DATABASE,default=0"`
	RedisKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	OpenWeatherAPIKey  string  `env:"OPENWEATHER_API_KEY"`
	OpenWeatherBaseURL string  `env:"OPENWEATHER_BASE_URL,default=https://api.openweathermap.org"`
	WeatherLat         float64 `env:"WEATHER_LAT,default=14.6937"`
	WeatherLon         float64 `env:"WEATHER_LON,default=-17.44406"`
	WeatherRegion      string  `env:"WEATHER_REGION,default=Dakar"`
	WeatherDepartement string  `env:"WEATHER_DEPARTEMENT,default=Dakar"`

	AlertPhone             string        `env:"ALERT_PHONE"`
	HumidityAlertThreshold float64       `env:"HUMIDITY_ALERT_THRESHOLD,default=80"`
	HumidityCheckSchedule  string        `env:"HUMIDITY_CHECK_SCHEDULE,default=@hourly"`
	HumidityCheckTimeout   time.Duration `env:"HUMIDITY_CHECK_TIMEOUT,default=2m"`

	TwilioAccountSID string        `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string        `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string        `env:"TWILIO_FROM_NUMBER"`
	TwilioBaseURL    string        `env:"TWILIO_BASE_URL,default=https://api.twilio.com"`
	SmsSendTimeout   time.Duration `env:"SMS_SEND_TIMEOUT,default=15s"`
	SmsRatePerSecond float64       `env:"SMS_RATE_PER_SECOND,default=1"`

	ModelPath string `env:"MODEL_PATH,default=models/humidity_model.json"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to Configuration object")
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

// Set installs c as the process configuration. Tests use it instead of Load.
func Set(c *Config) { config = c }
