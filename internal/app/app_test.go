package app_test

import (
	"context"
	"os"
	"testing"

	"github.com/dakar-humidity/alert-gateway/internal/app"
	"github.com/dakar-humidity/alert-gateway/internal/config"
	"github.com/dakar-humidity/alert-gateway/internal/jobs"
	"github.com/dakar-humidity/alert-gateway/internal/model"
	"github.com/dakar-humidity/alert-gateway/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                 "test",
		AppName:                "humidity_alert_gateway",
		ModelPath:              "../../models/humidity_model.json",
		HumidityAlertThreshold: 80,
		WeatherRegion:          "Dakar",
		WeatherDepartement:     "Dakar",
	}
}

func TestBuildWithDB(t *testing.T) {
	a, err := app.BuildWithDB(testConfig(), helpers.SetupTestDB(t))
	require.NoError(t, err)

	t.Run("scores with the bundled model", func(t *testing.T) {
		p, err := a.Humidity.Predict(context.Background(), model.HumidityInput{
			Region:      "Dakar",
			Departement: "Dakar",
			Weather:     "overcast clouds",
			Temperature: 27,
			WindSpeed:   4,
			Date:        "2024-08-15 14:00:00",
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p.Humidity, 0.0)
		assert.LessOrEqual(t, p.Humidity, 100.0)
		assert.NotEmpty(t, p.Level)
	})

	t.Run("check skips without credentials", func(t *testing.T) {
		result := a.Check.Run(context.Background())
		assert.Equal(t, jobs.CheckSkipped, result.Status)
	})

	t.Run("dispatch reports missing sms configuration", func(t *testing.T) {
		_, err := a.Notifications.Dispatch(context.Background(), model.DispatchRequest{
			Message:   "test",
			Recipient: "+221770000000",
			Type:      model.NotificationTypeSMS,
		})
		assert.ErrorIs(t, err, model.ErrConfiguration)

		_, total, err := a.Notifications.List(context.Background(), model.NotificationFilter{Limit: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestBuildWithDBMissingModel(t *testing.T) {
	cfg := testConfig()
	cfg.ModelPath = "does-not-exist.json"

	_, err := app.BuildWithDB(cfg, helpers.SetupTestDB(t))
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestRedisDisabledWithoutAddr(t *testing.T) {
	r, err := app.Redis(testConfig())
	assert.NoError(t, err)
	assert.Nil(t, r)
}

func TestEnvPath(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "*.env")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	args := os.Args
	defer func() { os.Args = args }()

	os.Args = []string{"api", "--env=" + f.Name()}
	assert.Equal(t, f.Name(), app.EnvPath())

	os.Args = []string{"api", "--env=/nonexistent/.env"}
	assert.Empty(t, app.EnvPath())

	os.Args = []string{"api"}
	assert.Empty(t, app.EnvPath())
}
