package predictor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dakar-humidity/alert-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArtifact() Artifact {
	var a Artifact
	a.FeatureColumns = []string{"region_code", "departement_code", "weather_code", "temperature", "wind_speed", "mois", "jour", "heure"}
	a.Encoders.Region = map[string]int{"Dakar": 0, "Thies": 1}
	a.Encoders.Departement = map[string]int{"Dakar": 0, "Mbour": 1}
	a.Encoders.Weather = map[string]int{"clear sky": 0, "light rain": 5}
	a.Model.Intercept = 10
	// humidity = 10 + 2*weather + temperature + mois + heure
	a.Model.Coefficients = []float64{0, 0, 2, 1, 0, 1, 0, 1}
	return a
}

func dakarInput() model.HumidityInput {
	return model.HumidityInput{
		Region:      "Dakar",
		Departement: "Dakar",
		Weather:     "light rain",
		Temperature: 25,
		WindSpeed:   3,
		Date:        "2024-06-15 12:00:00",
	}
}

func TestPredict(t *testing.T) {
	p, err := New(testArtifact())
	require.NoError(t, err)

	t.Run("linear head over encoded features", func(t *testing.T) {
		h, err := p.Predict(dakarInput())
		require.NoError(t, err)
		// 10 + 2*5 + 25 + 6 + 12
		assert.InDelta(t, 63.0, h, 1e-9)
	})

	t.Run("unknown weather uses default code", func(t *testing.T) {
		in := dakarInput()
		in.Weather = "sandstorm"
		h, err := p.Predict(in)
		require.NoError(t, err)
		assert.InDelta(t, 61.0, h, 1e-9)
	})

	t.Run("accepts other date layouts", func(t *testing.T) {
		for _, date := range []string{"2024-06-15T12:00:00Z", "2024-06-15T12:00:00"} {
			in := dakarInput()
			in.Date = date
			h, err := p.Predict(in)
			require.NoError(t, err, date)
			assert.InDelta(t, 63.0, h, 1e-9, date)
		}

		in := dakarInput()
		in.Date = "2024-06-15"
		h, err := p.Predict(in)
		require.NoError(t, err)
		assert.InDelta(t, 51.0, h, 1e-9)
	})

	t.Run("output is clamped", func(t *testing.T) {
		in := dakarInput()
		in.Temperature = 500
		h, err := p.Predict(in)
		require.NoError(t, err)
		assert.Equal(t, 100.0, h)

		in.Temperature = -500
		h, err = p.Predict(in)
		require.NoError(t, err)
		assert.Equal(t, 0.0, h)
	})

	t.Run("validation errors", func(t *testing.T) {
		cases := map[string]func(*model.HumidityInput){
			"unknown region":      func(in *model.HumidityInput) { in.Region = "Paris" },
			"unknown departement": func(in *model.HumidityInput) { in.Departement = "Lyon" },
			"bad date":            func(in *model.HumidityInput) { in.Date = "yesterday" },
			"missing region":      func(in *model.HumidityInput) { in.Region = "" },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				in := dakarInput()
				mutate(&in)
				_, err := p.Predict(in)
				assert.ErrorIs(t, err, model.ErrValidation)
			})
		}
	})
}

func TestPredict_Scaler(t *testing.T) {
	a := testArtifact()
	a.Scaler = &Scaler{
		Mean:  []float64{0, 0, 0, 20, 0, 0, 0, 0},
		Scale: []float64{1, 1, 1, 5, 1, 1, 1, 1},
	}
	p, err := New(a)
	require.NoError(t, err)

	h, err := p.Predict(dakarInput())
	require.NoError(t, err)
	// temperature scaled to (25-20)/5 = 1
	assert.InDelta(t, 39.0, h, 1e-9)
}

func TestNew_RejectsInconsistentArtifact(t *testing.T) {
	a := testArtifact()
	a.Model.Coefficients = a.Model.Coefficients[:3]
	_, err := New(a)
	assert.ErrorIs(t, err, model.ErrConfiguration)

	a = testArtifact()
	a.FeatureColumns[0] = "pressure"
	_, err = New(a)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestLoad(t *testing.T) {
	t.Run("bundled artifact", func(t *testing.T) {
		p, err := Load(filepath.Join("..", "..", "models", "humidity_model.json"))
		require.NoError(t, err)
		assert.Equal(t, "linear_regression", p.Name())

		h, err := p.Predict(dakarInput())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, h, 0.0)
		assert.LessOrEqual(t, h, 100.0)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		_, err := Load(path)
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})
}
