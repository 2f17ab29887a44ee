package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(rate float64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return SetupRouter(NewHandler(NewSandbox(rate, 0, 0)))
}

func postMessage(t *testing.T, r *gin.Engine, user string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/2010-04-01/Accounts/AC123/Messages.json", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if user != "" {
		req.SetBasicAuth(user, "token")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateMessage(t *testing.T) {
	form := url.Values{"To": {"+221770000000"}, "From": {"+15005550006"}, "Body": {"alerte"}}

	t.Run("queued", func(t *testing.T) {
		w := postMessage(t, setupRouter(1), "AC123", form)
		require.Equal(t, http.StatusCreated, w.Code)

		var res MessageResource
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.True(t, strings.HasPrefix(res.SID, "SM"))
		assert.Equal(t, "queued", res.Status)
		assert.Nil(t, res.ErrorCode)
	})

	t.Run("failed delivery", func(t *testing.T) {
		w := postMessage(t, setupRouter(0), "AC123", form)
		require.Equal(t, http.StatusCreated, w.Code)

		var res MessageResource
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "failed", res.Status)
		require.NotNil(t, res.ErrorCode)
		assert.Contains(t, failureCodes, *res.ErrorCode)
	})

	t.Run("missing auth", func(t *testing.T) {
		w := postMessage(t, setupRouter(1), "", form)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid number", func(t *testing.T) {
		bad := url.Values{"To": {"0770000000"}, "From": {"+15005550006"}, "Body": {"alerte"}}
		w := postMessage(t, setupRouter(1), "AC123", bad)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var perr ProviderError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &perr))
		assert.Equal(t, 21211, perr.Code)
	})
}

func TestCurrentWeather(t *testing.T) {
	r := setupRouter(1)

	req := httptest.NewRequest(http.MethodGet, "/data/2.5/weather?lat=14.69&lon=-17.44&appid=k&units=metric", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Weather, 1)
	assert.Equal(t, "overcast clouds", body.Weather[0].Description)
	assert.Equal(t, 27.5, body.Main.Temp)

	req = httptest.NewRequest(http.MethodGet, "/data/2.5/weather?lat=14.69&lon=-17.44", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateConfig(t *testing.T) {
	r := setupRouter(1)

	req := httptest.NewRequest(http.MethodPut, "/config", strings.NewReader(`{"weather":"heavy rain","delivery_rate":2}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "heavy rain", body["weather"])
	// out of range rates are ignored
	assert.Equal(t, 1.0, body["delivery_rate"])
}
