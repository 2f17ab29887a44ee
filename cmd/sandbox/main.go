package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MessageResource is the subset of the Twilio Messages resource the gateway reads.
type MessageResource struct {
	SID          string    `json:"sid"`
	AccountSID   string    `json:"account_sid"`
	To           string    `json:"to"`
	From         string    `json:"from"`
	Body         string    `json:"body"`
	Status       string    `json:"status"`
	ErrorCode    *int      `json:"error_code"`
	ErrorMessage *string   `json:"error_message"`
	DateCreated  time.Time `json:"date_created"`
}

type ProviderError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

type HealthResponse struct {
	Status       string    `json:"status"`
	SandboxID    string    `json:"sandbox_id"`
	Timestamp    time.Time `json:"timestamp"`
	DeliveryRate float64   `json:"delivery_rate"`
	Humidity     float64   `json:"humidity"`
}

// Sandbox stands in for the SMS provider and the weather provider.
type Sandbox struct {
	mu           sync.Mutex
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	sandboxID    string
	rng          *rand.Rand

	weather     string
	temperature float64
	humidity    float64
	windSpeed   float64
	timezone    int
}

func NewSandbox(deliveryRate float64, minDelay, maxDelay time.Duration) *Sandbox {
	return &Sandbox{
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		sandboxID:    "SANDBOX_" + uuid.New().String()[:8],
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		weather:      "overcast clouds",
		temperature:  27.5,
		humidity:     78,
		windSpeed:    4.1,
		timezone:     0, // Africa/Dakar is UTC
	}
}

func (s *Sandbox) randomDelay() time.Duration {
	delta := s.maxDelay - s.minDelay
	if delta <= 0 {
		return s.minDelay
	}
	return s.minDelay + time.Duration(s.rng.Int63n(int64(delta)))
}

func (s *Sandbox) shouldSucceed() bool {
	return s.rng.Float64() < s.deliveryRate
}

var failureCodes = map[int]string{
	30003: "Unreachable destination handset",
	30005: "Unknown destination handset",
	30006: "Landline or unreachable carrier",
	30007: "Message filtered",
	30008: "Unknown error",
}

func (s *Sandbox) randomFailure() (int, string) {
	codes := make([]int, 0, len(failureCodes))
	for c := range failureCodes {
		codes = append(codes, c)
	}
	c := codes[s.rng.Intn(len(codes))]
	return c, failureCodes[c]
}

// simulateSend builds the provider answer for one message.
func (s *Sandbox) simulateSend(accountSID, to, from, body string) *MessageResource {
	s.mu.Lock()
	delay := s.randomDelay()
	ok := s.shouldSucceed()
	var code int
	var msg string
	if !ok {
		code, msg = s.randomFailure()
	}
	s.mu.Unlock()

	time.Sleep(delay)

	res := &MessageResource{
		SID:         "SM" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		AccountSID:  accountSID,
		To:          to,
		From:        from,
		Body:        body,
		Status:      "queued",
		DateCreated: time.Now().UTC(),
	}
	if !ok {
		res.Status = "failed"
		res.ErrorCode = &code
		res.ErrorMessage = &msg
		log.Warn().Str("sid", res.SID).Str("to", to).Int("error_code", code).Msg("SMS delivery failed")
		return res
	}
	log.Info().Str("sid", res.SID).Str("to", to).Dur("delay", delay).Msg("SMS queued")
	return res
}

type Handler struct {
	sandbox *Sandbox
}

func NewHandler(sandbox *Sandbox) *Handler {
	return &Handler{sandbox: sandbox}
}

// CreateMessage mimics POST /2010-04-01/Accounts/{sid}/Messages.json.
func (h *Handler) CreateMessage(c *gin.Context) {
	accountSID := c.Param("sid")
	user, _, hasAuth := c.Request.BasicAuth()
	if !hasAuth || user != accountSID {
		c.JSON(http.StatusUnauthorized, ProviderError{
			Code:    20003,
			Message: "Authenticate",
			Status:  http.StatusUnauthorized,
		})
		return
	}

	to := c.PostForm("To")
	from := c.PostForm("From")
	body := c.PostForm("Body")
	if to == "" || from == "" || body == "" {
		c.JSON(http.StatusBadRequest, ProviderError{
			Code:     21604,
			Message:  "A 'To', 'From' and 'Body' parameter is required.",
			MoreInfo: "https://www.twilio.com/docs/errors/21604",
			Status:   http.StatusBadRequest,
		})
		return
	}
	if !strings.HasPrefix(to, "+") {
		c.JSON(http.StatusBadRequest, ProviderError{
			Code:     21211,
			Message:  fmt.Sprintf("The 'To' number %s is not a valid phone number.", to),
			MoreInfo: "https://www.twilio.com/docs/errors/21211",
			Status:   http.StatusBadRequest,
		})
		return
	}

	res := h.sandbox.simulateSend(accountSID, to, from, body)
	c.JSON(http.StatusCreated, res)
}

// CurrentWeather mimics GET /data/2.5/weather with units=metric.
func (h *Handler) CurrentWeather(c *gin.Context) {
	if c.Query("appid") == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"cod":     401,
			"message": "Invalid API key.",
		})
		return
	}
	lat, lon := c.Query("lat"), c.Query("lon")
	if lat == "" || lon == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"cod":     "400",
			"message": "Nothing to geocode",
		})
		return
	}

	s := h.sandbox
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"coord":   gin.H{"lat": lat, "lon": lon},
		"weather": []gin.H{{"main": "Clouds", "description": s.weather}},
		"main": gin.H{
			"temp":     s.temperature,
			"humidity": s.humidity,
		},
		"wind":     gin.H{"speed": s.windSpeed},
		"dt":       time.Now().Unix(),
		"timezone": s.timezone,
		"name":     "Dakar",
		"cod":      200,
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	s := h.sandbox
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		SandboxID:    s.sandboxID,
		Timestamp:    time.Now(),
		DeliveryRate: s.deliveryRate,
		Humidity:     s.humidity,
	})
}

// UpdateConfig changes the simulated conditions at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeliveryRate *float64 `json:"delivery_rate"`
		Weather      *string  `json:"weather"`
		Temperature  *float64 `json:"temperature"`
		Humidity     *float64 `json:"humidity"`
		WindSpeed    *float64 `json:"wind_speed"`
	}
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	s := h.sandbox
	s.mu.Lock()
	defer s.mu.Unlock()
	if config.DeliveryRate != nil && *config.DeliveryRate >= 0 && *config.DeliveryRate <= 1.0 {
		s.deliveryRate = *config.DeliveryRate
	}
	if config.Weather != nil {
		s.weather = *config.Weather
	}
	if config.Temperature != nil {
		s.temperature = *config.Temperature
	}
	if config.Humidity != nil {
		s.humidity = *config.Humidity
	}
	if config.WindSpeed != nil {
		s.windSpeed = *config.WindSpeed
	}
	log.Info().Float64("delivery_rate", s.deliveryRate).Str("weather", s.weather).Msg("Sandbox configuration updated")

	c.JSON(http.StatusOK, gin.H{
		"delivery_rate": s.deliveryRate,
		"weather":       s.weather,
		"temperature":   s.temperature,
		"humidity":      s.humidity,
		"wind_speed":    s.windSpeed,
	})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	router.POST("/2010-04-01/Accounts/:sid/Messages.json", handler.CreateMessage)
	router.GET("/data/2.5/weather", handler.CurrentWeather)
	router.PUT("/config", handler.UpdateConfig)
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8081")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 100*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 500*time.Millisecond)

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting provider sandbox")

	router := SetupRouter(NewHandler(NewSandbox(deliveryRate, minDelay, maxDelay)))

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
