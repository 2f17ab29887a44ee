package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dakar-humidity/alert-gateway/internal/app"
	"github.com/dakar-humidity/alert-gateway/internal/config"
	"github.com/dakar-humidity/alert-gateway/internal/handlers"
	xhttp "github.com/dakar-humidity/alert-gateway/pkg/http"
	"github.com/dakar-humidity/alert-gateway/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := config.Load(app.EnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting api", "version", version, "commit", commit, "date", date)

	a, err := app.Build(cfg)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		return
	}

	if err = app.StartMetrics(cfg); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	// check-dakar-now waits for the whole cycle, send_sms for the provider
	requestTimeout := max(cfg.HumidityCheckTimeout, cfg.SmsSendTimeout) + 5*time.Second

	opt := xhttp.DefaultServerOption
	opt.Name = cfg.AppName
	opt.ReadTimeout = cfg.HttpServerReadTimeout
	opt.WriteTimeout = max(cfg.HttpServerWriteTimeout, requestTimeout+5*time.Second)
	opt.ReadBufferSize = 1024 * 16
	opt.WriteBufferSize = 1024 * 16

	s := xhttp.NewServer(opt)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(requestTimeout))

	handlers.RegisterHealthRoutes(s.Router, handlers.NewHealthHandler(a.DB, a.SMS))
	handlers.RegisterHumidityRoutes(s.Router, handlers.NewHumidityHandler(a.Humidity, a.Check))
	handlers.RegisterNotificationRoutes(s.Router, handlers.NewNotificationHandler(a.Notifications))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
			c <- syscall.SIGTERM
		}
	}()

	<-c
	s.Shutdown()
}
