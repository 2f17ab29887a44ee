package xhttp

import (
	"strings"
	"time"

	"github.com/dakar-humidity/alert-gateway/pkg/logger"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

const (
	slowThreshold   = 500 * time.Millisecond
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
)

var skipPaths = []string{"/health", "/metrics"}

type MiddlewareFunc func(next RequestHandler) RequestHandler
type RequestCtx = fasthttp.RequestCtx
type RequestHandler = fasthttp.RequestHandler

func TimeoutMiddleware(timeout time.Duration) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return fasthttp.TimeoutWithCodeHandler(next, timeout, `{"detail":"Request Timeout"}`, StatusRequestTimeout)
	}
}

// CompressMiddleware negotiates brotli/gzip/deflate with the client at the given level.
func CompressMiddleware(level int) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return fasthttp.CompressHandlerBrotliLevel(next, level, level)
	}
}

func RecoverMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("[xhttp] panic recovered", "error", err, "path", string(ctx.Path()), "request_id", RequestID(ctx))
				WriteDetail(ctx, StatusInternalServerError, StatusText(StatusInternalServerError))
			}
		}()
		next(ctx)
	}
}

// RequestIDMiddleware propagates X-Request-Id, generating one when absent.
func RequestIDMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		rid := string(ctx.Request.Header.Peek(requestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx.SetUserValue(requestIDKey, rid)
		ctx.Response.Header.Set(requestIDHeader, rid)
		next(ctx)
	}
}

func RequestID(ctx *RequestCtx) string {
	if v, ok := ctx.UserValue(requestIDKey).(string); ok {
		return v
	}
	return string(ctx.Request.Header.Peek(requestIDHeader))
}

func RequestLoggerMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		if shouldSkip(path) {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		latency := time.Since(start)
		status := ctx.Response.StatusCode()
		fields := []any{
			"status", status,
			"method", string(ctx.Method()),
			"path", path,
			"latency", latency.String(),
			"bytes_in", len(ctx.PostBody()),
			"bytes_out", len(ctx.Response.Body()),
			"ip", ctx.RemoteIP().String(),
			"request_id", RequestID(ctx),
		}

		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400 || latency > slowThreshold:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	}
}

func shouldSkip(p string) bool {
	for _, sp := range skipPaths {
		if strings.HasPrefix(p, sp) {
			return true
		}
	}
	return false
}
