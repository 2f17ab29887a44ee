package xhttp

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

const (
	StatusOK                  = fasthttp.StatusOK
	StatusBadRequest          = fasthttp.StatusBadRequest
	StatusNotFound            = fasthttp.StatusNotFound
	StatusMethodNotAllowed    = fasthttp.StatusMethodNotAllowed
	StatusRequestTimeout      = fasthttp.StatusRequestTimeout
	StatusInternalServerError = fasthttp.StatusInternalServerError
	StatusServiceUnavailable  = fasthttp.StatusServiceUnavailable
)

func StatusText(code int) string {
	return fasthttp.StatusMessage(code)
}

func WriteJSON(ctx *RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		status = StatusInternalServerError
		b = []byte(`{"detail":"response encoding failed"}`)
	}
	ctx.Response.Header.SetContentType("application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

// WriteDetail writes the {"detail": msg} error body.
func WriteDetail(ctx *RequestCtx, status int, msg string) {
	WriteJSON(ctx, status, map[string]string{"detail": msg})
}
