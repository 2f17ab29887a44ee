package xhttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func newCtx(method, path string) *RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	return ctx
}

func TestEngine_MiddlewareOrder(t *testing.T) {
	e := CreateServer()
	var order []string
	mark := func(name string) MiddlewareFunc {
		return func(next RequestHandler) RequestHandler {
			return func(ctx *RequestCtx) {
				order = append(order, name)
				next(ctx)
			}
		}
	}
	e.Use(mark("first"))
	e.Use(mark("second"))
	e.GET("/ping", func(ctx *RequestCtx) {
		order = append(order, "handler")
		WriteJSON(ctx, StatusOK, map[string]string{"status": "ok"})
	})

	ctx := newCtx("GET", "/ping")
	e.Handler()(ctx)

	assert.Equal(t, []string{"first", "second", "handler"}, order)
	assert.JSONEq(t, `{"status":"ok"}`, string(ctx.Response.Body()))
}

func TestEngine_NotFound(t *testing.T) {
	e := CreateServer()
	e.GET("/ping", func(ctx *RequestCtx) {})

	ctx := newCtx("GET", "/nope")
	e.Handler()(ctx)
	assert.Equal(t, StatusNotFound, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"detail":"Not Found"}`, string(ctx.Response.Body()))

	ctx = newCtx("POST", "/ping")
	e.Handler()(ctx)
	assert.Equal(t, StatusMethodNotAllowed, ctx.Response.StatusCode())
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(ctx *RequestCtx) { panic("boom") })

	ctx := newCtx("GET", "/")
	assert.NotPanics(t, func() { h(ctx) })
	assert.Equal(t, StatusInternalServerError, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "detail")
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(func(ctx *RequestCtx) { seen = RequestID(ctx) })

	ctx := newCtx("GET", "/")
	h(ctx)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, string(ctx.Response.Header.Peek("X-Request-Id")))

	ctx = newCtx("GET", "/")
	ctx.Request.Header.Set("X-Request-Id", "abc")
	h(ctx)
	assert.Equal(t, "abc", seen)
}
