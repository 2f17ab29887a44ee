package xhttp

import (
	"github.com/fasthttp/router"
)

type Router = router.Router

// NewRouter returns a new Router
func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a router that answers unknown paths and
// methods with a JSON detail body.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectFixedPath = true
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = MethodNotAllowedHandler
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	return r
}

func NotFoundHandler(ctx *RequestCtx) {
	WriteDetail(ctx, StatusNotFound, StatusText(StatusNotFound))
}

func MethodNotAllowedHandler(ctx *RequestCtx) {
	WriteDetail(ctx, StatusMethodNotAllowed, StatusText(StatusMethodNotAllowed))
}
