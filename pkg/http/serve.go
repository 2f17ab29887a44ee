package xhttp

import (
	"net"
	"reflect"
	"runtime"
	"slices"
	"time"

	"github.com/dakar-humidity/alert-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

type Server = fasthttp.Server

type ServerOption struct {
	Name string

	// idle keep-alive connections are closed after this long
	IdleTimeout time.Duration

	// MaxRequestBodySize guards against oversized bodies. Default is 4MB.
	MaxRequestBodySize int

	ReadBufferSize  int
	WriteBufferSize int

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing the response. It must cover the slowest
	// handler, which waits on the SMS provider.
	WriteTimeout time.Duration

	Concurrency   int
	MaxConnsPerIP int

	ErrorHandler func(ctx *RequestCtx, err error)
}

var DefaultServerOption = ServerOption{
	IdleTimeout:        time.Second * 10,
	MaxRequestBodySize: 4 * 1024 * 1024,
	ReadBufferSize:     1024 * 4, // also, max header size
	WriteBufferSize:    1024 * 4,
	ReadTimeout:        time.Second * 10,
	WriteTimeout:       time.Second * 30,
	Concurrency:        10_000,
	MaxConnsPerIP:      1_000,
	ErrorHandler: func(ctx *RequestCtx, err error) {
		logger.Warn("[xhttp] request error", "error", err)
	},
}

type Engine struct {
	*Router
	*Server
	option ServerOption
	middle []MiddlewareFunc
}

func newServer(options ServerOption) *fasthttp.Server {
	return &fasthttp.Server{
		Name:                  options.Name,
		ErrorHandler:          options.ErrorHandler,
		Concurrency:           options.Concurrency,
		ReadBufferSize:        options.ReadBufferSize,
		WriteBufferSize:       options.WriteBufferSize,
		ReadTimeout:           options.ReadTimeout,
		WriteTimeout:          options.WriteTimeout,
		IdleTimeout:           options.IdleTimeout,
		MaxConnsPerIP:         options.MaxConnsPerIP,
		MaxRequestBodySize:    options.MaxRequestBodySize,
		NoDefaultServerHeader: true,
		NoDefaultContentType:  true,
		CloseOnShutdown:       true,
		Logger:                logger.GetLogger(),
	}
}

func NewServer(options ServerOption) *Engine {
	return &Engine{
		Server: newServer(options),
		Router: CreateDefaultRouter(),
		option: options,
	}
}

func CreateServer() *Engine {
	return NewServer(DefaultServerOption)
}

func (e *Engine) ListenAndServe(addr string) error {
	if err := e.DoRouting(); err != nil {
		return err
	}
	logger.Info("[xhttp] server is listening", "addr", addr)
	return e.Server.ListenAndServe(addr)
}

// Serve is ListenAndServe on an existing listener.
func (e *Engine) Serve(ln net.Listener) error {
	if err := e.DoRouting(); err != nil {
		return err
	}
	return e.Server.Serve(ln)
}

// DoRouting installs the router as the server handler, wrapped by the
// middlewares in the order they were added with Use.
func (e *Engine) DoRouting() error {
	for method, route := range e.Router.List() {
		for _, r := range route {
			logger.Debug("[xhttp] route registered", "method", method, "path", r)
		}
	}
	handler := e.Router.Handler
	middle := slices.Clone(e.middle)
	slices.Reverse(middle)
	for i, m := range middle {
		handler = m(handler)
		logger.Debug("[xhttp] middleware registered", "index", len(middle)-i, "name", runtime.FuncForPC(reflect.ValueOf(m).Pointer()).Name())
	}
	e.Server.Handler = handler
	return nil
}

// Handler returns the routed handler without starting a listener.
func (e *Engine) Handler() RequestHandler {
	_ = e.DoRouting()
	return e.Server.Handler
}

// Use adds middleware to the end of the chain. The first middleware added
// sees the request first.
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
}

// Shutdown gracefully shuts down the server without interrupting any active connections.
func (e *Engine) Shutdown() {
	logger.Info("[xhttp] server is shutting down")
	if err := e.Server.Shutdown(); err != nil {
		logger.Warn("[xhttp] error while shutting down", "error", err)
	}
}
