// Package middleware holds the HTTP middleware stack: request logging, panic
// recovery, security headers and the post cache layer.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/conneroisu/quill/internal/errors"
	"github.com/conneroisu/quill/internal/logging"
)

// MiddlewareChain manages the HTTP middleware stack.
//
// Middlewares wrap each other in the order they were added: the first one
// added is the outermost, so a request flows first -> last -> handler and the
// response flows back the other way.
type MiddlewareChain struct {
	logger      logging.Logger
	middlewares []Middleware
}

// MiddlewareDependencies contains all dependencies needed for middleware construction
type MiddlewareDependencies struct {
	Logger logging.Logger
}

// NewMiddlewareChain creates a chain with the default stack: logging,
// recovery and security headers.
func NewMiddlewareChain(deps MiddlewareDependencies) *MiddlewareChain {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}

	chain := &MiddlewareChain{
		logger:      deps.Logger.WithComponent("http"),
		middlewares: make([]Middleware, 0, 4),
	}
	chain.buildDefaultStack()
	return chain
}

func (mc *MiddlewareChain) buildDefaultStack() {
	mc.AddMiddleware(Logging(mc.logger))
	mc.AddMiddleware(Recover(mc.logger))
	mc.AddMiddleware(SecurityHeaders())
}

// AddMiddleware appends a middleware inside the ones already added.
func (mc *MiddlewareChain) AddMiddleware(middleware Middleware) {
	mc.middlewares = append(mc.middlewares, middleware)
}

// Apply wraps handler with every middleware in the chain.
func (mc *MiddlewareChain) Apply(handler http.Handler) http.Handler {
	if handler == nil {
		panic("MiddlewareChain.Apply: handler cannot be nil")
	}

	wrapped := handler
	for i := len(mc.middlewares) - 1; i >= 0; i-- {
		middleware := mc.middlewares[i]
		if middleware == nil {
			panic(fmt.Sprintf("MiddlewareChain.Apply: middleware at index %d is nil", i))
		}
		wrapped = middleware(wrapped)
	}
	return wrapped
}

// GetMiddlewareCount returns the number of middlewares in the chain
func (mc *MiddlewareChain) GetMiddlewareCount() int {
	return len(mc.middlewares)
}

// Logging logs one line per request with method, path, status and duration.
func Logging(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			logger.Info(r.Context(), "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds())
		})
	}
}

// Recover turns a panicking handler into a 500 response.
func Recover(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := errors.NewInternalError(errors.ErrCodeInternalError, "handler panicked", fmt.Errorf("panic: %v", rec)).
					WithPath(r.URL.Path).
					WithComponent("middleware")
				logger.Error(r.Context(), err, "Handler panicked",
					"path", r.URL.Path,
					"stack", string(debug.Stack()))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets conservative response headers on every request.
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}
