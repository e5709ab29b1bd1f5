// Package httpapi exposes the conversion service over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fd1az/fxbridge/internal/logger"
)

// RouterConfig holds HTTP routing settings.
type RouterConfig struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
}

// NewRouter wires the conversion routes and the middleware stack.
func NewRouter(h *Handler, cfg RouterConfig, log logger.LoggerInterface) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(log))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(RequestDeadline(cfg.RequestTimeout))
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/convert", h.Convert)

	return otelhttp.NewHandler(r, "fxbridge.http")
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(log logger.LoggerInterface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

// RequestDeadline bounds the request context. It never writes a response;
// the handler reports the failed upstream call itself.
func RequestDeadline(timeout time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
