// Package httpapi exposes the front desk service over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"zenstay/internal/core"
)

// Option configures the router.
type Option func(*options)

type options struct {
	logger      core.Logger
	metrics     http.Handler
	stream      http.Handler
	rateLimit   float64
	rateBurst   int
	corsOrigins []string
}

// WithLogger sets the request logger.
func WithLogger(logger core.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsHandler serves h on /metrics instead of the default registry.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) {
		if h != nil {
			o.metrics = h
		}
	}
}

// WithNotificationStream mounts h, usually an events.Hub, on the websocket
// notification route.
func WithNotificationStream(h http.Handler) Option {
	return func(o *options) { o.stream = h }
}

// WithRateLimit limits mutating requests to rps with the given burst.
// A zero rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rateLimit = rps
		o.rateBurst = burst
	}
}

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins []string) Option {
	return func(o *options) { o.corsOrigins = origins }
}

// Handler serves the API routes.
type Handler struct {
	svc      *core.Service
	logger   core.Logger
	validate *validator.Validate
	limiter  *rate.Limiter
}

// NewRouter builds the HTTP routes for svc.
func NewRouter(svc *core.Service, opts ...Option) http.Handler {
	cfg := options{
		logger:      discard{},
		metrics:     promhttp.Handler(),
		corsOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	h := &Handler{svc: svc, logger: cfg.logger, validate: validator.New()}
	if cfg.rateLimit > 0 {
		burst := cfg.rateBurst
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.rateLimit), burst)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", cfg.metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", h.getState)
		r.Get("/rooms", h.listRooms)
		r.Get("/guests", h.listGuests)
		r.Get("/guests/export.xlsx", h.exportGuests)
		r.Get("/settings", h.getSettings)
		r.Get("/reports/occupancy", h.occupancyReport)
		r.Get("/verify", h.verify)
		if cfg.stream != nil {
			r.Method(http.MethodGet, "/notifications/ws", cfg.stream)
		}

		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Post("/bookings", h.addBooking)
			r.Post("/guests/{id}/checkout", h.checkoutGuest)
			r.Post("/guests/{id}/extend", h.extendStay)
			r.Patch("/beds/{id}", h.updateBed)
			r.Put("/beds/{id}/fields", h.setBedFields)
			r.Post("/rooms/batch", h.batchAddRooms)
			r.Delete("/rooms/{id}", h.deleteRoom)
			r.Post("/rooms/{id}/recompute-policy", h.recomputeRoomPolicy)
			r.Put("/settings", h.saveSettings)
		})
	})
	return r
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	if h.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type discard struct{}

func (discard) Debug(string, ...any) {}
func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}
