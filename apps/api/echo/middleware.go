package echoapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

// authorityMiddleware only lets the registry authority through.
func authorityMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAuthority {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func corsMiddleware(origins []string) echo.MiddlewareFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
	return echo.WrapMiddleware(c.Handler)
}

type httpMetrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	sockets   prometheus.Gauge
}

var (
	metricsMu sync.Mutex
	metrics   = make(map[prometheus.Registerer]*httpMetrics)
)

// metricsFor registers the HTTP metrics once per registerer.
func metricsFor(reg prometheus.Registerer) *httpMetrics {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if m, ok := metrics[reg]; ok {
		return m
	}
	factory := promauto.With(reg)
	m := &httpMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "route", "status"},
		),
		durations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "registry_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		sockets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "registry_api_block_subscribers",
			Help: "Number of open block websocket connections",
		}),
	}
	metrics[reg] = m
	return m
}

func metricsMiddleware(reg prometheus.Registerer) echo.MiddlewareFunc {
	m := metricsFor(reg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				// commit the error response so its status is the one recorded
				ctx.Error(err)
			}

			route := ctx.Path()
			status := strconv.Itoa(ctx.Response().Status)
			m.requests.WithLabelValues(ctx.Request().Method, route, status).Inc()
			m.durations.WithLabelValues(ctx.Request().Method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

const (
	maxRateClients = 10000
	rateClientIdle = 10 * time.Minute
)

type clientLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// clientLimiters keeps one limiter per client. Once it holds max clients, idle ones are dropped,
// and the whole set is reset when none is idle.
type clientLimiters struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	max     int
}

func newClientLimiters(limit float64, burst, max int) *clientLimiters {
	return &clientLimiters{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(limit),
		burst:   burst,
		max:     max,
	}
}

func (cl *clientLimiters) get(key string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := time.Now()
	if c, ok := cl.clients[key]; ok {
		c.seen = now
		return c.lim
	}
	if len(cl.clients) >= cl.max {
		for k, c := range cl.clients {
			if now.Sub(c.seen) > rateClientIdle {
				delete(cl.clients, k)
			}
		}
		if len(cl.clients) >= cl.max {
			cl.clients = make(map[string]*clientLimiter)
		}
	}
	c := &clientLimiter{lim: rate.NewLimiter(cl.limit, cl.burst), seen: now}
	cl.clients[key] = c
	return c.lim
}

// rateLimitMiddleware limits the writes of every client IP; reads are not limited.
func rateLimitMiddleware(limit float64, burst int) echo.MiddlewareFunc {
	if limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if burst <= 0 {
		burst = int(limit)*2 + 1
	}
	limiters := newClientLimiters(limit, burst, maxRateClients)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			switch ctx.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(ctx)
			}
			if !limiters.get(ctx.RealIP()).Allow() {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
