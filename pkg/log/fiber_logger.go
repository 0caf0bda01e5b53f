// Package log holds the http access log middleware.
package log

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rescue",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "The latency of the HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"api"})

	httpRequestsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rescue",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of the HTTP requests.",
	}, []string{"api", "route", "method", "code"})
)

type LoggerConfig struct {
	Name       string
	UserGetter func(c *fiber.Ctx) string
	DoMetrics  bool
	// LogErrorsOnly logs 2xx at debug, 3xx at info, the rest at warn.
	LogErrorsOnly bool
	// Skip excludes requests like health checks from the log, not from metrics.
	Skip func(c *fiber.Ctx) bool
}

func (conf *LoggerConfig) level(status int) slog.Level {
	switch {
	case !conf.LogErrorsOnly:
		return slog.LevelInfo
	case status < 300:
		return slog.LevelDebug
	case status < 400:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

func NewFiberLogger(conf *LoggerConfig) fiber.Handler {
	if conf == nil {
		conf = &LoggerConfig{Name: "http"}
	}

	logger := slog.Default().With(slog.String("logger", conf.Name))

	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()
		wt := time.Since(start)

		if conf.DoMetrics {
			metrics(conf.Name, c, wt)
		}

		if conf.Skip != nil && conf.Skip(c) {
			return chainErr
		}

		status := c.Response().StatusCode()

		attrs := []slog.Attr{
			slog.String("client", c.IP()+":"+c.Port()),
			slog.Int("status", status),
			slog.Int64("ms", wt.Milliseconds()),
		}

		if conf.UserGetter != nil {
			if user := conf.UserGetter(c); user != "" {
				attrs = append(attrs, slog.String("user", user))
			}
		}

		if chainErr != nil {
			attrs = append(attrs, slog.Any("error", chainErr))
		}

		msg := fmt.Sprintf("%d %s %s %s", status, c.Method(), c.Path(), c.Request().URI().QueryArgs().String())
		logger.LogAttrs(c.UserContext(), conf.level(status), msg, attrs...)

		return chainErr
	}
}

// metrics labels by route pattern, record ids would blow up the cardinality.
func metrics(api string, ctx *fiber.Ctx, t time.Duration) {
	httpRequestsDuration.With(prometheus.Labels{"api": api}).Observe(t.Seconds())

	route := "unknown"
	if r := ctx.Route(); r != nil {
		route = r.Path
	}

	httpRequestsCount.With(prometheus.Labels{
		"api":    api,
		"route":  route,
		"method": ctx.Method(),
		"code":   strconv.Itoa(ctx.Response().StatusCode()),
	}).Inc()
}
