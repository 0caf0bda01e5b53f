package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/rescuerespond/rescuerespond/internal/caltopo"
	"github.com/rescuerespond/rescuerespond/internal/client"
)

// ipLimiter keeps a token bucket per client address.
type ipLimiter struct {
	mx       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}

	return &ipLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *ipLimiter) Allow(ip string) bool {
	l.mx.Lock()
	defer l.mx.Unlock()

	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}

	return lim.Allow()
}

func getCreateMapHandler(app *App) fiber.Handler {
	limiter := newIPLimiter(app.config.MapRatePerMinute())
	logger := app.logger.With("logger", "maps")

	return func(c *fiber.Ctx) error {
		if !limiter.Allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(client.MapAnswer{Error: "Too many map requests, try again in a minute."})
		}

		if app.mapper == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(client.MapAnswer{Error: "Map service is not configured."})
		}

		var req caltopo.MapRequest

		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(client.MapAnswer{Error: "Invalid request body."})
		}

		if strings.TrimSpace(req.Title) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(client.MapAnswer{Error: "Title is required."})
		}

		m, err := app.mapper.CreateMap(c.UserContext(), req)
		if err != nil {
			logger.Error("map creation failed", slog.String("title", req.Title), slog.Any("error", err))

			return c.Status(fiber.StatusInternalServerError).JSON(client.MapAnswer{Error: "An internal error occurred while creating the map."})
		}

		logger.Info("map created", slog.String("id", m.ID), slog.String("user", Username(c)))

		return c.JSON(client.MapAnswer{Success: true, MapID: m.ID, MapURL: m.URL})
	}
}
