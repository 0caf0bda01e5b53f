package main

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rescuerespond/rescuerespond/internal/client"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/log"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

const UsernameKey = "username"

type API struct {
	f    *fiber.App
	addr string
}

func NewAPI(app *App, addr string) *API {
	api := &API{addr: addr}

	api.f = fiber.New(fiber.Config{EnablePrintRoutes: false, DisableStartupMessage: true, BodyLimit: 1024 * 1024})

	api.f.Use(log.NewFiberLogger(&log.LoggerConfig{
		Name:          "api",
		UserGetter:    Username,
		DoMetrics:     true,
		LogErrorsOnly: true,
		Skip: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
	}))

	api.f.Get("/health", getHealthHandler())
	api.f.Get("/metrics", getMetricsHandler())

	g := api.f.Group("/api", getUserAuth(app))

	g.Get("/me", getMeHandler(app))
	g.Get("/users", getUsersHandler(app))
	g.Patch("/users/me", getRenameHandler(app))

	g.Get("/collections/missions/records", getListHandler(app.missions, (*model.Mission).DTO))
	g.Post("/collections/missions/records", adminOnly(app), getMissionCreateHandler(app))
	g.Patch("/collections/missions/records/:id", adminOnly(app), getUpdateHandler(app.missions, (*model.Mission).DTO))
	g.Delete("/collections/missions/records/:id", adminOnly(app), getDeleteHandler(app.missions))

	g.Get("/collections/responses/records", getListHandler(app.responses, (*model.Response).DTO))
	g.Post("/collections/responses/records", getResponseCreateHandler(app))
	g.Patch("/collections/responses/records/:id", getResponseUpdateHandler(app))
	g.Delete("/collections/responses/records/:id", adminOnly(app), getDeleteHandler(app.responses))

	g.Get("/realtime", getRealtimeHandler(app))

	g.Post("/caltopo/create-map", adminOnly(app), getCreateMapHandler(app))

	return api
}

func (api *API) Address() string {
	return api.addr
}

func (api *API) Listen() error {
	return api.f.Listen(api.addr)
}

func (api *API) ShutdownWithTimeout(d time.Duration) error {
	return api.f.ShutdownWithTimeout(d)
}

func getUserAuth(app *App) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Authorizer:      app.users.CheckAuth,
		ContextUsername: UsernameKey,
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, `basic realm="Restricted"`)

			return c.Status(fiber.StatusUnauthorized).JSON(client.ErrorBody{Message: "Invalid username or password."})
		},
	})
}

func Username(c *fiber.Ctx) string {
	u := c.Locals(UsernameKey)

	if u == nil {
		return ""
	}

	return u.(string)
}

// currentUser is the authenticated caller; nil only after a race with a rename.
func currentUser(app *App, c *fiber.Ctx) *model.User {
	return app.users.Get(Username(c))
}

func adminOnly(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !currentUser(app, c).IsAdmin() {
			return sendError(c, store.ErrForbidden)
		}

		return c.Next()
	}
}

// sendError writes err as an ErrorBody with the matching status code.
func sendError(c *fiber.Ctx, err error) error {
	var ve *store.ValidationError

	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(client.ErrorBody{Message: "Failed to validate the request.", Fields: ve.Fields})
	case errors.Is(err, store.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(client.ErrorBody{Message: "You are not allowed to perform this request."})
	case store.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(client.ErrorBody{Message: "The requested resource wasn't found."})
	case store.IsUnique(err):
		return c.Status(fiber.StatusConflict).JSON(client.ErrorBody{Message: "The record violates a uniqueness constraint."})
	default:
		slog.Default().With("logger", "api").Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))

		return c.Status(fiber.StatusInternalServerError).JSON(client.ErrorBody{Message: "Something went wrong while processing your request."})
	}
}

func parseQuery(c *fiber.Ctx) store.Query {
	q := store.Query{
		Filter: c.Query("filter"),
		Sort:   c.Query("sort"),
	}

	for _, e := range strings.Split(c.Query("expand"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			q.Expand = append(q.Expand, e)
		}
	}

	return q
}

type listAnswer[D any] struct {
	Items []*D `json:"items"`
}

func getListHandler[T any, D any](coll store.Collection[T], dto func(*T) *D) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := coll.List(c.UserContext(), parseQuery(c))
		if err != nil {
			return sendError(c, err)
		}

		ans := listAnswer[D]{Items: make([]*D, 0, len(list))}

		for _, x := range list {
			ans.Items = append(ans.Items, dto(x))
		}

		return c.JSON(ans)
	}
}

func getUpdateHandler[T any, D any](coll store.Collection[T], dto func(*T) *D) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fields := make(map[string]any)

		if err := c.BodyParser(&fields); err != nil {
			return sendError(c, store.NewValidationError("body", err.Error()))
		}

		rec, err := coll.Update(c.UserContext(), c.Params("id"), fields)
		if err != nil {
			return sendError(c, err)
		}

		return c.JSON(dto(rec))
	}
}

func getDeleteHandler[T any](coll store.Collection[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := coll.Delete(c.UserContext(), c.Params("id")); err != nil {
			return sendError(c, err)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

func getMissionCreateHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var d model.MissionDTO

		if err := c.BodyParser(&d); err != nil {
			return sendError(c, store.NewValidationError("body", err.Error()))
		}

		d.ID = ""

		m, err := app.missions.Create(c.UserContext(), d.Model())
		if err != nil {
			return sendError(c, err)
		}

		return c.JSON(m.DTO())
	}
}

func getResponseCreateHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var d model.ResponseDTO

		if err := c.BodyParser(&d); err != nil {
			return sendError(c, store.NewValidationError("body", err.Error()))
		}

		user := currentUser(app, c)
		if user == nil || d.User != user.ID {
			return sendError(c, store.ErrForbidden)
		}

		d.ID = ""
		d.Expand = nil

		r, err := app.responses.Create(c.UserContext(), d.Model())
		if err != nil {
			return sendError(c, err)
		}

		return c.JSON(r.DTO())
	}
}

func getResponseUpdateHandler(app *App) fiber.Handler {
	update := getUpdateHandler(app.responses, (*model.Response).DTO)

	return func(c *fiber.Ctx) error {
		prev, err := app.responses.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return sendError(c, err)
		}

		if user := currentUser(app, c); user == nil || prev.UserID != user.ID {
			return sendError(c, store.ErrForbidden)
		}

		return update(c)
	}
}

func getMeHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := currentUser(app, c)
		if user == nil {
			return sendError(c, store.ErrNotFound)
		}

		return c.JSON(user.DTO())
	}
}

func getUsersHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(listAnswer[model.UserDTO]{Items: model.DTOList(app.users.List())})
	}
}

func getRenameHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Username string `json:"username"`
		}

		if err := c.BodyParser(&req); err != nil {
			return sendError(c, store.NewValidationError("body", err.Error()))
		}

		user := currentUser(app, c)
		if user == nil {
			return sendError(c, store.ErrNotFound)
		}

		u, err := app.users.Rename(c.UserContext(), user.ID, req.Username)
		if err != nil {
			if store.IsUnique(err) {
				return c.Status(fiber.StatusConflict).JSON(client.ErrorBody{Message: "Username is already taken."})
			}

			return sendError(c, err)
		}

		return c.JSON(u.DTO())
	}
}

func getHealthHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

func getMetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{DisableCompression: true},
	))
}
