package main

import (
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/rescuerespond/rescuerespond/internal/client"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/internal/wshandler"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

func getRealtimeHandler(app *App) fiber.Handler {
	upgrade := websocket.New(func(ws *websocket.Conn) {
		name := uuid.NewString()
		logger := app.logger.With("logger", "realtime")

		h := wshandler.NewHandler(logger, name, ws)

		cancelMissions := app.missions.Subscribe(func(ev store.Event[model.Mission]) bool {
			return send(h, client.MissionsCollection, ev.Action, ev.Record.DTO())
		})
		defer cancelMissions()

		cancelResponses := app.responses.Subscribe(func(ev store.Event[model.Response]) bool {
			return send(h, client.ResponsesCollection, ev.Action, ev.Record.DTO())
		})
		defer cancelResponses()

		logger.Debug("ws listener connected", slog.String("client", name))
		h.Listen()
		logger.Debug("ws listener disconnected", slog.String("client", name))
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		return upgrade(c)
	}
}

func send(h *wshandler.JSONWsHandler, collection string, action store.Action, record any) bool {
	f, err := wshandler.NewFrame(collection, string(action), record)
	if err != nil {
		return h.IsActive()
	}

	return h.Send(f)
}
