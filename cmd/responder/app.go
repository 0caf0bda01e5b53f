package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jroimartin/gocui"

	"github.com/rescuerespond/rescuerespond/internal/client"
	"github.com/rescuerespond/rescuerespond/internal/missions"
	"github.com/rescuerespond/rescuerespond/internal/response"
	"github.com/rescuerespond/rescuerespond/pkg/eta"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

const reconnectDelay = time.Second * 5

type App struct {
	g      *gocui.Gui
	logger *slog.Logger
	cl     *client.Client
	log    *TextLogger

	me         atomic.Pointer[model.User]
	timeFormat atomic.Value
	connected  atomic.Bool
	message    atomic.Value
	inputMode  inputMode

	tracker *missions.Tracker
	roster  *response.Roster

	// bind serializes bindMission
	bind sync.Mutex

	mx           sync.Mutex
	ctx          context.Context
	engine       *response.Engine
	engineCancel func()
}

func NewApp(cl *client.Client, timeFormat string, log *TextLogger) *App {
	app := &App{
		logger:  slog.Default().With("logger", "responder"),
		cl:      cl,
		log:     log,
		tracker: missions.NewTracker(cl.Missions()),
		roster:  response.NewRoster(cl.Responses()),
	}

	app.timeFormat.Store(timeFormat)
	app.message.Store("")

	return app
}

func (app *App) Me() *model.User {
	return app.me.Load()
}

func (app *App) TimeFormat() string {
	return app.timeFormat.Load().(string)
}

func (app *App) ToggleTimeFormat() {
	if app.TimeFormat() == eta.Format12h {
		app.timeFormat.Store(eta.Format24h)
	} else {
		app.timeFormat.Store(eta.Format12h)
	}

	app.redraw()
}

// Message is the last user facing notice.
func (app *App) Message() string {
	return app.message.Load().(string)
}

func (app *App) setMessage(s string) {
	app.message.Store(s)
	app.redraw()
}

func (app *App) Engine() *response.Engine {
	app.mx.Lock()
	defer app.mx.Unlock()

	return app.engine
}

// Start loads the caller, the active mission and the roster, then keeps the
// realtime channel up until ctx is done.
func (app *App) Start(ctx context.Context) error {
	app.mx.Lock()
	app.ctx = ctx
	app.mx.Unlock()

	me, err := app.cl.Me(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	app.me.Store(me)

	app.tracker.OnChange(func(_ *model.Mission) {
		app.bindMission()
	})

	app.roster.OnChange(func(_ []*model.RosterEntry) {
		app.redraw()
	})

	app.tracker.Subscribe(ctx)
	app.roster.Subscribe(ctx)

	if err := app.tracker.Init(ctx); err != nil {
		return err
	}

	app.bindMission()

	go app.listen(ctx)

	return nil
}

func (app *App) listen(ctx context.Context) {
	for ctx.Err() == nil {
		app.connected.Store(true)
		app.redraw()

		err := app.cl.Listen(ctx)

		app.connected.Store(false)

		if ctx.Err() != nil {
			return
		}

		app.logger.Warn("realtime connection lost", slog.Any("error", err))
		app.setMessage("Live updates are lost, reconnecting...")

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}

		// events may be missed while disconnected
		if err := app.tracker.Init(ctx); err != nil {
			app.logger.Error("mission reload failed", slog.Any("error", err))
		}

		app.bindMission()
		app.setMessage("")
	}
}

// bindMission points the engine and roster at the mission the tracker holds
// now. Calls for the mission already bound only reload.
func (app *App) bindMission() {
	app.bind.Lock()
	defer app.bind.Unlock()

	app.mx.Lock()
	ctx := app.ctx
	id := app.tracker.Current().GetID()

	if app.engine != nil && app.engine.MissionID() == id {
		engine := app.engine
		app.mx.Unlock()

		if err := engine.Load(ctx); err != nil {
			app.logger.Error("response load failed", slog.Any("error", err))
		}

		if err := app.roster.Refresh(ctx); err != nil {
			app.logger.Error("roster load failed", slog.Any("error", err))
		}

		app.redraw()

		return
	}

	if app.engineCancel != nil {
		app.engineCancel()
		app.engine, app.engineCancel = nil, nil
	}

	var engine *response.Engine

	if id != "" && app.Me() != nil {
		engine = response.New(app.cl.Responses(), app.Me().ID, id)
		unsubscribe := engine.Subscribe(ctx)
		off := engine.OnChange(func(_ response.State) {
			app.redraw()
		})

		app.engine = engine
		app.engineCancel = func() {
			unsubscribe()
			off()
		}
	}

	app.mx.Unlock()

	if engine != nil {
		if err := engine.Load(ctx); err != nil {
			app.logger.Error("response load failed", slog.Any("error", err))
		}
	}

	if err := app.roster.SetMission(ctx, id); err != nil {
		app.logger.Error("roster load failed", slog.Any("error", err))
	}

	app.redraw()
}

// SetStatus submits a status change, reporting failures in the status line.
func (app *App) SetStatus(status model.ResponseStatus) {
	engine := app.Engine()
	if engine == nil {
		app.setMessage("There is no active mission.")
		return
	}

	go app.submit(engine, status, nil)
}

// SetETA changes the ETA input and resubmits it when already responding.
func (app *App) SetETA(v string) {
	engine := app.Engine()
	if engine == nil {
		return
	}

	v = strings.TrimSpace(v)
	engine.SetETA(v)

	if engine.State().Status() == model.StatusResponding {
		go app.submit(engine, model.StatusResponding, &v)
	}

	app.redraw()
}

func (app *App) SetPreset(n int) {
	if n < 0 || n >= len(eta.Presets) {
		return
	}

	app.SetETA(eta.FromNow(eta.Presets[n].Minutes, time.Now()))
}

func (app *App) submit(engine *response.Engine, status model.ResponseStatus, v *string) {
	app.mx.Lock()
	ctx := app.ctx
	app.mx.Unlock()

	if err := engine.UpdateStatus(ctx, status, v); err != nil {
		var ue *response.UserError
		if errors.As(err, &ue) {
			app.setMessage(ue.Msg)
		} else {
			app.setMessage(err.Error())
		}

		return
	}

	app.setMessage("")
}

func (app *App) Rename(login string) {
	app.mx.Lock()
	ctx := app.ctx
	app.mx.Unlock()

	go func() {
		u, err := app.cl.Rename(ctx, strings.TrimSpace(login))
		if err != nil {
			app.logger.Warn("rename failed", slog.Any("error", err))
			app.setMessage(renameMessage(err))

			return
		}

		app.me.Store(u)
		app.setMessage("Username changed to " + u.Login)

		if err := app.roster.Refresh(ctx); err != nil {
			app.logger.Error("roster load failed", slog.Any("error", err))
		}
	}()
}
