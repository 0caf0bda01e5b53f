package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jroimartin/gocui"

	"github.com/rescuerespond/rescuerespond/pkg/eta"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

const (
	missionView = "mission"
	statusView  = "status"
	rosterView  = "roster"
	logView     = "log"
	inputView   = "input"
	helpView    = "help"
)

type inputMode int

const (
	inputETA inputMode = iota
	inputRename
)

type binding struct {
	view string
	key  any
	mod  gocui.Modifier
	f    func(_ *gocui.Gui, _ *gocui.View) error
}

func (app *App) setBindings() error {
	bindings := []binding{
		{"", gocui.KeyCtrlC, gocui.ModNone, app.stop},
		{rosterView, 'q', gocui.ModNone, app.stop},
		{rosterView, 'r', gocui.ModNone, app.statusKey(model.StatusResponding)},
		{rosterView, 's', gocui.ModNone, app.statusKey(model.StatusStandby)},
		{rosterView, 'u', gocui.ModNone, app.statusKey(model.StatusUnavailable)},
		{rosterView, 't', gocui.ModNone, app.toggleFormat},
		{rosterView, 'e', gocui.ModNone, app.openInput(inputETA)},
		{rosterView, 'n', gocui.ModNone, app.openInput(inputRename)},
		{rosterView, gocui.KeyArrowUp, gocui.ModNone, scroll(-1)},
		{rosterView, gocui.KeyArrowDown, gocui.ModNone, scroll(1)},
		{inputView, gocui.KeyEnter, gocui.ModNone, app.submitInput},
		{inputView, gocui.KeyEsc, gocui.ModNone, app.closeInput},
	}

	for i := range eta.Presets {
		bindings = append(bindings, binding{rosterView, rune('1' + i), gocui.ModNone, app.presetKey(i)})
	}

	for _, b := range bindings {
		if err := app.g.SetKeybinding(b.view, b.key, b.mod, b.f); err != nil {
			return err
		}
	}

	return nil
}

func (app *App) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView(missionView, 0, 0, maxX-1, 3); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}

		v.Frame = true
		v.Title = "Mission"
	}

	if v, err := g.SetView(statusView, 0, 4, maxX-1, 7); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}

		v.Frame = true
		v.Title = "My status"
	}

	if v, err := g.SetView(rosterView, 0, 8, maxX-1, maxY-9); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}

		v.Frame = true
		v.Title = "Roster"

		if _, err := g.SetCurrentView(rosterView); err != nil {
			return err
		}
	}

	if v, err := g.SetView(logView, 0, maxY-8, maxX-1, maxY-3); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}

		v.Frame = true
		v.Title = "Log"
		v.Autoscroll = true
	}

	if v, err := g.SetView(helpView, 0, maxY-2, maxX-1, maxY); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}

		v.Frame = false
		fmt.Fprint(v, help())
	}

	app.draw(g)

	return nil
}

func help() string {
	presets := make([]string, 0, len(eta.Presets))
	for i, p := range eta.Presets {
		presets = append(presets, fmt.Sprintf("%d:%s", i+1, p.Label))
	}

	return "r:responding s:standby u:not available " + strings.Join(presets, " ") +
		" e:eta n:username t:12/24h q:quit"
}

func (app *App) redraw() {
	if app.g == nil {
		return
	}

	app.g.Update(func(g *gocui.Gui) error {
		app.draw(g)
		return nil
	})
}

func (app *App) draw(g *gocui.Gui) {
	format := app.TimeFormat()
	now := time.Now()

	if v, err := g.View(missionView); err == nil {
		v.Clear()
		fmt.Fprint(v, formatMission(app.tracker.Current()))
	}

	if v, err := g.View(statusView); err == nil {
		v.Clear()

		if engine := app.Engine(); engine != nil {
			fmt.Fprintln(v, formatState(engine.State(), format))

			if in := engine.ETA(); in != "" {
				fmt.Fprintf(v, "ETA input: %s\n", eta.Display(in, format))
			}
		}

		if msg := app.Message(); msg != "" {
			fmt.Fprint(v, withColor(msg, colorRed))
		}
	}

	if v, err := g.View(rosterView); err == nil {
		v.Clear()

		title := "Roster"
		if me := app.Me(); me != nil {
			title += " (" + me.Login + ")"
		}

		if !app.connected.Load() {
			title += " [offline]"
		}

		v.Title = title

		for _, e := range app.roster.Ranked(now) {
			fmt.Fprintln(v, formatEntry(e, now, format))
		}
	}

	if v, err := g.View(logView); err == nil {
		v.Clear()

		for _, l := range app.log.GetLines(50) {
			fmt.Fprintln(v, l)
		}
	}
}

func (app *App) stop(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func (app *App) statusKey(status model.ResponseStatus) func(_ *gocui.Gui, _ *gocui.View) error {
	return func(_ *gocui.Gui, _ *gocui.View) error {
		app.SetStatus(status)
		return nil
	}
}

func (app *App) presetKey(n int) func(_ *gocui.Gui, _ *gocui.View) error {
	return func(_ *gocui.Gui, _ *gocui.View) error {
		app.SetPreset(n)
		return nil
	}
}

func (app *App) toggleFormat(_ *gocui.Gui, _ *gocui.View) error {
	app.ToggleTimeFormat()
	return nil
}

func scroll(dy int) func(_ *gocui.Gui, v *gocui.View) error {
	return func(_ *gocui.Gui, v *gocui.View) error {
		ox, oy := v.Origin()
		if oy+dy < 0 {
			return nil
		}

		return v.SetOrigin(ox, oy+dy)
	}
}

func (app *App) openInput(mode inputMode) func(g *gocui.Gui, _ *gocui.View) error {
	return func(g *gocui.Gui, _ *gocui.View) error {
		maxX, maxY := g.Size()

		v, err := g.SetView(inputView, maxX/4, maxY/2-1, maxX*3/4, maxY/2+1)
		if err != nil && !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}

		v.Clear()
		v.Editable = true
		v.Frame = true

		switch mode {
		case inputETA:
			v.Title = "ETA (HH:MM or TBD)"
			if engine := app.Engine(); engine != nil {
				fmt.Fprint(v, engine.ETA())
			}
		case inputRename:
			v.Title = "New username"
		}

		app.inputMode = mode

		if err := v.SetCursor(len(v.Buffer())-1, 0); err != nil {
			_ = v.SetCursor(0, 0)
		}

		g.Cursor = true
		_, err = g.SetCurrentView(inputView)

		return err
	}
}

func (app *App) submitInput(g *gocui.Gui, v *gocui.View) error {
	text := strings.TrimSpace(v.Buffer())

	switch app.inputMode {
	case inputETA:
		app.SetETA(text)
	case inputRename:
		if text != "" {
			app.Rename(text)
		}
	}

	return app.closeInput(g, v)
}

func (app *App) closeInput(g *gocui.Gui, _ *gocui.View) error {
	g.Cursor = false

	if err := g.DeleteView(inputView); err != nil {
		return err
	}

	_, err := g.SetCurrentView(rosterView)

	return err
}
