// Package missions tracks the active mission and runs mission admin
// operations.
package missions

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rescuerespond/rescuerespond/internal/callbacks"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

// Transition returns the tracked mission after ev. Several active missions
// are tolerated: the last created or activated one wins.
func Transition(prev *model.Mission, ev store.Event[model.Mission]) *model.Mission {
	m := ev.Record
	if m == nil {
		return prev
	}

	switch ev.Action {
	case store.ActionCreate:
		if m.IsActive() {
			return m
		}
	case store.ActionUpdate:
		if m.Status == model.MissionClosed && prev != nil && prev.ID == m.ID {
			return nil
		}

		if m.IsActive() {
			return m
		}
	case store.ActionDelete:
		if prev != nil && prev.ID == m.ID {
			return nil
		}
	}

	return prev
}

// Tracker owns the current active mission cell.
type Tracker struct {
	logger    *slog.Logger
	missions  store.Collection[model.Mission]
	listeners *callbacks.Callback[*model.Mission]

	mx      sync.RWMutex
	current *model.Mission
	// rev counts writes of current; an Init listed before the latest write is dropped.
	rev uint64

	// notify serializes OnChange handlers.
	notify sync.Mutex
}

func NewTracker(missions store.Collection[model.Mission]) *Tracker {
	return &Tracker{
		logger:    slog.Default().With("logger", "tracker"),
		missions:  missions,
		listeners: callbacks.New[*model.Mission](),
	}
}

// Init loads the newest active mission unless an event changed the tracked
// mission while listing.
func (t *Tracker) Init(ctx context.Context) error {
	t.mx.RLock()
	rev := t.rev
	t.mx.RUnlock()

	list, err := t.missions.List(ctx, store.Query{Filter: store.Eq("status", string(model.MissionActive)), Sort: "-created"})
	if err != nil {
		return err
	}

	if len(list) > 1 {
		t.logger.Warn("several active missions", slog.Int("count", len(list)), slog.String("tracked", list[0].ID))
	}

	var m *model.Mission
	if len(list) > 0 {
		m = list[0]
	}

	if !t.set(m, rev) {
		t.logger.Debug("stale mission list dropped")
	}

	return nil
}

func (t *Tracker) HandleEvent(ev store.Event[model.Mission]) {
	t.mx.Lock()
	prev := t.current
	next := Transition(prev, ev).Copy()
	t.current = next
	t.rev++
	t.mx.Unlock()

	if changed(prev, next) {
		t.listeners.AddMessage(next.Copy())
	}
}

func (t *Tracker) set(m *model.Mission, rev uint64) bool {
	t.mx.Lock()

	if t.rev != rev {
		t.mx.Unlock()
		return false
	}

	prev := t.current
	t.current = m
	t.rev++
	t.mx.Unlock()

	if changed(prev, m) {
		t.listeners.AddMessage(m.Copy())
	}

	return true
}

func changed(a, b *model.Mission) bool {
	if a == nil || b == nil {
		return a != b
	}

	return *a != *b
}

// Subscribe feeds mission events to the tracker until the returned func is
// called or ctx is done.
func (t *Tracker) Subscribe(ctx context.Context) func() {
	cancel := t.missions.Subscribe(func(ev store.Event[model.Mission]) bool {
		t.HandleEvent(ev)
		return true
	})

	stop := context.AfterFunc(ctx, cancel)

	return func() {
		stop()
		cancel()
	}
}

// Current returns a copy of the tracked mission or nil.
func (t *Tracker) Current() *model.Mission {
	t.mx.RLock()
	defer t.mx.RUnlock()

	return t.current.Copy()
}

// OnChange calls fn with the tracked mission when it or its content
// changes. Calls never overlap and always get the mission held at call
// time, so the last call sees the final state even if notifications race.
func (t *Tracker) OnChange(fn func(m *model.Mission)) func() {
	return t.listeners.Subscribe(func(_ *model.Mission) bool {
		t.notify.Lock()
		defer t.notify.Unlock()

		fn(t.Current())

		return true
	})
}
