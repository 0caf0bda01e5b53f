package response

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rescuerespond/rescuerespond/internal/callbacks"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/model"
	"github.com/rescuerespond/rescuerespond/pkg/roster"
)

// Roster holds the responses of the current mission. Every change of a
// response of that mission replaces the whole snapshot with a fresh list.
type Roster struct {
	logger    *slog.Logger
	responses store.Collection[model.Response]
	listeners *callbacks.Callback[[]*model.RosterEntry]

	mx        sync.RWMutex
	missionID string
	entries   []*model.RosterEntry
	// seq numbers refreshes by start; applied is the seq of the snapshot held.
	seq     uint64
	applied uint64
	ctx     context.Context
}

func NewRoster(responses store.Collection[model.Response]) *Roster {
	return &Roster{
		logger:    slog.Default().With("logger", "roster"),
		responses: responses,
		listeners: callbacks.New[[]*model.RosterEntry](),
		ctx:       context.Background(),
	}
}

// SetMission switches the roster to another mission; empty id clears it.
func (r *Roster) SetMission(ctx context.Context, missionID string) error {
	r.mx.Lock()

	if r.missionID == missionID {
		r.mx.Unlock()
		return nil
	}

	r.missionID = missionID
	r.entries = nil
	r.seq++
	r.applied = r.seq
	r.mx.Unlock()

	if missionID == "" {
		r.listeners.AddMessage(nil)
		return nil
	}

	return r.Refresh(ctx)
}

func (r *Roster) MissionID() string {
	r.mx.RLock()
	defer r.mx.RUnlock()

	return r.missionID
}

// Refresh lists the mission responses. A result older than the snapshot
// already held is dropped, so a failed newer refresh keeps an older result.
func (r *Roster) Refresh(ctx context.Context) error {
	r.mx.Lock()
	missionID := r.missionID
	r.seq++
	seq := r.seq
	r.mx.Unlock()

	if missionID == "" {
		return nil
	}

	list, err := r.responses.List(ctx, store.Query{
		Filter: store.Eq("mission", missionID),
		Sort:   "created",
		Expand: []string{"user"},
	})

	if err != nil {
		return err
	}

	entries := make([]*model.RosterEntry, 0, len(list))

	for _, resp := range list {
		if e := resp.RosterEntry(); e != nil {
			entries = append(entries, e)
		}
	}

	r.mx.Lock()

	if seq <= r.applied || r.missionID != missionID {
		r.mx.Unlock()
		return nil
	}

	r.entries = entries
	r.applied = seq
	r.mx.Unlock()

	r.listeners.AddMessage(entries)

	return nil
}

func (r *Roster) HandleEvent(ev store.Event[model.Response]) {
	if ev.Record == nil {
		return
	}

	r.mx.RLock()
	match := r.missionID != "" && ev.Record.MissionID == r.missionID
	ctx := r.ctx
	r.mx.RUnlock()

	if !match {
		return
	}

	if err := r.Refresh(ctx); err != nil {
		r.logger.Error("roster refresh failed", slog.Any("error", err))
	}
}

// Subscribe refreshes the roster on response events until the returned
// func is called or ctx is done.
func (r *Roster) Subscribe(ctx context.Context) func() {
	r.mx.Lock()
	r.ctx = ctx
	r.mx.Unlock()

	cancel := r.responses.Subscribe(func(ev store.Event[model.Response]) bool {
		r.HandleEvent(ev)
		return true
	})

	stop := context.AfterFunc(ctx, cancel)

	return func() {
		stop()
		cancel()
	}
}

// Entries returns the snapshot in store order.
func (r *Roster) Entries() []*model.RosterEntry {
	r.mx.RLock()
	defer r.mx.RUnlock()

	return append([]*model.RosterEntry(nil), r.entries...)
}

func (r *Roster) Ranked(now time.Time) []*model.RosterEntry {
	return roster.Rank(r.Entries(), now)
}

func (r *Roster) OnChange(fn func(entries []*model.RosterEntry)) func() {
	return r.listeners.Subscribe(func(entries []*model.RosterEntry) bool {
		fn(entries)
		return true
	})
}
