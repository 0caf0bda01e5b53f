// Package response keeps the own response of a user in sync with the store.
// Status changes are shown at once as a pending placeholder and either
// confirmed by the store or rolled back to the previous confirmed record.
package response

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rescuerespond/rescuerespond/internal/callbacks"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/eta"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

type Engine struct {
	logger    *slog.Logger
	responses store.Collection[model.Response]
	userID    string
	missionID string
	listeners *callbacks.Callback[State]
	now       func() time.Time

	mx    sync.Mutex
	state State
	// eta is the remembered ETA input used when responding without one.
	eta string
	// gen counts user actions; only the latest may roll back.
	gen uint64
	// rollbackETA is the ETA input captured by the latest action.
	rollbackETA string
	// rev counts state writes; a Load listed before the latest write is dropped.
	rev uint64
}

func New(responses store.Collection[model.Response], userID, missionID string) *Engine {
	return &Engine{
		logger:    slog.Default().With("logger", "sync", "mission", missionID),
		responses: responses,
		userID:    userID,
		missionID: missionID,
		listeners: callbacks.New[State](),
		now:       time.Now,
	}
}

func (e *Engine) MissionID() string {
	return e.missionID
}

// Load reads the current own response from the store. The result is
// dropped when an event or an action changed the state meanwhile.
func (e *Engine) Load(ctx context.Context) error {
	e.mx.Lock()
	rev := e.rev
	e.mx.Unlock()

	rec, err := e.find(ctx)
	if err != nil {
		return err
	}

	e.mx.Lock()

	if e.rev != rev {
		e.mx.Unlock()
		e.logger.Debug("stale load dropped")

		return nil
	}

	e.rev++

	if rec == nil {
		e.state = State{Kind: Unknown}
	} else {
		e.state = State{Kind: Synced, Record: rec}
		e.rememberETA(rec.ETA)
	}

	s := e.state
	e.mx.Unlock()

	e.listeners.AddMessage(s)

	return nil
}

// UpdateStatus shows the new status at once and writes it to the store.
// eta is used for responding only; nil means the remembered input.
// Failures roll the state back and are returned as *UserError.
func (e *Engine) UpdateStatus(ctx context.Context, status model.ResponseStatus, etaInput *string) error {
	if !status.Valid() {
		return newUserError(store.NewValidationError("status", "unknown status "+string(status)))
	}

	e.mx.Lock()

	e.rollbackETA = e.eta

	if etaInput != nil {
		e.eta = strings.TrimSpace(*etaInput)
	}

	finalETA := ""

	if status == model.StatusResponding {
		finalETA = e.eta
		if finalETA == "" {
			finalETA = eta.TBD
		}
	}

	confirmed := e.state.Confirmed()

	placeholder := confirmed.Copy()
	if placeholder == nil {
		placeholder = &model.Response{MissionID: e.missionID, UserID: e.userID}
	}

	placeholder.ID = ""
	placeholder.Status = status
	placeholder.ETA = finalETA
	placeholder.UpdatedAt = e.now()

	e.gen++
	e.rev++
	gen := e.gen
	e.state = State{Kind: Pending, Record: placeholder, Previous: confirmed}
	s := e.state

	e.mx.Unlock()

	optimisticUpdates.Inc()
	e.listeners.AddMessage(s)

	rec, err := e.resolve(ctx, status, finalETA)

	e.mx.Lock()

	if err == nil {
		e.rev++

		switch {
		case e.gen == gen:
			e.state = State{Kind: Synced, Record: rec}
		case e.state.Kind == Pending:
			e.state.Previous = rec
		}

		s = e.state
		e.mx.Unlock()

		e.listeners.AddMessage(s)

		return nil
	}

	rolledBack := false

	if e.gen == gen && e.state.Kind == Pending {
		e.rev++
		e.state = Rollback(e.state)
		e.eta = e.rollbackETA
		rolledBack = true
	}

	s = e.state
	e.mx.Unlock()

	if rolledBack {
		rollbacks.WithLabelValues(reason(err)).Inc()
		e.listeners.AddMessage(s)
	}

	e.logger.Warn("status update failed", slog.String("status", string(status)), slog.Bool("rollback", rolledBack), slog.Any("error", err))

	return newUserError(err)
}

// resolve writes the status to the current stored record of the user,
// listing again at most once when the store disagrees.
func (e *Engine) resolve(ctx context.Context, status model.ResponseStatus, finalETA string) (*model.Response, error) {
	fields := map[string]any{"status": string(status), "eta": finalETA}

	existing, err := e.find(ctx)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		rec, err := e.responses.Update(ctx, existing.ID, fields)
		if err == nil || !store.IsNotFound(err) {
			return rec, err
		}

		reresolutions.WithLabelValues("not_found").Inc()
		e.logger.Info("response vanished, listing again", slog.String("id", existing.ID))

		again, err2 := e.find(ctx)
		if err2 != nil {
			return nil, err2
		}

		if again == nil {
			return nil, err
		}

		return e.responses.Update(ctx, again.ID, fields)
	}

	rec, err := e.responses.Create(ctx, &model.Response{
		MissionID: e.missionID,
		UserID:    e.userID,
		Status:    status,
		ETA:       finalETA,
	})

	if err == nil || !store.IsUnique(err) {
		return rec, err
	}

	reresolutions.WithLabelValues("conflict").Inc()
	e.logger.Info("response created concurrently, updating it")

	again, err2 := e.find(ctx)
	if err2 != nil {
		return nil, err2
	}

	if again == nil {
		return nil, err
	}

	return e.responses.Update(ctx, again.ID, fields)
}

// find lists the mission responses and picks the newest of the user.
func (e *Engine) find(ctx context.Context) (*model.Response, error) {
	list, err := e.responses.List(ctx, store.Query{Filter: store.Eq("mission", e.missionID), Sort: "-created"})
	if err != nil {
		return nil, err
	}

	for _, r := range list {
		if r != nil && r.UserID == e.userID {
			return r, nil
		}
	}

	return nil, nil
}

// HandleEvent applies a realtime change. Events are authoritative and
// replace any pending placeholder.
func (e *Engine) HandleEvent(ev store.Event[model.Response]) {
	rec := ev.Record
	if rec == nil || rec.UserID != e.userID || rec.MissionID != e.missionID {
		return
	}

	e.mx.Lock()

	switch ev.Action {
	case store.ActionDelete:
		e.rev++
		e.state = State{Kind: Unknown}
	case store.ActionCreate, store.ActionUpdate:
		e.rev++
		e.state = State{Kind: Synced, Record: rec.Copy()}
		e.rememberETA(rec.ETA)
	default:
		e.mx.Unlock()
		return
	}

	s := e.state
	e.mx.Unlock()

	e.listeners.AddMessage(s)
}

func (e *Engine) rememberETA(v string) {
	if v != "" {
		e.eta = v
	}
}

// Subscribe feeds collection events to the engine until the returned func
// is called or ctx is done.
func (e *Engine) Subscribe(ctx context.Context) func() {
	cancel := e.responses.Subscribe(func(ev store.Event[model.Response]) bool {
		e.HandleEvent(ev)
		return true
	})

	stop := context.AfterFunc(ctx, cancel)

	return func() {
		stop()
		cancel()
	}
}

func (e *Engine) State() State {
	e.mx.Lock()
	defer e.mx.Unlock()

	return e.state
}

// ETA returns the remembered ETA input.
func (e *Engine) ETA() string {
	e.mx.Lock()
	defer e.mx.Unlock()

	return e.eta
}

// SetETA changes the remembered ETA input without writing anything.
func (e *Engine) SetETA(v string) {
	e.mx.Lock()
	e.eta = strings.TrimSpace(v)
	e.mx.Unlock()
}

// OnChange calls fn with every new state. Calls run in their own goroutines.
func (e *Engine) OnChange(fn func(s State)) func() {
	return e.listeners.Subscribe(func(s State) bool {
		fn(s)
		return true
	})
}
