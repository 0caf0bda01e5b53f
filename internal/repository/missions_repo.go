package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rescuerespond/rescuerespond/internal/callbacks"
	"github.com/rescuerespond/rescuerespond/internal/database"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

type MissionRepo struct {
	logger    *slog.Logger
	dbm       *database.DatabaseManager
	events    *callbacks.Callback[store.Event[model.Mission]]
	responses *ResponseRepo
}

func NewMissionRepo(dbm *database.DatabaseManager, responses *ResponseRepo) *MissionRepo {
	return &MissionRepo{
		logger:    slog.Default().With("logger", "missions"),
		dbm:       dbm,
		events:    callbacks.New[store.Event[model.Mission]](),
		responses: responses,
	}
}

func (r *MissionRepo) List(ctx context.Context, q store.Query) ([]*model.Mission, error) {
	conds, err := missionColumns.conds(q.Filter)
	if err != nil {
		return nil, err
	}

	order, err := missionColumns.order("missions", q.Sort, "-created")
	if err != nil {
		return nil, err
	}

	mq := r.dbm.WithContext(ctx).MissionQuery().Order(order).Limit(0)

	for _, c := range conds {
		mq.Eq(c[0], c[1])
	}

	res, err := mq.Get()

	return res, dbError("list missions", err)
}

func (r *MissionRepo) Get(ctx context.Context, id string) (*model.Mission, error) {
	m, err := r.dbm.WithContext(ctx).MissionQuery().Id(id).One()
	if err != nil {
		return nil, dbError("get mission", err)
	}

	if m == nil {
		return nil, dbError("get mission", database.ErrNoRecord)
	}

	return m, nil
}

func (r *MissionRepo) Create(ctx context.Context, rec *model.Mission) (*model.Mission, error) {
	m := rec.Copy()
	if m == nil {
		return nil, store.NewValidationError("mission", "required")
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	if m.Status == "" {
		m.Status = model.MissionActive
	}

	m.Title = model.CleanText(m.Title)
	m.Location = model.CleanText(m.Location)

	if err := validateMission(m); err != nil {
		return nil, err
	}

	if err := r.dbm.WithContext(ctx).Create(m); err != nil {
		return nil, dbError("create mission", err)
	}

	r.logger.Info("mission created", slog.String("id", m.ID), slog.String("title", m.Title))
	r.publish(store.ActionCreate, m)

	return m, nil
}

func (r *MissionRepo) Update(ctx context.Context, id string, fields map[string]any) (*model.Mission, error) {
	upd, err := missionColumns.updates(fields, "title", "location", "map_url", "status")
	if err != nil {
		return nil, err
	}

	prev, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := prev.Copy()

	if v, ok := upd["title"]; ok {
		next.Title = model.CleanText(v.(string))
		upd["title"] = next.Title
	}

	if v, ok := upd["location"]; ok {
		next.Location = model.CleanText(v.(string))
		upd["location"] = next.Location
	}

	if v, ok := upd["status"]; ok {
		next.Status = model.MissionStatus(v.(string))
	}

	if err := validateMission(next); err != nil {
		return nil, err
	}

	if prev.Status == model.MissionClosed && next.Status != model.MissionClosed {
		return nil, store.NewValidationError("status", "closed missions can't be reopened")
	}

	if len(upd) == 0 {
		return prev, nil
	}

	if err := r.dbm.WithContext(ctx).MissionQuery().Id(id).Update(upd); err != nil {
		return nil, dbError("update mission", err)
	}

	m, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if prev.Status != m.Status {
		r.logger.Info("mission status changed", slog.String("id", id), slog.String("status", string(m.Status)))
	}

	r.publish(store.ActionUpdate, m)

	return m, nil
}

// Delete removes the mission together with its responses.
func (r *MissionRepo) Delete(ctx context.Context, id string) error {
	m, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	dbm := r.dbm.WithContext(ctx)

	responses, err := dbm.ResponseQuery().Mission(id).Get()
	if err != nil {
		return dbError("delete mission", err)
	}

	if err := dbm.MissionQuery().Delete(id); err != nil {
		return dbError("delete mission", err)
	}

	r.logger.Info("mission deleted", slog.String("id", id))
	r.publish(store.ActionDelete, m)

	for _, resp := range responses {
		r.responses.publish(store.ActionDelete, resp)
	}

	return nil
}

func (r *MissionRepo) Subscribe(fn func(ev store.Event[model.Mission]) bool) func() {
	return r.events.Subscribe(fn)
}

func (r *MissionRepo) publish(action store.Action, m *model.Mission) {
	r.events.AddMessage(store.Event[model.Mission]{Action: action, Record: m.Copy()})
}
