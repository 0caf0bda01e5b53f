package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rescuerespond/rescuerespond/internal/callbacks"
	"github.com/rescuerespond/rescuerespond/internal/database"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

type ResponseRepo struct {
	logger *slog.Logger
	dbm    *database.DatabaseManager
	events *callbacks.Callback[store.Event[model.Response]]
}

func NewResponseRepo(dbm *database.DatabaseManager) *ResponseRepo {
	return &ResponseRepo{
		logger: slog.Default().With("logger", "responses"),
		dbm:    dbm,
		events: callbacks.New[store.Event[model.Response]](),
	}
}

func (r *ResponseRepo) List(ctx context.Context, q store.Query) ([]*model.Response, error) {
	conds, err := responseColumns.conds(q.Filter)
	if err != nil {
		return nil, err
	}

	order, err := responseColumns.order("responses", q.Sort, "created")
	if err != nil {
		return nil, err
	}

	rq := r.dbm.WithContext(ctx).ResponseQuery().Order(order)

	for _, c := range conds {
		rq.Eq(c[0], c[1])
	}

	if q.Expands("user") {
		rq.Full()
	}

	res, err := rq.Get()

	return res, dbError("list responses", err)
}

func (r *ResponseRepo) Get(ctx context.Context, id string) (*model.Response, error) {
	resp, err := r.dbm.WithContext(ctx).ResponseQuery().Id(id).One()
	if err != nil {
		return nil, dbError("get response", err)
	}

	if resp == nil {
		return nil, dbError("get response", database.ErrNoRecord)
	}

	return resp, nil
}

func (r *ResponseRepo) Create(ctx context.Context, rec *model.Response) (*model.Response, error) {
	resp := rec.Copy()
	if resp == nil {
		return nil, store.NewValidationError("response", "required")
	}

	resp.User = nil

	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}

	if err := validateResponse(resp); err != nil {
		return nil, err
	}

	if err := r.dbm.WithContext(ctx).Create(resp); err != nil {
		return nil, dbError("create response", err)
	}

	r.logger.Debug("response created", slog.String("id", resp.ID), slog.String("user", resp.UserID), slog.String("status", string(resp.Status)))
	r.publish(store.ActionCreate, resp)

	return resp, nil
}

func (r *ResponseRepo) Update(ctx context.Context, id string, fields map[string]any) (*model.Response, error) {
	upd, err := responseColumns.updates(fields, "status", "eta")
	if err != nil {
		return nil, err
	}

	prev, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := prev.Copy()

	if v, ok := upd["status"]; ok {
		next.Status = model.ResponseStatus(v.(string))
	}

	if v, ok := upd["eta"]; ok {
		next.ETA = v.(string)
	}

	if err := validateResponse(next); err != nil {
		return nil, err
	}

	upd["updated_at"] = time.Now()

	if err := r.dbm.WithContext(ctx).ResponseQuery().Id(id).Update(upd); err != nil {
		return nil, dbError("update response", err)
	}

	resp, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r.publish(store.ActionUpdate, resp)

	return resp, nil
}

func (r *ResponseRepo) Delete(ctx context.Context, id string) error {
	resp, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := r.dbm.WithContext(ctx).ResponseQuery().Delete(id); err != nil {
		return dbError("delete response", err)
	}

	r.publish(store.ActionDelete, resp)

	return nil
}

func (r *ResponseRepo) Subscribe(fn func(ev store.Event[model.Response]) bool) func() {
	return r.events.Subscribe(fn)
}

func (r *ResponseRepo) publish(action store.Action, resp *model.Response) {
	c := resp.Copy()
	c.User = nil

	r.events.AddMessage(store.Event[model.Response]{Action: action, Record: c})
}
