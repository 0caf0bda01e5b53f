package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/rescuerespond/rescuerespond/internal/callbacks"
	"github.com/rescuerespond/rescuerespond/internal/store"
)

// dto converts between a record and its wire form.
type dto[T any, D any] interface {
	*D
	Model() *T
}

// Collection is a store collection served by a remote server.
type Collection[T any, D any, PD dto[T, D]] struct {
	c      *Client
	name   string
	toDTO  func(*T) *D
	events *callbacks.Callback[store.Event[T]]
}

func newCollection[T any, D any, PD dto[T, D]](c *Client, name string, toDTO func(*T) *D) *Collection[T, D, PD] {
	return &Collection[T, D, PD]{
		c:      c,
		name:   name,
		toDTO:  toDTO,
		events: callbacks.New[store.Event[T]](),
	}
}

func (r *Collection[T, D, PD]) path(id string) string {
	p := "/api/collections/" + r.name + "/records"

	if id != "" {
		p += "/" + url.PathEscape(id)
	}

	return p
}

type listAnswer[D any] struct {
	Items []*D `json:"items"`
}

func (r *Collection[T, D, PD]) List(ctx context.Context, q store.Query) ([]*T, error) {
	args := make(map[string]string)

	if q.Filter != "" {
		args["filter"] = q.Filter
	}

	if q.Sort != "" {
		args["sort"] = q.Sort
	}

	if len(q.Expand) > 0 {
		args["expand"] = strings.Join(q.Expand, ",")
	}

	var ans listAnswer[D]

	if err := r.c.request(r.path("")).Args(args).GetJSON(ctx, &ans); err != nil {
		return nil, apiError("list "+r.name, err)
	}

	res := make([]*T, 0, len(ans.Items))

	for _, d := range ans.Items {
		if d != nil {
			res = append(res, PD(d).Model())
		}
	}

	return res, nil
}

func (r *Collection[T, D, PD]) Create(ctx context.Context, rec *T) (*T, error) {
	var d D

	if err := r.c.request(r.path("")).Post().JSON(r.toDTO(rec)).GetJSON(ctx, &d); err != nil {
		return nil, apiError("create "+r.name, err)
	}

	return PD(&d).Model(), nil
}

func (r *Collection[T, D, PD]) Update(ctx context.Context, id string, fields map[string]any) (*T, error) {
	var d D

	if err := r.c.request(r.path(id)).Patch().JSON(fields).GetJSON(ctx, &d); err != nil {
		return nil, apiError("update "+r.name, err)
	}

	return PD(&d).Model(), nil
}

func (r *Collection[T, D, PD]) Delete(ctx context.Context, id string) error {
	return apiError("delete "+r.name, r.c.request(r.path(id)).Delete().GetJSON(ctx, nil))
}

// Subscribe registers fn for events read by Client.Listen.
func (r *Collection[T, D, PD]) Subscribe(fn func(ev store.Event[T]) bool) func() {
	return r.events.Subscribe(fn)
}

func (r *Collection[T, D, PD]) publish(action store.Action, raw []byte) error {
	var d D

	if err := decode(raw, &d); err != nil {
		return err
	}

	r.events.AddMessage(store.Event[T]{Action: action, Record: PD(&d).Model()})

	return nil
}
