// Package store defines the contract of the record store collaborator:
// typed collections with filter expressions and a realtime change feed.
package store

import (
	"context"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is a change notification. Record is the snapshot after the change,
// or the last known snapshot for a delete.
type Event[T any] struct {
	Action Action
	Record *T
}

type Query struct {
	Filter string
	Sort   string
	Expand []string
}

type Collection[T any] interface {
	List(ctx context.Context, q Query) ([]*T, error)
	Create(ctx context.Context, rec *T) (*T, error)
	Update(ctx context.Context, id string, fields map[string]any) (*T, error)
	Delete(ctx context.Context, id string) error
	// Subscribe registers fn for all change events of the collection.
	// fn returning false removes it. Delivery order is not guaranteed.
	Subscribe(fn func(ev Event[T]) bool) (cancel func())
}

func (q Query) Expands(name string) bool {
	for _, e := range q.Expand {
		if e == name {
			return true
		}
	}

	return false
}
