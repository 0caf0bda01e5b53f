package callbacks

import (
	"sync"

	"github.com/google/uuid"
)

// Callback fans messages out to registered handlers. Each handler runs in its
// own goroutine, so there is no ordering between handlers or messages.
// A handler returning false is removed.
type Callback[V any] struct {
	callbacks sync.Map
}

func New[V any]() *Callback[V] {
	return &Callback[V]{
		callbacks: sync.Map{},
	}
}

func (p *Callback[V]) AddMessage(msg V) {
	if p == nil {
		return
	}

	p.callbacks.Range(func(key, value any) bool {
		if fn, ok := value.(func(msg V) bool); ok {
			go func() {
				if !fn(msg) {
					p.callbacks.Delete(key)
				}
			}()
		}

		return true
	})
}

func (p *Callback[V]) AddCallback(name string, fn func(msg V) bool) {
	p.callbacks.Store(name, fn)
}

// Subscribe adds fn under a generated name and returns a func removing it.
func (p *Callback[V]) Subscribe(fn func(msg V) bool) func() {
	name := uuid.NewString()
	p.AddCallback(name, fn)

	return func() {
		p.RemoveCallback(name)
	}
}

func (p *Callback[V]) RemoveCallback(name string) bool {
	_, found := p.callbacks.LoadAndDelete(name)

	return found
}

func (p *Callback[V]) Count() int {
	n := 0

	p.callbacks.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}
