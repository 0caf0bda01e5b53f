package response

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rescuerespond/rescuerespond/internal/store"
)

var (
	optimisticUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rescue",
		Subsystem: "sync",
		Name:      "optimistic_updates_total",
		Help:      "Number of status changes shown before the store confirmed them.",
	})

	rollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rescue",
		Subsystem: "sync",
		Name:      "rollbacks_total",
		Help:      "Number of status changes rolled back after a store failure.",
	}, []string{"reason"})

	reresolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rescue",
		Subsystem: "sync",
		Name:      "reresolutions_total",
		Help:      "Number of store writes retried after listing again.",
	}, []string{"cause"})
)

func reason(err error) string {
	switch {
	case store.IsTransport(err):
		return "transport"
	case store.IsNotFound(err):
		return "not_found"
	case store.IsValidation(err):
		return "validation"
	default:
		return "other"
	}
}
