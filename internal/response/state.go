package response

import (
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

type Kind int

const (
	// Unknown means no response of the user exists for the mission.
	Unknown Kind = iota
	// Synced holds the record confirmed by the store.
	Synced
	// Pending shows a local placeholder while the store call is running.
	Pending
)

func (k Kind) String() string {
	switch k {
	case Unknown:
		return "unknown"
	case Synced:
		return "synced"
	case Pending:
		return "pending"
	default:
		return "invalid"
	}
}

// State is the visible state of the own response. Record is the synced
// record or the placeholder, Previous is the confirmed record a pending
// state rolls back to.
type State struct {
	Kind     Kind
	Record   *model.Response
	Previous *model.Response
}

func (s State) Status() model.ResponseStatus {
	if s.Record == nil {
		return ""
	}

	return s.Record.Status
}

// Confirmed returns the last record known to be stored.
func (s State) Confirmed() *model.Response {
	switch s.Kind {
	case Synced:
		return s.Record
	case Pending:
		return s.Previous
	default:
		return nil
	}
}

func Rollback(s State) State {
	if s.Kind != Pending {
		return s
	}

	if s.Previous == nil {
		return State{Kind: Unknown}
	}

	return State{Kind: Synced, Record: s.Previous}
}
