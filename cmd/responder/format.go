package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rescuerespond/rescuerespond/internal/response"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/eta"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

const (
	colorRed    = 31
	colorGreen  = 32
	colorYellow = 33
	colorWhite  = 37
)

func withColor(s string, col int) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", col, s)
}

func statusColor(s model.ResponseStatus) int {
	switch s {
	case model.StatusResponding:
		return colorGreen
	case model.StatusStandby:
		return colorYellow
	case model.StatusUnavailable:
		return colorRed
	default:
		return colorWhite
	}
}

// formatEntry renders one roster line: name, status and the ETA if responding.
func formatEntry(e *model.RosterEntry, now time.Time, format string) string {
	if e == nil || e.Response == nil {
		return ""
	}

	status := e.Response.Status
	line := fmt.Sprintf("%-24s %s", e.Name(), withColor(fmt.Sprintf("%-13s", status.Label()), statusColor(status)))

	if status != model.StatusResponding {
		return line
	}

	v := model.FirstString(e.Response.ETA, eta.TBD)
	line += " ETA " + eta.Display(v, format)

	if m := eta.MinutesUntil(v, now); m != eta.Far {
		line += fmt.Sprintf(" (%s)", formatMinutes(m))
	}

	return line
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}

	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}

// formatState renders the own response.
func formatState(s response.State, format string) string {
	if s.Kind == response.Unknown || s.Record == nil {
		return "You have not responded yet"
	}

	status := s.Record.Status
	sb := strings.Builder{}
	sb.WriteString("You: " + withColor(status.Label(), statusColor(status)))

	if status == model.StatusResponding {
		sb.WriteString(" ETA " + eta.Display(model.FirstString(s.Record.ETA, eta.TBD), format))
	}

	if s.Kind == response.Pending {
		sb.WriteString(withColor(" saving...", colorWhite))
	}

	return sb.String()
}

func formatMission(m *model.Mission) string {
	if m == nil {
		return "No active mission"
	}

	s := m.Title + " @ " + m.Location

	if m.MapURL != "" {
		s += "\nMap: " + m.MapURL
	}

	return s
}

func renameMessage(err error) string {
	var ve *store.ValidationError

	switch {
	case store.IsUnique(err):
		return "Username is already taken."
	case store.IsTransport(err):
		return "Connection problem, the username was not changed."
	case errors.As(err, &ve):
		return "Invalid username."
	default:
		return "Failed to change the username."
	}
}
