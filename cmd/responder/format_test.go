package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rescuerespond/rescuerespond/internal/response"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/eta"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

func entry(name string, status model.ResponseStatus, v string) *model.RosterEntry {
	return &model.RosterEntry{
		Response: &model.Response{Status: status, ETA: v},
		User:     &model.User{Login: name},
	}
}

func TestFormatEntry(t *testing.T) {
	now := time.Date(2024, 5, 1, 23, 0, 0, 0, time.Local)

	s := formatEntry(entry("ann", model.StatusResponding, "00:30"), now, eta.Format24h)
	assert.Contains(t, s, "ann")
	assert.Contains(t, s, "ETA 00:30 (1h30m)")

	s = formatEntry(entry("ann", model.StatusResponding, "13:05"), now, eta.Format12h)
	assert.Contains(t, s, "ETA 1:05 PM")

	s = formatEntry(entry("ben", model.StatusResponding, ""), now, eta.Format24h)
	assert.Contains(t, s, "ETA TBD")
	assert.NotContains(t, s, "(")

	s = formatEntry(entry("cat", model.StatusStandby, "10:00"), now, eta.Format24h)
	assert.Contains(t, s, "Standby")
	assert.NotContains(t, s, "ETA")

	assert.Empty(t, formatEntry(nil, now, eta.Format24h))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "5m", formatMinutes(5))
	assert.Equal(t, "2h05m", formatMinutes(125))
}

func TestFormatState(t *testing.T) {
	assert.Equal(t, "You have not responded yet", formatState(response.State{}, eta.Format24h))

	s := formatState(response.State{
		Kind:   response.Pending,
		Record: &model.Response{Status: model.StatusResponding, ETA: "TBD"},
	}, eta.Format24h)

	assert.Contains(t, s, "Responding")
	assert.Contains(t, s, "ETA TBD")
	assert.Contains(t, s, "saving...")
}

func TestFormatMission(t *testing.T) {
	assert.Equal(t, "No active mission", formatMission(nil))
	assert.Equal(t, "Lost hiker @ Flattop\nMap: https://caltopo.com/m/X",
		formatMission(&model.Mission{Title: "Lost hiker", Location: "Flattop", MapURL: "https://caltopo.com/m/X"}))
}

func TestRenameMessage(t *testing.T) {
	assert.Equal(t, "Username is already taken.", renameMessage(fmt.Errorf("rename: %w", store.ErrUniqueViolation)))
	assert.Equal(t, "Invalid username.", renameMessage(store.NewValidationError("username", "invalid")))
	assert.Equal(t, "Connection problem, the username was not changed.", renameMessage(&store.TransportError{Op: "rename"}))
}

func TestTextLogger(t *testing.T) {
	l := NewTextLogger(3)

	calls := 0
	l.SetCallback(func() { calls++ })

	for i := 0; i < 5; i++ {
		_, _ = fmt.Fprintf(l, "line %d\n", i)
	}

	assert.Equal(t, []string{"line 2", "line 3", "line 4"}, l.GetLines(0))
	assert.Equal(t, []string{"line 4"}, l.GetLines(1))
	assert.Equal(t, 5, calls)
}
