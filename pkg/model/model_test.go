package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseDTO(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	r := &Response{
		ID:        "r1",
		MissionID: "m1",
		UserID:    "u1",
		Status:    StatusResponding,
		ETA:       "10:20",
		CreatedAt: now,
		UpdatedAt: now,
		User:      &User{ID: "u1", Login: "bob", Name: "Bob", Role: RoleResponder, Password: "secret"},
	}

	b, err := json.Marshal(r.DTO())
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")

	var d ResponseDTO
	require.NoError(t, json.Unmarshal(b, &d))

	r1 := d.Model()
	assert.Equal(t, "r1", r1.ID)
	assert.Equal(t, "m1", r1.MissionID)
	assert.Equal(t, "u1", r1.UserID)
	assert.Equal(t, StatusResponding, r1.Status)
	require.NotNil(t, r1.User)
	assert.Equal(t, "Bob", r1.User.Name)
	assert.Equal(t, "Bob", r1.RosterEntry().Name())
}

func TestStatuses(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.Valid())
	}

	assert.False(t, ResponseStatus("lost").Valid())
	assert.True(t, MissionActive.Valid())
	assert.False(t, MissionStatus("open").Valid())
}

func TestUserID(t *testing.T) {
	assert.Equal(t, UserID("bob"), UserID("bob"))
	assert.NotEqual(t, UserID("bob"), UserID("alice"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Search & Rescue", CleanText("  Search &amp; Rescue "))
}

func TestNilSafe(t *testing.T) {
	var m *Mission
	var r *Response
	var e *RosterEntry

	assert.Nil(t, m.DTO())
	assert.Nil(t, r.DTO())
	assert.Empty(t, r.GetID())
	assert.False(t, m.IsActive())
	assert.Equal(t, "unknown", e.Name())
}
