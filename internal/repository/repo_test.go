package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rescuerespond/rescuerespond/internal/database"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

func prepare(t *testing.T) *database.DatabaseManager {
	db, err := database.GetDatabase(":memory:", false)
	require.NoError(t, err)

	dbm := database.New(db)
	require.NoError(t, dbm.Migrate())

	return dbm
}

func waitEvent[T any](t *testing.T, ch <-chan store.Event[T]) store.Event[T] {
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	return store.Event[T]{}
}

func TestMissionRepo(t *testing.T) {
	ctx := context.Background()
	dbm := prepare(t)
	responses := NewResponseRepo(dbm)
	missions := NewMissionRepo(dbm, responses)

	_, err := missions.Create(ctx, &model.Mission{Location: "ridge"})
	require.Error(t, err)
	assert.True(t, store.IsValidation(err))

	m1, err := missions.Create(ctx, &model.Mission{Title: " Lost hiker &amp; dog ", Location: "ridge", CreatedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.NotEmpty(t, m1.ID)
	assert.Equal(t, "Lost hiker & dog", m1.Title)
	assert.Equal(t, model.MissionActive, m1.Status)

	m2, err := missions.Create(ctx, &model.Mission{Title: "second", Location: "lake"})
	require.NoError(t, err)

	list, err := missions.List(ctx, store.Query{Filter: store.Eq("status", "active"), Sort: "-created"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, m2.ID, list[0].ID)

	_, err = missions.List(ctx, store.Query{Filter: `owner = "x"`})
	assert.True(t, store.IsValidation(err))

	_, err = missions.List(ctx, store.Query{Sort: "-owner"})
	assert.True(t, store.IsValidation(err))

	closed, err := missions.Update(ctx, m1.ID, map[string]any{"status": "closed"})
	require.NoError(t, err)
	assert.Equal(t, model.MissionClosed, closed.Status)

	_, err = missions.Update(ctx, m1.ID, map[string]any{"status": "active"})
	assert.True(t, store.IsValidation(err))

	_, err = missions.Update(ctx, m1.ID, map[string]any{"created": "now"})
	assert.True(t, store.IsValidation(err))

	_, err = missions.Update(ctx, "nope", map[string]any{"title": "x"})
	assert.True(t, store.IsNotFound(err))

	list, err = missions.List(ctx, store.Query{Filter: `status = "active"`})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, m2.ID, list[0].ID)
}

func TestMissionDeleteEvents(t *testing.T) {
	ctx := context.Background()
	dbm := prepare(t)
	responses := NewResponseRepo(dbm)
	missions := NewMissionRepo(dbm, responses)

	m, err := missions.Create(ctx, &model.Mission{Title: "t", Location: "l"})
	require.NoError(t, err)

	_, err = responses.Create(ctx, &model.Response{MissionID: m.ID, UserID: "u1", Status: model.StatusStandby})
	require.NoError(t, err)

	mch := make(chan store.Event[model.Mission], 10)
	rch := make(chan store.Event[model.Response], 10)

	cancel := missions.Subscribe(func(ev store.Event[model.Mission]) bool {
		mch <- ev
		return true
	})
	defer cancel()

	responses.Subscribe(func(ev store.Event[model.Response]) bool {
		rch <- ev
		return false
	})

	require.NoError(t, missions.Delete(ctx, m.ID))

	ev := waitEvent(t, mch)
	assert.Equal(t, store.ActionDelete, ev.Action)
	assert.Equal(t, m.ID, ev.Record.ID)

	rev := waitEvent(t, rch)
	assert.Equal(t, store.ActionDelete, rev.Action)
	assert.Equal(t, "u1", rev.Record.UserID)

	assert.True(t, store.IsNotFound(missions.Delete(ctx, m.ID)))
}

func TestResponseRepo(t *testing.T) {
	ctx := context.Background()
	dbm := prepare(t)
	responses := NewResponseRepo(dbm)

	require.NoError(t, dbm.Create(&model.User{ID: "u1", Login: "alice", Name: "Alice"}))

	ch := make(chan store.Event[model.Response], 10)
	responses.Subscribe(func(ev store.Event[model.Response]) bool {
		ch <- ev
		return true
	})

	r, err := responses.Create(ctx, &model.Response{MissionID: "m1", UserID: "u1", Status: model.StatusResponding, ETA: "TBD"})
	require.NoError(t, err)

	ev := waitEvent(t, ch)
	assert.Equal(t, store.ActionCreate, ev.Action)
	assert.Equal(t, r.ID, ev.Record.ID)

	_, err = responses.Create(ctx, &model.Response{MissionID: "m1", UserID: "u1", Status: model.StatusStandby})
	require.Error(t, err)
	assert.True(t, store.IsUnique(err))

	_, err = responses.Create(ctx, &model.Response{MissionID: "m1", UserID: "u2", Status: "sleeping"})
	assert.True(t, store.IsValidation(err))

	_, err = responses.Update(ctx, r.ID, map[string]any{"eta": "25:00"})
	assert.True(t, store.IsValidation(err))

	_, err = responses.Update(ctx, r.ID, map[string]any{"user": "u2"})
	assert.True(t, store.IsValidation(err))

	upd, err := responses.Update(ctx, r.ID, map[string]any{"status": model.StatusResponding, "eta": "10:15"})
	require.NoError(t, err)
	assert.Equal(t, "10:15", upd.ETA)

	ev = waitEvent(t, ch)
	assert.Equal(t, store.ActionUpdate, ev.Action)
	assert.Equal(t, "10:15", ev.Record.ETA)

	_, err = responses.Update(ctx, "nope", map[string]any{"status": "standby"})
	assert.True(t, store.IsNotFound(err))

	list, err := responses.List(ctx, store.Query{Filter: store.Eq("mission", "m1"), Expand: []string{"user"}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].User)
	assert.Equal(t, "Alice", list[0].User.Name)

	list, err = responses.List(ctx, store.Query{Filter: store.Eq("mission", "m2")})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func hash(t *testing.T, password string) string {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return string(b)
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	dbm := prepare(t)

	fn := filepath.Join(t.TempDir(), "users.yml")
	require.NoError(t, SaveUsersFile(fn, []*model.User{
		{Login: "alice", Name: "Alice", Role: model.RoleAdmin, Password: hash(t, "secret")},
		{Login: "bob", Name: "Bob", Password: hash(t, "bobpass"), Disabled: true},
	}))

	repo := NewUserDbRepository(fn, dbm)
	require.NoError(t, repo.Start())
	defer repo.Stop()

	assert.True(t, repo.CheckAuth("alice", "secret"))
	assert.False(t, repo.CheckAuth("alice", "wrong"))
	assert.False(t, repo.CheckAuth("bob", "bobpass"))
	assert.False(t, repo.CheckAuth("carol", "x"))

	alice := repo.Get("alice")
	require.NotNil(t, alice)
	assert.Equal(t, model.UserID("alice"), alice.ID)
	assert.True(t, alice.IsAdmin())

	bob := repo.Get("bob")
	require.NotNil(t, bob)
	assert.Equal(t, model.RoleResponder, bob.Role)

	assert.Len(t, repo.List(), 2)

	_, err := repo.Rename(ctx, alice.ID, "bob")
	require.Error(t, err)
	assert.True(t, store.IsUnique(err))

	_, err = repo.Rename(ctx, alice.ID, "a b")
	assert.True(t, store.IsValidation(err))

	_, err = repo.Rename(ctx, "nope", "zed")
	assert.True(t, store.IsNotFound(err))

	u, err := repo.Rename(ctx, alice.ID, "alice2")
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Login)
	assert.Nil(t, repo.Get("alice"))
	assert.True(t, repo.CheckAuth("alice2", "secret"))

	// reload keeps the changed login
	require.NoError(t, repo.loadUsersFile())
	assert.Equal(t, "alice2", repo.GetByID(alice.ID).Login)
}

func TestLoadUsersFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "users.yml")

	users, err := LoadUsersFile(fn)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, os.WriteFile(fn, []byte("- user: alice\n  name: Alice\n  password: x\n- name: nobody\n"), 0o600))

	users, err = LoadUsersFile(fn)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Login)
	assert.Equal(t, model.UserID("alice"), users[0].ID)
}
