package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescuerespond/rescuerespond/internal/caltopo"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/coord"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

var coordLKP = coord.LatLon{Lat: 61.1, Lon: -149.8}

func newTestClient(t *testing.T, h http.Handler) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return New(srv.URL, "alice", "secret", nil, time.Second*5)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestList(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		login, _, _ := r.BasicAuth()
		assert.Equal(t, "alice", login)
		assert.Equal(t, "/api/collections/responses/records", r.URL.Path)
		assert.Equal(t, `mission = "m1"`, r.URL.Query().Get("filter"))
		assert.Equal(t, "-created", r.URL.Query().Get("sort"))
		assert.Equal(t, "user", r.URL.Query().Get("expand"))

		writeJSON(w, http.StatusOK, map[string]any{"items": []any{
			map[string]any{"id": "r1", "mission": "m1", "user": "u1", "status": "responding", "eta": "10:00",
				"expand": map[string]any{"user": map[string]any{"id": "u1", "username": "ann", "name": "Ann"}}},
		}})
	}))

	list, err := c.Responses().List(context.Background(), store.Query{Filter: store.Eq("mission", "m1"), Sort: "-created", Expand: []string{"user"}})
	require.NoError(t, err)
	require.Len(t, list, 1)

	r := list[0]
	assert.Equal(t, "r1", r.ID)
	assert.Equal(t, "u1", r.UserID)
	assert.Equal(t, model.StatusResponding, r.Status)
	require.NotNil(t, r.User)
	assert.Equal(t, "Ann", r.User.Name)
}

func TestErrors(t *testing.T) {
	code := http.StatusConflict
	var body any = map[string]string{"message": "exists"}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, code, body)
	}))

	ctx := context.Background()

	_, err := c.Responses().Create(ctx, &model.Response{MissionID: "m1", UserID: "u1", Status: model.StatusStandby})
	assert.True(t, store.IsUnique(err))

	code = http.StatusNotFound
	_, err = c.Responses().Update(ctx, "r1", map[string]any{"status": "standby"})
	assert.True(t, store.IsNotFound(err))

	code = http.StatusForbidden
	assert.ErrorIs(t, c.Missions().Delete(ctx, "m1"), store.ErrForbidden)

	code = http.StatusBadRequest
	body = ErrorBody{Message: "validation failed", Fields: map[string]string{"eta": "must be HH:MM or TBD"}}
	_, err = c.Responses().Update(ctx, "r1", map[string]any{"eta": "x"})

	var ve *store.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "must be HH:MM or TBD", ve.Fields["eta"])

	code = http.StatusBadGateway
	_, err = c.Missions().List(ctx, store.Query{})
	assert.True(t, store.IsTransport(err))
}

func TestTransportDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(srv.URL, "alice", "secret", nil, time.Second)

	_, err := c.Responses().List(context.Background(), store.Query{})
	assert.True(t, store.IsTransport(err))

	err = c.Listen(context.Background())
	assert.True(t, store.IsTransport(err))
}

func TestCreateMap(t *testing.T) {
	fail := false

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/caltopo/create-map", r.URL.Path)

		if fail {
			writeJSON(w, http.StatusInternalServerError, MapAnswer{Error: "An internal error occurred while creating the map."})
			return
		}

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hiker", req["title"])
		assert.Equal(t, []any{61.1, -149.8}, req["lkp"])
		assert.Nil(t, req["icp"])

		writeJSON(w, http.StatusOK, MapAnswer{Success: true, MapID: "X", MapURL: "https://caltopo.com/m/X"})
	}))

	m, err := c.CreateMap(context.Background(), caltopo.MapRequest{Title: "Hiker", LKP: &coordLKP})
	require.NoError(t, err)
	assert.Equal(t, "https://caltopo.com/m/X", m.URL)

	fail = true
	_, err = c.CreateMap(context.Background(), caltopo.MapRequest{Title: "Hiker"})
	assert.EqualError(t, err, "An internal error occurred while creating the map.")
}

func TestRename(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req["username"] == "bob" {
			writeJSON(w, http.StatusConflict, ErrorBody{Message: "Username is already taken."})
			return
		}

		writeJSON(w, http.StatusOK, model.UserDTO{ID: "u1", Login: req["username"]})
	}))

	_, err := c.Rename(context.Background(), "bob")
	assert.True(t, store.IsUnique(err))

	u, err := c.Rename(context.Background(), "alice2")
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Login)
	assert.Equal(t, "alice2", c.Login())
}

func TestRenameWhileRequesting(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			writeJSON(w, http.StatusOK, model.UserDTO{ID: "u1", Login: req["username"]})

			return
		}

		login, _, _ := r.BasicAuth()
		writeJSON(w, http.StatusOK, model.UserDTO{ID: "u1", Login: login})
	}))

	ctx := context.Background()

	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 10; j++ {
				u, err := c.Me(ctx)
				if assert.NoError(t, err) {
					assert.Contains(t, []string{"alice", "alice2"}, u.Login)
				}
			}
		}()
	}

	_, err := c.Rename(ctx, "alice2")
	require.NoError(t, err)
	wg.Wait()

	u, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Login)
}

func TestListen(t *testing.T) {
	upgrader := websocket.Upgrader{}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		login, pass, ok := r.BasicAuth()
		if !ok || login != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_ = conn.WriteJSON(map[string]any{"collection": "responses", "action": "update",
			"record": map[string]any{"id": "r1", "mission": "m1", "user": "u1", "status": "standby"}})
		_ = conn.WriteJSON(map[string]any{"collection": "missions", "action": "create",
			"record": map[string]any{"id": "m2", "title": "t", "location": "l", "status": "active"}})

		// wait for the client to go away
		_, _, _ = conn.ReadMessage()
	}))

	responses := make(chan store.Event[model.Response], 1)
	missions := make(chan store.Event[model.Mission], 1)

	c.Responses().Subscribe(func(ev store.Event[model.Response]) bool {
		responses <- ev
		return false
	})

	c.Missions().Subscribe(func(ev store.Event[model.Mission]) bool {
		missions <- ev
		return false
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- c.Listen(ctx)
	}()

	select {
	case ev := <-responses:
		assert.Equal(t, store.ActionUpdate, ev.Action)
		assert.Equal(t, "u1", ev.Record.UserID)
	case <-time.After(time.Second * 2):
		t.Fatal("no response event")
	}

	select {
	case ev := <-missions:
		assert.Equal(t, store.ActionCreate, ev.Action)
		assert.True(t, ev.Record.IsActive())
	case <-time.After(time.Second * 2):
		t.Fatal("no mission event")
	}

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second * 2):
		t.Fatal("listen did not stop")
	}
}

func TestListenUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "alice", "wrong", nil, time.Second)

	assert.ErrorIs(t, c.Listen(context.Background()), store.ErrForbidden)
}
