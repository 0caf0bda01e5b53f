package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rescuerespond/rescuerespond/internal/caltopo"
	"github.com/rescuerespond/rescuerespond/internal/client"
	"github.com/rescuerespond/rescuerespond/internal/config"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

type fakeMapper struct {
	err error
	req *caltopo.MapRequest
}

func (m *fakeMapper) CreateMap(_ context.Context, r caltopo.MapRequest) (*caltopo.Map, error) {
	m.req = &r

	if m.err != nil {
		return nil, m.err
	}

	return &caltopo.Map{ID: "ABC", URL: "https://caltopo.com/m/ABC"}, nil
}

type TestApp struct {
	*App
	api    *API
	mapper *fakeMapper
}

func User(t *testing.T, login, pass string, role model.Role, disabled bool) *model.User {
	b, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.MinCost)
	require.NoError(t, err)

	return &model.User{
		ID:       model.UserID(login),
		Login:    login,
		Name:     login,
		Role:     role,
		Password: string(b),
		Disabled: disabled,
	}
}

func NewTestApp(t *testing.T) *TestApp {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))

	cfg := config.NewAppConfig()
	cfg.Set("db", ":memory:")
	cfg.Set("users_file", "")
	cfg.Set("caltopo.rate_per_minute", 2)

	a, err := NewApp(cfg)
	require.NoError(t, err)

	app := &TestApp{App: a, mapper: new(fakeMapper)}
	app.App.mapper = app.mapper

	require.NoError(t, app.users.Start())

	for _, u := range []*model.User{
		User(t, "adm1", "111", model.RoleAdmin, false),
		User(t, "usr1", "1", model.RoleResponder, false),
		User(t, "usr2", "2", model.RoleResponder, false),
		User(t, "usr3", "3", model.RoleResponder, true),
	} {
		require.NoError(t, app.dbm.Create(u))
	}

	app.api = NewAPI(app.App, "localhost:1234")

	return app
}

func (app *TestApp) Req(method, url, login string, obj any) (*http.Response, error) {
	var body io.Reader

	if obj != nil {
		d, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}

		body = bytes.NewReader(d)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}

	if obj != nil {
		req.Header.Add(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if login != "" {
		req.SetBasicAuth(login, passwords[login])
	}

	return app.api.f.Test(req, 3000)
}

var passwords = map[string]string{"adm1": "111", "usr1": "1", "usr2": "2", "usr3": "3", "bad": "x"}

func decode[T any](t *testing.T, resp *http.Response) T {
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))

	return v
}

func (app *TestApp) mission(t *testing.T) *model.MissionDTO {
	resp, err := app.Req("POST", "/api/collections/missions/records", "adm1", model.MissionDTO{Title: "Lost hiker", Location: "Flattop"})
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	return decode[*model.MissionDTO](t, resp)
}

func TestAuth(t *testing.T) {
	app := NewTestApp(t)

	for _, d := range []struct {
		login string
		code  int
	}{
		{"adm1", fiber.StatusOK},
		{"usr1", fiber.StatusOK},
		{"usr3", fiber.StatusUnauthorized},
		{"bad", fiber.StatusUnauthorized},
		{"", fiber.StatusUnauthorized},
	} {
		t.Run("login_as_"+d.login, func(t *testing.T) {
			resp, err := app.Req("GET", "/api/me", d.login, nil)
			require.NoError(t, err)
			assert.Equal(t, d.code, resp.StatusCode)
		})
	}

	resp, err := app.Req("GET", "/health", "", nil)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestMissionAccess(t *testing.T) {
	app := NewTestApp(t)

	resp, err := app.Req("POST", "/api/collections/missions/records", "usr1", model.MissionDTO{Title: "t", Location: "l"})
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	m := app.mission(t)
	assert.Equal(t, model.MissionActive, m.Status)

	resp, err = app.Req("PATCH", "/api/collections/missions/records/"+m.ID, "usr1", map[string]any{"status": "closed"})
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Req("GET", "/api/collections/missions/records?filter="+url.QueryEscape(`status = "active"`), "usr1", nil)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[listAnswer[model.MissionDTO]](t, resp).Items, 1)

	resp, err = app.Req("PATCH", "/api/collections/missions/records/"+m.ID, "adm1", map[string]any{"status": "closed"})
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, model.MissionClosed, decode[*model.MissionDTO](t, resp).Status)

	resp, err = app.Req("PATCH", "/api/collections/missions/records/nope", "adm1", map[string]any{"status": "closed"})
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Req("DELETE", "/api/collections/missions/records/"+m.ID, "adm1", nil)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestResponseAccess(t *testing.T) {
	app := NewTestApp(t)
	m := app.mission(t)

	usr1 := model.UserID("usr1")

	// someone else's response
	resp, err := app.Req("POST", "/api/collections/responses/records", "usr2",
		model.ResponseDTO{Mission: m.ID, User: usr1, Status: model.StatusStandby})
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Req("POST", "/api/collections/responses/records", "usr1",
		model.ResponseDTO{Mission: m.ID, User: usr1, Status: model.StatusResponding, ETA: "10:30"})
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	r := decode[*model.ResponseDTO](t, resp)
	assert.NotEmpty(t, r.ID)

	t.Run("duplicate", func(t *testing.T) {
		resp, err := app.Req("POST", "/api/collections/responses/records", "usr1",
			model.ResponseDTO{Mission: m.ID, User: usr1, Status: model.StatusStandby})
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("validation", func(t *testing.T) {
		resp, err := app.Req("PATCH", "/api/collections/responses/records/"+r.ID, "usr1", map[string]any{"eta": "25:99"})
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		body := decode[client.ErrorBody](t, resp)
		assert.Contains(t, body.Fields, "eta")
	})

	t.Run("not owner", func(t *testing.T) {
		resp, err := app.Req("PATCH", "/api/collections/responses/records/"+r.ID, "usr2", map[string]any{"status": "standby"})
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		resp, err = app.Req("DELETE", "/api/collections/responses/records/"+r.ID, "usr1", nil)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	resp, err = app.Req("PATCH", "/api/collections/responses/records/"+r.ID, "usr1", map[string]any{"status": "standby", "eta": ""})
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusStandby, decode[*model.ResponseDTO](t, resp).Status)

	q := "?expand=user&filter=" + url.QueryEscape(`mission = "`+m.ID+`"`)
	resp, err = app.Req("GET", "/api/collections/responses/records"+q, "usr2", nil)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	items := decode[listAnswer[model.ResponseDTO]](t, resp).Items
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Expand)
	assert.Equal(t, "usr1", items[0].Expand.User.Login)

	resp, err = app.Req("GET", "/api/collections/responses/records?filter="+url.QueryEscape(`color = "red"`), "usr2", nil)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Req("DELETE", "/api/collections/responses/records/"+r.ID, "adm1", nil)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestUsers(t *testing.T) {
	app := NewTestApp(t)

	resp, err := app.Req("GET", "/api/users", "usr1", nil)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "password")

	resp, err = app.Req("PATCH", "/api/users/me", "usr1", map[string]string{"username": "usr2"})
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Username is already taken.", decode[client.ErrorBody](t, resp).Message)

	resp, err = app.Req("PATCH", "/api/users/me", "usr1", map[string]string{"username": "bad name"})
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Req("PATCH", "/api/users/me", "usr1", map[string]string{"username": "usr9"})
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "usr9", decode[*model.UserDTO](t, resp).Login)

	// old login is gone
	resp, err = app.Req("GET", "/api/me", "usr1", nil)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateMap(t *testing.T) {
	app := NewTestApp(t)

	req := map[string]any{"title": "Lost hiker", "location": "Flattop", "lkp": []float64{61.1, -149.8}}

	resp, err := app.Req("POST", "/api/caltopo/create-map", "usr1", req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Req("POST", "/api/caltopo/create-map", "adm1", req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	ans := decode[client.MapAnswer](t, resp)
	assert.True(t, ans.Success)
	assert.Equal(t, "ABC", ans.MapID)
	require.NotNil(t, app.mapper.req.LKP)
	assert.InDelta(t, -149.8, app.mapper.req.LKP.Lon, 1e-9)
	assert.Nil(t, app.mapper.req.ICP)

	app.mapper.err = errors.New("boom")

	resp, err = app.Req("POST", "/api/caltopo/create-map", "adm1", req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "An internal error occurred while creating the map.", decode[client.MapAnswer](t, resp).Error)

	// 2 per minute
	resp, err = app.Req("POST", "/api/caltopo/create-map", "adm1", req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestCreateMapNoTitle(t *testing.T) {
	app := NewTestApp(t)

	resp, err := app.Req("POST", "/api/caltopo/create-map", "adm1", map[string]any{"location": "x"})
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, app.mapper.req)
}
