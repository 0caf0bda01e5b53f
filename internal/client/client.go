// Package client talks to a rescue server: the record collections, the
// realtime channel, users and the map service.
package client

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/rescuerespond/rescuerespond/internal/caltopo"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/model"
	"github.com/rescuerespond/rescuerespond/pkg/request"
)

const (
	MissionsCollection  = "missions"
	ResponsesCollection = "responses"
)

type Client struct {
	logger   *slog.Logger
	base     string
	password string

	mx    sync.RWMutex
	login string
	cl       *http.Client
	dialer   *websocket.Dialer

	missions  *Collection[model.Mission, model.MissionDTO, *model.MissionDTO]
	responses *Collection[model.Response, model.ResponseDTO, *model.ResponseDTO]
}

func New(base, login, password string, tlsConf *tls.Config, timeout time.Duration) *Client {
	c := &Client{
		logger:   slog.Default().With("logger", "client"),
		base:     strings.TrimSuffix(base, "/"),
		login:    login,
		password: password,
		cl:       &http.Client{Timeout: timeout, Transport: &http.Transport{TLSClientConfig: tlsConf}},
		dialer:   &websocket.Dialer{TLSClientConfig: tlsConf, HandshakeTimeout: timeout},
	}

	c.missions = newCollection[model.Mission, model.MissionDTO, *model.MissionDTO](c, MissionsCollection, (*model.Mission).DTO)
	c.responses = newCollection[model.Response, model.ResponseDTO, *model.ResponseDTO](c, ResponsesCollection, (*model.Response).DTO)

	return c
}

func (c *Client) Missions() store.Collection[model.Mission] {
	return c.missions
}

func (c *Client) Responses() store.Collection[model.Response] {
	return c.responses
}

func (c *Client) request(path string) *request.Request {
	return request.New(c.cl, c.logger).URL(c.base+path).Auth(c.Login(), c.password)
}

// Login is the username used for requests; Rename changes it.
func (c *Client) Login() string {
	c.mx.RLock()
	defer c.mx.RUnlock()

	return c.login
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var d model.UserDTO

	if err := c.request("/api/me").GetJSON(ctx, &d); err != nil {
		return nil, apiError("me", err)
	}

	return d.Model(), nil
}

func (c *Client) Users(ctx context.Context) ([]*model.User, error) {
	var ans listAnswer[model.UserDTO]

	if err := c.request("/api/users").GetJSON(ctx, &ans); err != nil {
		return nil, apiError("users", err)
	}

	res := make([]*model.User, 0, len(ans.Items))
	for _, d := range ans.Items {
		res = append(res, d.Model())
	}

	return res, nil
}

// Rename changes the own username; a taken name gives store.ErrUniqueViolation.
func (c *Client) Rename(ctx context.Context, login string) (*model.User, error) {
	var d model.UserDTO

	if err := c.request("/api/users/me").Patch().JSON(map[string]string{"username": login}).GetJSON(ctx, &d); err != nil {
		return nil, apiError("rename", err)
	}

	c.mx.Lock()
	c.login = d.Login
	c.mx.Unlock()

	return d.Model(), nil
}

// MapAnswer is the answer of the create-map endpoint.
type MapAnswer struct {
	Success bool   `json:"success"`
	MapID   string `json:"map_id,omitempty"`
	MapURL  string `json:"map_url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CreateMap asks the server to create a CalTopo map.
func (c *Client) CreateMap(ctx context.Context, r caltopo.MapRequest) (*caltopo.Map, error) {
	var ans MapAnswer

	if err := c.request("/api/caltopo/create-map").Post().JSON(r).GetJSON(ctx, &ans); err != nil {
		var se *request.StatusError
		if errors.As(err, &se) && se.Message != "" {
			return nil, errors.New(se.Message)
		}

		return nil, err
	}

	if !ans.Success || ans.MapURL == "" {
		return nil, fmt.Errorf("map is not created: %s", ans.Error)
	}

	return &caltopo.Map{ID: ans.MapID, URL: ans.MapURL}, nil
}

// Frame is a realtime change notification.
type Frame struct {
	Collection string          `json:"collection"`
	Action     store.Action    `json:"action"`
	Record     json.RawMessage `json:"record"`
}

func (c *Client) wsURL() string {
	u := c.base + "/api/realtime"

	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return u
	}
}

// Listen reads realtime frames and feeds them to the collections until ctx
// is done or the connection drops. It does not reconnect.
func (c *Client) Listen(ctx context.Context) error {
	h := http.Header{}
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.Login()+":"+c.password)))

	conn, res, err := c.dialer.DialContext(ctx, c.wsURL(), h)
	if err != nil {
		if res != nil {
			return apiError("realtime", &request.StatusError{Code: res.StatusCode, Status: res.Status})
		}

		return &store.TransportError{Op: "realtime", Err: err}
	}

	c.logger.Info("realtime connected")

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	defer conn.Close()

	for {
		var f Frame

		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return &store.TransportError{Op: "realtime", Err: err}
		}

		if err := c.dispatch(&f); err != nil {
			c.logger.Warn("bad realtime frame", slog.String("collection", f.Collection), slog.Any("error", err))
		}
	}
}

func (c *Client) dispatch(f *Frame) error {
	switch f.Collection {
	case MissionsCollection:
		return c.missions.publish(f.Action, f.Record)
	case ResponsesCollection:
		return c.responses.publish(f.Action, f.Record)
	default:
		return nil
	}
}

func decode(raw []byte, v any) error {
	if len(raw) == 0 {
		return errors.New("empty record")
	}

	return json.Unmarshal(raw, v)
}
