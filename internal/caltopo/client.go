// Package caltopo creates mission maps through the CalTopo team API.
package caltopo

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rescuerespond/rescuerespond/pkg/coord"
	"github.com/rescuerespond/rescuerespond/pkg/request"
)

const (
	DefaultURL = "https://caltopo.com"
	expiresIn  = 5 * time.Minute
)

var ErrNotConfigured = errors.New("caltopo is not configured")

type Config struct {
	URL        string
	CredID     string
	CredSecret string
	TeamID     string
	TemplateID string
}

// MapRequest is a map to create. Coordinates are optional.
type MapRequest struct {
	Title    string        `json:"title"`
	Location string        `json:"location"`
	LKP      *coord.LatLon `json:"lkp"`
	ICP      *coord.LatLon `json:"icp"`
}

type Map struct {
	ID  string
	URL string
}

type Client struct {
	logger     *slog.Logger
	cl         *http.Client
	base       string
	credID     string
	secret     []byte
	teamID     string
	templateID string
	now        func() time.Time
}

func New(conf Config) (*Client, error) {
	if conf.CredID == "" || conf.CredSecret == "" || conf.TeamID == "" {
		return nil, ErrNotConfigured
	}

	secret, err := base64.StdEncoding.DecodeString(conf.CredSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 secret: %w", err)
	}

	base := strings.TrimSuffix(conf.URL, "/")
	if base == "" {
		base = DefaultURL
	}

	return &Client{
		logger:     slog.Default().With("logger", "caltopo"),
		cl:         &http.Client{Timeout: time.Second * 20},
		base:       base,
		credID:     conf.CredID,
		secret:     secret,
		teamID:     conf.TeamID,
		templateID: conf.TemplateID,
		now:        time.Now,
	}, nil
}

// Sign returns the base64 HMAC-SHA256 of "METHOD endpoint\nexpires\npayload".
func Sign(secret []byte, method, endpoint string, expires int64, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(method + " " + endpoint + "\n" + strconv.FormatInt(expires, 10) + "\n" + payload))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Client) MapURL(id string) string {
	return DefaultURL + "/m/" + id
}

type answer struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload any, res any) error {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	var payloadStr string

	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		payloadStr = string(b)
	}

	expires := c.now().Add(expiresIn).UnixMilli()

	params := map[string]string{
		"id":        c.credID,
		"expires":   strconv.FormatInt(expires, 10),
		"signature": Sign(c.secret, method, endpoint, expires, payloadStr),
	}

	req := request.New(c.cl, c.logger).URL(c.base + endpoint)

	if method == http.MethodPost {
		form := url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}

		if payloadStr != "" {
			form.Set("json", payloadStr)
		}

		req.Post().Form(form)
	} else {
		req.Args(params)
	}

	var a answer

	if err := req.GetJSON(ctx, &a); err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	if res == nil {
		return nil
	}

	if len(a.Result) == 0 {
		return fmt.Errorf("%s %s: empty result", method, endpoint)
	}

	return json.Unmarshal(a.Result, res)
}

// TemplateState fetches the features of the template map with their ids
// removed, so they can be copied to a new map.
func (c *Client) TemplateState(ctx context.Context) (map[string]any, error) {
	if c.templateID == "" {
		return map[string]any{"features": []any{}}, nil
	}

	var res struct {
		State map[string]any `json:"state"`
	}

	if err := c.send(ctx, http.MethodGet, "/api/v1/map/"+c.templateID+"/since/0", nil, &res); err != nil {
		return nil, err
	}

	if res.State == nil {
		res.State = make(map[string]any)
	}

	if features, ok := res.State["features"].([]any); ok {
		for _, f := range features {
			if m, ok := f.(map[string]any); ok {
				delete(m, "id")
				delete(m, "folderId")
			}
		}
	}

	return res.State, nil
}

func point(ll *coord.LatLon, title, description, symbol, color string) map[string]any {
	return map[string]any{
		"type": "Feature",
		"geometry": map[string]any{
			"type":        "Point",
			"coordinates": ll.GeoJSON(),
		},
		"properties": map[string]any{
			"title":         title,
			"description":   description,
			"marker-symbol": symbol,
			"marker-color":  color,
		},
	}
}

// CreateMap copies the template map, adds LKP and ICP markers and saves it
// as a new team map. A failing template fetch gives an empty map.
func (c *Client) CreateMap(ctx context.Context, r MapRequest) (*Map, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}

	if strings.TrimSpace(r.Title) == "" {
		return nil, errors.New("title is required")
	}

	state, err := c.TemplateState(ctx)
	if err != nil {
		c.logger.Warn("failed to fetch template", slog.Any("error", err))
		state = map[string]any{}
	}

	features, _ := state["features"].([]any)

	if r.LKP != nil {
		features = append(features, point(r.LKP, "LKP", "Last Known Point", "star", "FF0000"))
	}

	if r.ICP != nil {
		features = append(features, point(r.ICP, "ICP", "Incident Command Post", "flag", "0000FF"))
	}

	if features == nil {
		features = []any{}
	}

	state["features"] = features

	mapConfig, _ := json.Marshal(map[string]any{"activeLayers": [][]any{{"mbt", 1}}})

	payload := map[string]any{
		"properties": map[string]any{
			"title":     r.Title,
			"mode":      "sar",
			"sharing":   "SECRET",
			"mapConfig": string(mapConfig),
		},
		"state": state,
	}

	var res struct {
		ID string `json:"id"`
	}

	if err := c.send(ctx, http.MethodPost, "/api/v1/acct/"+c.teamID+"/CollaborativeMap", payload, &res); err != nil {
		return nil, err
	}

	if res.ID == "" {
		return nil, errors.New("no map id in answer")
	}

	c.logger.Info("map created", slog.String("id", res.ID), slog.String("title", r.Title))

	return &Map{ID: res.ID, URL: c.MapURL(res.ID)}, nil
}
