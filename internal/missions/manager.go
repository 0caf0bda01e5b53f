package missions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rescuerespond/rescuerespond/internal/caltopo"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/coord"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

const coordHint = "Invalid format. Try DDM (61°06.28 -149°47.73) or DD."

var ErrCancelled = errors.New("mission creation cancelled")

type Mapper interface {
	CreateMap(ctx context.Context, r caltopo.MapRequest) (*caltopo.Map, error)
}

type MissionInput struct {
	Title    string
	Location string
	MapURL   string
	LKP      string
	ICP      string
}

// MissionEdit holds the fields to change; nil fields are kept.
type MissionEdit struct {
	Title    *string
	Location *string
	MapURL   *string
}

type Manager struct {
	logger   *slog.Logger
	missions store.Collection[model.Mission]
	mapper   Mapper
}

// NewManager creates a manager; mapper may be nil to never create maps.
func NewManager(missions store.Collection[model.Mission], mapper Mapper) *Manager {
	return &Manager{
		logger:   slog.Default().With("logger", "missions"),
		missions: missions,
		mapper:   mapper,
	}
}

// Validate checks the input and parses its coordinates.
func Validate(in MissionInput) (lkp, icp *coord.LatLon, err error) {
	ve := &store.ValidationError{}

	if model.CleanText(in.Title) == "" {
		ve.Add("title", "Title is required.")
	}

	if model.CleanText(in.Location) == "" {
		ve.Add("location", "Location is required.")
	}

	lkp, err1 := coord.Parse(in.LKP)
	if err1 != nil {
		ve.Add("lkp", coordHint)
	}

	icp, err2 := coord.Parse(in.ICP)
	if err2 != nil {
		ve.Add("icp", coordHint)
	}

	if !ve.Empty() {
		return nil, nil, ve
	}

	return lkp, icp, nil
}

// Create validates the input, requests a map when no map url is given and
// creates an active mission. When the map can't be created confirm decides
// whether to go on without it; a nil confirm or false gives ErrCancelled.
func (m *Manager) Create(ctx context.Context, in MissionInput, confirm func(err error) bool) (*model.Mission, error) {
	lkp, icp, err := Validate(in)
	if err != nil {
		return nil, err
	}

	mission := &model.Mission{
		Title:    model.CleanText(in.Title),
		Location: model.CleanText(in.Location),
		MapURL:   strings.TrimSpace(in.MapURL),
		Status:   model.MissionActive,
	}

	if mission.MapURL == "" && m.mapper != nil {
		res, err := m.mapper.CreateMap(ctx, caltopo.MapRequest{
			Title:    mission.Title,
			Location: mission.Location,
			LKP:      lkp,
			ICP:      icp,
		})

		if err != nil {
			m.logger.Warn("failed to auto-create map", slog.Any("error", err))

			if confirm == nil || !confirm(err) {
				return nil, ErrCancelled
			}
		} else {
			mission.MapURL = res.URL
		}
	}

	return m.missions.Create(ctx, mission)
}

// CloseAll closes every active mission and returns how many were closed.
func (m *Manager) CloseAll(ctx context.Context) (int, error) {
	list, err := m.missions.List(ctx, store.Query{Filter: store.Eq("status", string(model.MissionActive))})
	if err != nil {
		return 0, err
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, mission := range list {
		mission := mission
		g.Go(func() error {
			if _, err := m.missions.Update(ctx, mission.ID, map[string]any{"status": string(model.MissionClosed)}); err != nil {
				return fmt.Errorf("close mission %s: %w", mission.ID, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	m.logger.Info(fmt.Sprintf("closed %d missions", len(list)))

	return len(list), nil
}

func (m *Manager) Edit(ctx context.Context, id string, e MissionEdit) (*model.Mission, error) {
	fields := make(map[string]any)
	ve := &store.ValidationError{}

	if e.Title != nil {
		if model.CleanText(*e.Title) == "" {
			ve.Add("title", "Title is required.")
		}

		fields["title"] = *e.Title
	}

	if e.Location != nil {
		if model.CleanText(*e.Location) == "" {
			ve.Add("location", "Location is required.")
		}

		fields["location"] = *e.Location
	}

	if e.MapURL != nil {
		fields["map_url"] = strings.TrimSpace(*e.MapURL)
	}

	if !ve.Empty() {
		return nil, ve
	}

	return m.missions.Update(ctx, id, fields)
}
