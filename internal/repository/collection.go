package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rescuerespond/rescuerespond/internal/database"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/eta"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

// columns maps public record field names to database columns.
type columns map[string]string

var (
	missionColumns = columns{
		"id":       "id",
		"title":    "title",
		"location": "location",
		"map_url":  "map_url",
		"status":   "status",
		"created":  "created_at",
		"updated":  "updated_at",
	}

	responseColumns = columns{
		"id":      "id",
		"mission": "mission_id",
		"user":    "user_id",
		"status":  "status",
		"eta":     "eta",
		"created": "created_at",
		"updated": "updated_at",
	}
)

// conds parses a filter expression into column conditions.
func (c columns) conds(filter string) ([][2]string, error) {
	terms, err := store.ParseFilter(filter)
	if err != nil {
		return nil, store.NewValidationError("filter", err.Error())
	}

	res := make([][2]string, 0, len(terms))

	for _, t := range terms {
		col, ok := c[t.Field]
		if !ok {
			return nil, store.NewValidationError("filter", fmt.Sprintf("unknown field %q", t.Field))
		}

		res = append(res, [2]string{col, t.Value})
	}

	return res, nil
}

func (c columns) order(table, sort, def string) (string, error) {
	if strings.TrimSpace(sort) == "" {
		sort = def
	}

	field, desc := store.ParseSort(sort)

	col, ok := c[field]
	if !ok {
		return "", store.NewValidationError("sort", fmt.Sprintf("unknown field %q", field))
	}

	o := table + "." + col
	if desc {
		o += " DESC"
	}

	return o, nil
}

// dbError converts database failures to store errors.
func dbError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNoRecord):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case database.IsUnique(err):
		return fmt.Errorf("%s: %w", op, store.ErrUniqueViolation)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func validETA(s string) bool {
	if s == "" || s == eta.TBD {
		return true
	}

	_, ok := eta.ParseClock(s)

	return ok
}

func validateResponse(r *model.Response) error {
	ve := &store.ValidationError{}

	if r.MissionID == "" {
		ve.Add("mission", "required")
	}

	if r.UserID == "" {
		ve.Add("user", "required")
	}

	if !r.Status.Valid() {
		ve.Add("status", fmt.Sprintf("unknown status %q", r.Status))
	}

	if !validETA(r.ETA) {
		ve.Add("eta", "must be HH:MM or TBD")
	}

	if ve.Empty() {
		return nil
	}

	return ve
}

func validateMission(m *model.Mission) error {
	ve := &store.ValidationError{}

	if m.Title == "" {
		ve.Add("title", "required")
	}

	if m.Location == "" {
		ve.Add("location", "required")
	}

	if !m.Status.Valid() {
		ve.Add("status", fmt.Sprintf("unknown status %q", m.Status))
	}

	if ve.Empty() {
		return nil
	}

	return ve
}

// updates converts incoming record fields to column updates.
func (c columns) updates(fields map[string]any, allowed ...string) (map[string]any, error) {
	res := make(map[string]any, len(fields))
	ve := &store.ValidationError{}

	for k, v := range fields {
		if !contains(allowed, k) {
			ve.Add(k, "field can't be changed")
			continue
		}

		switch s := v.(type) {
		case string:
			res[c[k]] = s
		case model.ResponseStatus:
			res[c[k]] = string(s)
		case model.MissionStatus:
			res[c[k]] = string(s)
		default:
			ve.Add(k, "must be a string")
		}
	}

	if !ve.Empty() {
		return nil, ve
	}

	return res, nil
}

func contains(l []string, s string) bool {
	for _, x := range l {
		if x == s {
			return true
		}
	}

	return false
}
