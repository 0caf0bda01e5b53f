package model

import (
	"time"
)

type ResponseStatus string

const (
	StatusResponding  ResponseStatus = "responding"
	StatusStandby     ResponseStatus = "standby"
	StatusUnavailable ResponseStatus = "unavailable"
)

var Statuses = []ResponseStatus{StatusResponding, StatusStandby, StatusUnavailable}

func (s ResponseStatus) Valid() bool {
	switch s {
	case StatusResponding, StatusStandby, StatusUnavailable:
		return true
	default:
		return false
	}
}

func (s ResponseStatus) Label() string {
	switch s {
	case StatusResponding:
		return "Responding"
	case StatusStandby:
		return "Standby"
	case StatusUnavailable:
		return "Not Available"
	default:
		return string(s)
	}
}

type Response struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	UpdatedAt time.Time
	MissionID string         `gorm:"not null;size:36;uniqueIndex:idx_mission_user"`
	UserID    string         `gorm:"not null;size:36;uniqueIndex:idx_mission_user"`
	Status    ResponseStatus `gorm:"size:32"`
	ETA       string         `gorm:"size:16"`
	User      *User          `gorm:"foreignKey:UserID"`
}

type ResponseDTO struct {
	ID      string          `json:"id"`
	Mission string          `json:"mission"`
	User    string          `json:"user"`
	Status  ResponseStatus  `json:"status"`
	ETA     string          `json:"eta"`
	Created time.Time       `json:"created"`
	Updated time.Time       `json:"updated"`
	Expand  *ResponseExpand `json:"expand,omitempty"`
}

type ResponseExpand struct {
	User *UserDTO `json:"user,omitempty"`
}

// RosterEntry is a response joined with its owner.
type RosterEntry struct {
	Response *Response
	User     *User
}

func (r *Response) GetID() string {
	if r == nil {
		return ""
	}

	return r.ID
}

func (r *Response) Copy() *Response {
	if r == nil {
		return nil
	}

	c := *r

	return &c
}

func (r *Response) DTO() *ResponseDTO {
	if r == nil {
		return nil
	}

	d := &ResponseDTO{
		ID:      r.ID,
		Mission: r.MissionID,
		User:    r.UserID,
		Status:  r.Status,
		ETA:     r.ETA,
		Created: r.CreatedAt,
		Updated: r.UpdatedAt,
	}

	if r.User != nil {
		d.Expand = &ResponseExpand{User: r.User.DTO()}
	}

	return d
}

func (d *ResponseDTO) Model() *Response {
	if d == nil {
		return nil
	}

	r := &Response{
		ID:        d.ID,
		MissionID: d.Mission,
		UserID:    d.User,
		Status:    d.Status,
		ETA:       d.ETA,
		CreatedAt: d.Created,
		UpdatedAt: d.Updated,
	}

	if d.Expand != nil {
		r.User = d.Expand.User.Model()
	}

	return r
}

func (r *Response) RosterEntry() *RosterEntry {
	if r == nil {
		return nil
	}

	return &RosterEntry{Response: r, User: r.User}
}

func (e *RosterEntry) Name() string {
	if e == nil || e.User == nil {
		return "unknown"
	}

	return FirstString(e.User.Name, e.User.Login)
}
