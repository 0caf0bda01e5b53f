package model

import (
	"strings"
	"time"

	"golang.org/x/net/html"
)

type MissionStatus string

const (
	MissionActive MissionStatus = "active"
	MissionClosed MissionStatus = "closed"
)

func (s MissionStatus) Valid() bool {
	return s == MissionActive || s == MissionClosed
}

type Mission struct {
	ID        string        `gorm:"primaryKey;size:36"`
	CreatedAt time.Time     `gorm:"index"`
	UpdatedAt time.Time
	Title     string        `gorm:"not null;size:255"`
	Location  string        `gorm:"not null;size:255"`
	MapURL    string        `gorm:"size:1024"`
	Status    MissionStatus `gorm:"index;not null;size:16"`
}

type MissionDTO struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Location string        `json:"location"`
	MapURL   string        `json:"map_url,omitempty"`
	Status   MissionStatus `json:"status"`
	Created  time.Time     `json:"created"`
	Updated  time.Time     `json:"updated"`
}

func (m *Mission) GetID() string {
	if m == nil {
		return ""
	}

	return m.ID
}

func (m *Mission) Copy() *Mission {
	if m == nil {
		return nil
	}

	c := *m

	return &c
}

func (m *Mission) IsActive() bool {
	return m != nil && m.Status == MissionActive
}

func (m *Mission) DTO() *MissionDTO {
	if m == nil {
		return nil
	}

	return &MissionDTO{
		ID:       m.ID,
		Title:    m.Title,
		Location: m.Location,
		MapURL:   m.MapURL,
		Status:   m.Status,
		Created:  m.CreatedAt,
		Updated:  m.UpdatedAt,
	}
}

func (d *MissionDTO) Model() *Mission {
	if d == nil {
		return nil
	}

	return &Mission{
		ID:        d.ID,
		Title:     d.Title,
		Location:  d.Location,
		MapURL:    d.MapURL,
		Status:    d.Status,
		CreatedAt: d.Created,
		UpdatedAt: d.Updated,
	}
}

// CleanText trims free text and decodes html entities left by copy-paste.
func CleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}
