package model

import (
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 14

type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleResponder Role = "Responder"
)

var userNamespace = uuid.MustParse("6f1b1c3e-9a53-4b53-a1a4-2f0d0f1c2b7e")

type User struct {
	ID       string `gorm:"primaryKey;size:36" yaml:"id,omitempty"`
	Login    string `gorm:"uniqueIndex;not null;size:255" yaml:"user"`
	Name     string `gorm:"not null;default:''" yaml:"name,omitempty"`
	Role     Role   `gorm:"not null;default:'Responder'" yaml:"role,omitempty"`
	MemberID string `gorm:"not null;default:''" yaml:"member_id,omitempty"`
	Password string `gorm:"not null" yaml:"password"`
	Disabled bool   `gorm:"not null;default:false" yaml:"disabled,omitempty"`
}

type UserDTO struct {
	ID       string `json:"id"`
	Login    string `json:"username"`
	Name     string `json:"name,omitempty"`
	Role     Role   `json:"role"`
	MemberID string `json:"member_id,omitempty"`
}

// UserID returns a stable id for a login, used when the users file has none.
func UserID(login string) string {
	return uuid.NewSHA1(userNamespace, []byte(login)).String()
}

func (u *User) GetID() string {
	if u == nil {
		return ""
	}

	return u.ID
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) CheckPassword(password string) bool {
	if u == nil {
		return false
	}

	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	if err != nil {
		slog.Debug("password check failed", slog.Any("error", err))
		return false
	}

	return true
}

func (u *User) SetPassword(password string) error {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}

	u.Password = string(b)
	return nil
}

func (u *User) DTO() *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:       u.ID,
		Login:    u.Login,
		Name:     u.Name,
		Role:     u.Role,
		MemberID: u.MemberID,
	}
}

func (d *UserDTO) Model() *User {
	if d == nil {
		return nil
	}

	return &User{
		ID:       d.ID,
		Login:    d.Login,
		Name:     d.Name,
		Role:     d.Role,
		MemberID: d.MemberID,
	}
}
