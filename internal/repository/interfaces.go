package repository

import (
	"context"

	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

type UserRepository interface {
	Start() error
	Stop()
	CheckAuth(login, password string) bool
	Get(login string) *model.User
	GetByID(id string) *model.User
	List() []*model.User
	Rename(ctx context.Context, id, login string) (*model.User, error)
}

var (
	_ store.Collection[model.Mission]  = &MissionRepo{}
	_ store.Collection[model.Response] = &ResponseRepo{}
	_ UserRepository                   = &UserDbRepository{}
)
