package database

import (
	"gorm.io/gorm"

	"github.com/rescuerespond/rescuerespond/pkg/model"
)

type UserQuery struct {
	Query[model.User]
	id    string
	login string
}

func NewUserQuery(db *gorm.DB) *UserQuery {
	return &UserQuery{
		Query: Query[model.User]{
			db:     db,
			limit:  0,
			offset: 0,
			order:  "name",
		},
	}
}

func (q *UserQuery) Order(s string) *UserQuery {
	q.order = s
	return q
}

func (q *UserQuery) Id(id string) *UserQuery {
	q.id = id
	return q
}

func (q *UserQuery) Login(login string) *UserQuery {
	q.login = login
	return q
}

func (q *UserQuery) where() *gorm.DB {
	tx := q.db

	if q.id != "" {
		tx = tx.Where("id = ?", q.id)
	}

	if q.login != "" {
		tx = tx.Where("login = ?", q.login)
	}

	return tx
}

func (q *UserQuery) Get() ([]*model.User, error) {
	return q.get(q.where().Model(&model.User{}))
}

func (q *UserQuery) One() (*model.User, error) {
	return q.one(q.where().Model(&model.User{}))
}

func (q *UserQuery) Count() int64 {
	return q.count(q.where().Model(&model.User{}))
}

func (q *UserQuery) Update(updates map[string]any) error {
	return q.updateOrError(q.where().Model(&model.User{}), updates)
}
