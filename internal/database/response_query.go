package database

import (
	"gorm.io/gorm"

	"github.com/rescuerespond/rescuerespond/pkg/model"
)

type ResponseQuery struct {
	Query[model.Response]
	id        string
	missionID string
	userID    string
	full      bool
}

func NewResponseQuery(db *gorm.DB) *ResponseQuery {
	return &ResponseQuery{
		Query: Query[model.Response]{
			db:     db,
			limit:  0,
			offset: 0,
			order:  "responses.created_at",
		},
	}
}

func (q *ResponseQuery) Order(s string) *ResponseQuery {
	if q == nil {
		return nil
	}

	q.order = s
	return q
}

func (q *ResponseQuery) Limit(n int) *ResponseQuery {
	if q == nil {
		return nil
	}

	q.limit = n
	return q
}

func (q *ResponseQuery) Id(id string) *ResponseQuery {
	if q == nil {
		return nil
	}

	q.id = id
	return q
}

func (q *ResponseQuery) Mission(id string) *ResponseQuery {
	if q == nil {
		return nil
	}

	q.missionID = id
	return q
}

func (q *ResponseQuery) User(id string) *ResponseQuery {
	if q == nil {
		return nil
	}

	q.userID = id
	return q
}

func (q *ResponseQuery) Eq(column string, value any) *ResponseQuery {
	if q == nil {
		return nil
	}

	q.eq("responses."+column, value)
	return q
}

// Full preloads the owning user of every response.
func (q *ResponseQuery) Full() *ResponseQuery {
	if q == nil {
		return nil
	}

	q.full = true
	return q
}

func (q *ResponseQuery) where() *gorm.DB {
	tx := q.db

	if q.id != "" {
		tx = tx.Where("responses.id = ?", q.id)
	}

	if q.missionID != "" {
		tx = tx.Where("responses.mission_id = ?", q.missionID)
	}

	if q.userID != "" {
		tx = tx.Where("responses.user_id = ?", q.userID)
	}

	if q.full {
		tx = tx.Preload("User")
	}

	return q.apply(tx)
}

func (q *ResponseQuery) Get() ([]*model.Response, error) {
	return q.get(q.where().Model(&model.Response{}))
}

func (q *ResponseQuery) One() (*model.Response, error) {
	return q.one(q.where().Model(&model.Response{}))
}

func (q *ResponseQuery) Count() int64 {
	return q.count(q.where().Model(&model.Response{}))
}

func (q *ResponseQuery) Update(updates map[string]any) error {
	return q.updateOrError(q.where().Model(&model.Response{}), updates)
}

func (q *ResponseQuery) Delete(id string) error {
	res := q.db.Where("id = ?", id).Delete(&model.Response{})

	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrNoRecord
	}

	return nil
}
