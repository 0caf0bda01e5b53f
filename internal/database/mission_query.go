package database

import (
	"gorm.io/gorm"

	"github.com/rescuerespond/rescuerespond/pkg/model"
)

type MissionQuery struct {
	Query[model.Mission]
	id     string
	status model.MissionStatus
}

func NewMissionQuery(db *gorm.DB) *MissionQuery {
	return &MissionQuery{
		Query: Query[model.Mission]{
			db:     db,
			limit:  100,
			offset: 0,
			order:  "missions.created_at DESC",
		},
	}
}

func (q *MissionQuery) Order(s string) *MissionQuery {
	if q == nil {
		return nil
	}

	q.order = s
	return q
}

func (q *MissionQuery) Limit(n int) *MissionQuery {
	if q == nil {
		return nil
	}

	q.limit = n
	return q
}

func (q *MissionQuery) Offset(n int) *MissionQuery {
	if q == nil {
		return nil
	}

	q.offset = n
	return q
}

func (q *MissionQuery) Id(id string) *MissionQuery {
	if q == nil {
		return nil
	}

	q.id = id
	return q
}

func (q *MissionQuery) Status(s model.MissionStatus) *MissionQuery {
	if q == nil {
		return nil
	}

	q.status = s
	return q
}

func (q *MissionQuery) Eq(column string, value any) *MissionQuery {
	if q == nil {
		return nil
	}

	q.eq("missions."+column, value)
	return q
}

func (q *MissionQuery) where() *gorm.DB {
	tx := q.db

	if q.id != "" {
		tx = tx.Where("missions.id = ?", q.id)
	}

	if q.status != "" {
		tx = tx.Where("missions.status = ?", q.status)
	}

	return q.apply(tx)
}

func (q *MissionQuery) Get() ([]*model.Mission, error) {
	return q.get(q.where().Model(&model.Mission{}))
}

func (q *MissionQuery) One() (*model.Mission, error) {
	return q.one(q.where().Model(&model.Mission{}))
}

func (q *MissionQuery) Count() int64 {
	return q.count(q.where().Model(&model.Mission{}))
}

func (q *MissionQuery) Update(updates map[string]any) error {
	return q.updateOrError(q.where().Model(&model.Mission{}), updates)
}

func (q *MissionQuery) Delete(id string) error {
	return q.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Mission{})

		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return ErrNoRecord
		}

		return tx.Where("mission_id = ?", id).Delete(&model.Response{}).Error
	})
}
