package database

import (
	"errors"

	"gorm.io/gorm"
)

var ErrNoRecord = errors.New("no record found")

type cond struct {
	column string
	value  any
}

type Query[T any] struct {
	db     *gorm.DB
	limit  int
	offset int
	order  string
	conds  []cond
}

func (q *Query[T]) eq(column string, value any) {
	q.conds = append(q.conds, cond{column: column, value: value})
}

func (q *Query[T]) apply(tx *gorm.DB) *gorm.DB {
	for _, c := range q.conds {
		tx = tx.Where(c.column+" = ?", c.value)
	}

	return tx
}

func (q *Query[T]) get(tx *gorm.DB) ([]*T, error) {
	var res []*T

	if q.order != "" {
		tx = tx.Order(q.order)
	}

	if q.limit > 0 {
		tx = tx.Limit(q.limit)
	}

	if q.offset > 0 {
		tx = tx.Offset(q.offset)
	}

	err := tx.Find(&res).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	return res, err
}

func (q *Query[T]) one(tx *gorm.DB) (*T, error) {
	res := new(T)

	err := tx.Take(res).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return res, nil
}

func (q *Query[T]) count(tx *gorm.DB) int64 {
	var n int64

	tx.Count(&n)

	return n
}

func (q *Query[T]) updateOrError(tx *gorm.DB, updates map[string]any) error {
	tx = tx.Updates(updates)

	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return ErrNoRecord
	}

	return nil
}
