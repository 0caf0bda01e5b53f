package database

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rescuerespond/rescuerespond/pkg/model"
	"github.com/rescuerespond/rescuerespond/pkg/util"
)

type DatabaseManager struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB) *DatabaseManager {
	m := &DatabaseManager{
		db:     db,
		logger: slog.With("logger", "dbm"),
	}

	return m
}

// WithContext returns a manager bound to ctx.
func (mm *DatabaseManager) WithContext(ctx context.Context) *DatabaseManager {
	if mm == nil || mm.db == nil {
		return mm
	}

	return &DatabaseManager{db: mm.db.WithContext(ctx), logger: mm.logger}
}

func (mm *DatabaseManager) DB() *gorm.DB {
	if mm == nil {
		return nil
	}

	return mm.db
}

func (mm *DatabaseManager) Create(s any) error {
	if mm == nil || mm.db == nil {
		return nil
	}

	err := mm.db.Omit(clause.Associations).Create(s).Error

	if err != nil && !IsUnique(err) {
		mm.logger.Error("error create object", slog.Any("error", err))
	}

	return err
}

func (mm *DatabaseManager) Save(s any) error {
	if mm == nil || mm.db == nil {
		return nil
	}

	err := mm.db.Omit(clause.Associations).Save(s).Error

	if err != nil {
		mm.logger.Error("error saving object", slog.Any("error", err))
	}

	return err
}

// Migrate removes duplicated responses left from older databases before the
// unique (mission, user) index is created.
func (mm *DatabaseManager) Migrate() error {
	if mm == nil || mm.db == nil {
		return nil
	}

	if err := mm.db.AutoMigrate(&model.User{}, &model.Mission{}); err != nil {
		return err
	}

	if mm.db.Migrator().HasTable(&model.Response{}) {
		n, err := mm.DedupResponses()
		if err != nil {
			return err
		}

		if n > 0 {
			mm.logger.Warn("removed duplicated responses", slog.Int64("count", n))
		}
	}

	return mm.db.AutoMigrate(&model.Response{})
}

// DedupResponses keeps the newest response for every (mission, user) pair.
func (mm *DatabaseManager) DedupResponses() (int64, error) {
	var rows []*model.Response

	if err := mm.db.Model(&model.Response{}).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return 0, err
	}

	seen := util.NewSet[string]()
	var toRemove []string

	for _, r := range rows {
		if !seen.AddNew(r.MissionID + "|" + r.UserID) {
			toRemove = append(toRemove, r.ID)
		}
	}

	if len(toRemove) == 0 {
		return 0, nil
	}

	res := mm.db.Where("id IN ?", toRemove).Delete(&model.Response{})

	return res.RowsAffected, res.Error
}

func (mm *DatabaseManager) MissionQuery() *MissionQuery {
	return NewMissionQuery(mm.db)
}

func (mm *DatabaseManager) ResponseQuery() *ResponseQuery {
	return NewResponseQuery(mm.db)
}

func (mm *DatabaseManager) UserQuery() *UserQuery {
	return NewUserQuery(mm.db)
}

func (mm *DatabaseManager) GetUser(login string) *model.User {
	if mm == nil || mm.db == nil {
		return nil
	}

	u, err := mm.UserQuery().Login(login).One()
	if err != nil {
		mm.logger.Error("error get user", slog.String("login", login), slog.Any("error", err))
	}

	return u
}

func IsUnique(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
