package repository

import (
	"database/sql"
	"time"

	"exam_prep_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.Attempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) Update(attempt *model.Attempt) error {
	return r.DB.Save(attempt).Error
}

func (r *AttemptRepository) FindByIDAndUser(id string, userID uint) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.DB.Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CountByUserSince 统计某时间点之后开始的答题数（每日配额用当日零点）
func (r *AttemptRepository) CountByUserSince(userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).
		Where("user_id = ? AND started_at >= ?", userID, since).Count(&count).Error
	return count, err
}

// FindByUserSince 按开始时间倒序列出答题记录；start 为空表示不限起点
func (r *AttemptRepository) FindByUserSince(userID uint, start *time.Time, limit int) ([]model.Attempt, error) {
	q := r.DB.Where("user_id = ?", userID)
	if start != nil {
		q = q.Where("started_at >= ?", *start)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var attempts []model.Attempt
	err := q.Order("started_at DESC").Find(&attempts).Error
	return attempts, err
}

// LatestStartedAt 最近一次开始答题的时间，没有记录时返回 nil
func (r *AttemptRepository) LatestStartedAt(userID uint) (*time.Time, error) {
	var latest sql.NullTime
	err := r.DB.Model(&model.Attempt{}).Where("user_id = ?", userID).
		Select("MAX(started_at)").Row().Scan(&latest)
	if err != nil {
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	t := latest.Time
	return &t, nil
}

// FindInProgress 进行中的答题（数量有限，超时判定在服务层做，保持 SQL 方言无关）
func (r *AttemptRepository) FindInProgress() ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.Where("status = ?", model.AttemptInProgress).Find(&attempts).Error
	return attempts, err
}
