package repository

import (
	"exam_prep_backend/internal/model"

	"gorm.io/gorm"
)

type PaperRepository struct {
	DB *gorm.DB
}

func NewPaperRepository(db *gorm.DB) *PaperRepository {
	return &PaperRepository{DB: db}
}

func (r *PaperRepository) Create(paper *model.Paper) error {
	return r.DB.Create(paper).Error
}

// FindByIDAndUser 所有读取都按归属用户过滤，不存在与无权访问表现一致
func (r *PaperRepository) FindByIDAndUser(id string, userID uint) (*model.Paper, error) {
	var p model.Paper
	if err := r.DB.Where("id = ? AND user_id = ?", id, userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaperRepository) FindByUser(userID uint) ([]model.Paper, error) {
	var papers []model.Paper
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at DESC").Find(&papers).Error
	return papers, err
}

func (r *PaperRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Paper{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *PaperRepository) Delete(id string, userID uint) error {
	return r.DB.Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Paper{}).Error
}
