package repository

import (
	"exam_prep_backend/internal/model"

	"gorm.io/gorm"
)

type SnapshotRepository struct {
	DB *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{DB: db}
}

// CreateBatch 整组落库；任何一行撞唯一索引则整组失败，不会留下部分快照
func (r *SnapshotRepository) CreateBatch(rows []model.QuestionSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
}

func (r *SnapshotRepository) FindByPaperAndUser(paperID string, userID uint) ([]model.QuestionSnapshot, error) {
	var rows []model.QuestionSnapshot
	err := r.DB.Where("paper_id = ? AND user_id = ?", paperID, userID).
		Order("question_index ASC").Find(&rows).Error
	return rows, err
}

func (r *SnapshotRepository) DeleteByPaper(paperID string) error {
	return r.DB.Where("paper_id = ?", paperID).Delete(&model.QuestionSnapshot{}).Error
}
