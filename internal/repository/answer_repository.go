package repository

import (
	"exam_prep_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerRepository struct {
	DB *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{DB: db}
}

// Upsert 按 (attempt_id, question_index) 保存作答，一题至多一行
func (r *AnswerRepository) Upsert(answer *model.Answer) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_index"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"selected_option", "is_flagged", "updated_at",
		}),
	}).Create(answer).Error
}

func (r *AnswerRepository) FindByAttempt(attemptID string) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.DB.Where("attempt_id = ?", attemptID).
		Order("question_index ASC").Find(&answers).Error
	return answers, err
}

func (r *AnswerRepository) FindByAttemptAndIndex(attemptID string, questionIndex int) (*model.Answer, error) {
	var a model.Answer
	err := r.DB.Where("attempt_id = ? AND question_index = ?", attemptID, questionIndex).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// BackfillCorrectness 提交评分后按题号回填对错；verdict 为 nil 的题保持 NULL
func (r *AnswerRepository) BackfillCorrectness(attemptID string, verdicts map[int]*bool) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for idx, verdict := range verdicts {
			if verdict == nil {
				continue
			}
			err := tx.Model(&model.Answer{}).
				Where("attempt_id = ? AND question_index = ?", attemptID, idx).
				Update("is_correct", *verdict).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
