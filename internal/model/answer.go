package model

// Answer 答题过程中的单题作答记录，按 (attempt_id, question_index) 唯一，保存即 upsert。
// IsCorrect 在提交评分时一次性回填。
type Answer struct {
	BaseModel
	AttemptID      string  `gorm:"size:36;uniqueIndex:idx_attempt_question,priority:1" json:"attemptId"`
	QuestionIndex  int     `gorm:"uniqueIndex:idx_attempt_question,priority:2" json:"questionIndex"`
	SelectedOption *string `gorm:"size:500" json:"selectedOption,omitempty"`
	IsFlagged      bool    `gorm:"default:false" json:"isFlagged"`
	IsCorrect      *bool   `json:"isCorrect,omitempty"`
}

func (Answer) TableName() string {
	return "answers"
}
