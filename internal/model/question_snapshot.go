package model

import "encoding/json"

// QuestionSnapshot 首次开始答题时固化的题目快照，一个 (paper, user) 只生成一次。
// (paper_id, user_id, question_index) 唯一索引保证并发下至多一组快照落库。
type QuestionSnapshot struct {
	BaseModel
	PaperID       string          `gorm:"size:36;uniqueIndex:idx_paper_user_question,priority:1" json:"paperId"`
	UserID        uint            `gorm:"type:bigint unsigned;uniqueIndex:idx_paper_user_question,priority:2" json:"userId"`
	QuestionIndex int             `gorm:"uniqueIndex:idx_paper_user_question,priority:3" json:"questionIndex"`
	Prompt        string          `gorm:"type:text" json:"prompt"`
	Options       json.RawMessage `gorm:"type:json" json:"options"`
	CorrectAnswer string          `gorm:"size:500" json:"correctAnswer"`
	Explanation   string          `gorm:"type:text" json:"explanation"`
}

func (QuestionSnapshot) TableName() string {
	return "question_snapshots"
}

// OptionList 解码存储的选项 JSON
func (q *QuestionSnapshot) OptionList() []string {
	var opts []string
	if len(q.Options) > 0 {
		_ = json.Unmarshal(q.Options, &opts)
	}
	return opts
}
