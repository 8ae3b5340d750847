package model

// SourceType 题目来源类型，创建试卷时解析一次后落库，不再反复解析字符串
type SourceType string

const (
	SourceQuiz     SourceType = "quiz"
	SourceTopic    SourceType = "topic"
	SourceSubject  SourceType = "subject"
	SourcePlatform SourceType = "platform"
	SourceRoadmap  SourceType = "roadmap"
)

// swagger:model Paper
type Paper struct {
	UUIDBase
	UserID           uint       `gorm:"index;type:bigint unsigned" json:"userId"`
	Title            string     `gorm:"size:200;not null" json:"title"`
	SourceType       SourceType `gorm:"size:20;not null" json:"sourceType"`
	SourceID         string     `gorm:"size:100;not null" json:"sourceId"`
	QuestionCount    int        `json:"questionCount"`
	TimeLimitMinutes int        `json:"timeLimitMinutes"`
	Difficulty       string     `gorm:"size:20" json:"difficulty,omitempty"`
	Shuffle          bool       `gorm:"default:false" json:"shuffle"`
}

func (Paper) TableName() string {
	return "papers"
}
