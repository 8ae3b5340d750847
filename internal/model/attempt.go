package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptExpired    AttemptStatus = "expired"
)

// swagger:model Attempt
type Attempt struct {
	UUIDBase
	PaperID   string        `gorm:"size:36;index" json:"paperId"`
	UserID    uint          `gorm:"index;type:bigint unsigned" json:"userId"`
	Status    AttemptStatus `gorm:"size:20;default:'in_progress'" json:"status"`
	StartedAt time.Time     `json:"startedAt"`
	// 提交时一次性写入，之后不再变更
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	// 开始时从试卷复制，后续改卷不影响进行中的答题
	TimeLimitMinutes int  `json:"timeLimitMinutes"`
	TotalQuestions   int  `json:"totalQuestions"`
	CorrectCount     *int `json:"correctCount,omitempty"`
	WrongCount       *int `json:"wrongCount,omitempty"`
	UnattemptedCount *int `json:"unattemptedCount,omitempty"`
	Percent          *int `json:"percent,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// Terminal 判断答题是否已终态（submitted/expired 均不可再变更）
func (a *Attempt) Terminal() bool {
	return a.Status == AttemptSubmitted || a.Status == AttemptExpired
}

// Deadline 返回答题截止时间
func (a *Attempt) Deadline() time.Time {
	return a.StartedAt.Add(time.Duration(a.TimeLimitMinutes) * time.Minute)
}
