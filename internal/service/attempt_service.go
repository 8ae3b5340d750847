package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 超时答卷由后台清扫兜底强制提交时，额外放宽的缓冲
const expiryGrace = time.Minute

// AttemptService 答题生命周期：in_progress → submitted/expired，两者均为终态。
// 终态之后提交、改答案一律拒绝（见 DESIGN.md 的取舍说明）。
type AttemptService struct {
	Attempts  *repository.AttemptRepository
	Answers   *repository.AnswerRepository
	Papers    *repository.PaperRepository
	Snapshots *repository.SnapshotRepository
	Quota     *QuotaService
	Snapshot  *SnapshotService
	Dashboard *DashboardService
	Webhook   *WebhookService
}

func NewAttemptService(
	attempts *repository.AttemptRepository,
	answers *repository.AnswerRepository,
	papers *repository.PaperRepository,
	snapshots *repository.SnapshotRepository,
	quota *QuotaService,
	snapshot *SnapshotService,
	dashboard *DashboardService,
	webhook *WebhookService,
) *AttemptService {
	return &AttemptService{
		Attempts:  attempts,
		Answers:   answers,
		Papers:    papers,
		Snapshots: snapshots,
		Quota:     quota,
		Snapshot:  snapshot,
		Dashboard: dashboard,
		Webhook:   webhook,
	}
}

// Start 开始一次答题：配额 → 归属校验 → 快照固化 → 建档。
// 限时从试卷复制到答题记录，之后改卷不影响本次答题。
func (s *AttemptService) Start(ctx context.Context, userID uint, isPaid bool, paperID, token string) (*model.Attempt, error) {
	if err := s.Quota.CheckDailyAttempt(userID, isPaid); err != nil {
		return nil, err
	}

	paper, err := s.Papers.FindByIDAndUser(paperID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPaperNotFound
		}
		return nil, err
	}

	snapshot, err := s.Snapshot.EnsureSnapshot(ctx, userID, paperID, token)
	if err != nil {
		return nil, err
	}

	attempt := &model.Attempt{
		PaperID:          paperID,
		UserID:           userID,
		Status:           model.AttemptInProgress,
		StartedAt:        time.Now(),
		TimeLimitMinutes: paper.TimeLimitMinutes,
		TotalQuestions:   len(snapshot),
	}
	if err := s.Attempts.Create(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

type SaveAnswerReq struct {
	QuestionIndex  int     `json:"questionIndex" binding:"min=0"`
	SelectedOption *string `json:"selectedOption"`
	IsFlagged      *bool   `json:"isFlagged"`
}

// SaveAnswer 进行中答题的作答 upsert；终态答卷拒绝迟到写入
func (s *AttemptService) SaveAnswer(userID uint, attemptID string, req SaveAnswerReq) (*model.Answer, error) {
	attempt, err := s.findOwned(attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Terminal() {
		return nil, util.ErrAttemptFinished
	}
	if req.QuestionIndex < 0 || req.QuestionIndex >= attempt.TotalQuestions {
		return nil, util.ErrBadQuestionIndex
	}

	answer := &model.Answer{
		AttemptID:      attemptID,
		QuestionIndex:  req.QuestionIndex,
		SelectedOption: req.SelectedOption,
	}
	if req.IsFlagged != nil {
		answer.IsFlagged = *req.IsFlagged
	} else if existing, err := s.Answers.FindByAttemptAndIndex(attemptID, req.QuestionIndex); err == nil {
		// 请求未携带标记位时保留原值
		answer.IsFlagged = existing.IsFlagged
	}

	if err := s.Answers.Upsert(answer); err != nil {
		return nil, err
	}
	return s.Answers.FindByAttemptAndIndex(attemptID, req.QuestionIndex)
}

// Submit 提交并评分。expired 表示由倒计时触发的超时提交。
// 终态答卷再次提交返回冲突错误，分数不会被覆盖。
func (s *AttemptService) Submit(userID uint, attemptID string, expired bool) (*model.Attempt, error) {
	attempt, err := s.findOwned(attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Terminal() {
		return nil, util.ErrAttemptFinished
	}
	return s.finalize(attempt, expired)
}

// finalize 评分 + 回填 + 推送，也被超时清扫复用
func (s *AttemptService) finalize(attempt *model.Attempt, expired bool) (*model.Attempt, error) {
	snapshot, err := s.Snapshots.FindByPaperAndUser(attempt.PaperID, attempt.UserID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Answers.FindByAttempt(attempt.ID)
	if err != nil {
		return nil, err
	}

	result, verdicts := Score(answers, snapshot)

	now := time.Now()
	attempt.SubmittedAt = &now
	attempt.Status = model.AttemptSubmitted
	if expired {
		attempt.Status = model.AttemptExpired
	}
	attempt.CorrectCount = &result.Correct
	attempt.WrongCount = &result.Wrong
	attempt.UnattemptedCount = &result.Unattempted
	attempt.Percent = &result.Percent

	if err := s.Attempts.Update(attempt); err != nil {
		return nil, err
	}
	if err := s.Answers.BackfillCorrectness(attempt.ID, verdicts); err != nil {
		return nil, err
	}

	eventType := "exam-submitted"
	if expired {
		eventType = "exam-expired"
	}
	go s.Dashboard.PushSummary(attempt.UserID, eventType)
	go s.notifyParent(attempt, eventType)

	return attempt, nil
}

func (s *AttemptService) notifyParent(attempt *model.Attempt, eventType string) {
	paper, err := s.Papers.FindByIDAndUser(attempt.PaperID, attempt.UserID)
	if err != nil {
		return
	}
	s.Webhook.NotifyParent(attempt.UserID, eventType, paper.Title, "/attempts/"+attempt.ID+"/review")
}

type AttemptDetail struct {
	Attempt *model.Attempt `json:"attempt"`
	Paper   *model.Paper   `json:"paper"`
	// 进行中答卷的服务端剩余秒数，终态为 0
	RemainingSeconds int `json:"remainingSeconds"`
}

func (s *AttemptService) Get(userID uint, attemptID string) (*AttemptDetail, error) {
	attempt, err := s.findOwned(attemptID, userID)
	if err != nil {
		return nil, err
	}
	paper, err := s.Papers.FindByIDAndUser(attempt.PaperID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	remaining := 0
	if !attempt.Terminal() {
		remaining = int(time.Until(attempt.Deadline()).Seconds())
		if remaining < 0 {
			remaining = 0
		}
	}

	return &AttemptDetail{Attempt: attempt, Paper: paper, RemainingSeconds: remaining}, nil
}

type AttemptList struct {
	Attempts    []model.Attempt `json:"attempts"`
	WindowStart *time.Time      `json:"windowStart,omitempty"`
}

// List 按开始时间倒序返回历史答题，免费用户窗口被钳制到配置天数
func (s *AttemptService) List(userID uint, isPaid bool, limit int, start *time.Time) (*AttemptList, error) {
	windowStart := s.Quota.ResolveHistoryWindow(isPaid, start)
	attempts, err := s.Attempts.FindByUserSince(userID, windowStart, limit)
	if err != nil {
		return nil, err
	}
	return &AttemptList{Attempts: attempts, WindowStart: windowStart}, nil
}

type ReviewItem struct {
	QuestionIndex  int             `json:"questionIndex"`
	Prompt         string          `json:"prompt"`
	Options        json.RawMessage `json:"options"`
	SelectedOption *string         `json:"selectedOption,omitempty"`
	IsFlagged      bool            `json:"isFlagged"`
	CorrectAnswer  string          `json:"correctAnswer"`
	IsCorrect      *bool           `json:"isCorrect,omitempty"`
	Explanation    string          `json:"explanation,omitempty"`
}

type AttemptReview struct {
	Attempt *model.Attempt `json:"attempt"`
	Review  []ReviewItem   `json:"review"`
}

// Review 终态答卷的逐题回顾；解析内容是付费特性
func (s *AttemptService) Review(userID uint, isPaid bool, attemptID string, includeExplanations bool) (*AttemptReview, error) {
	if includeExplanations && !isPaid {
		return nil, util.ErrPaymentRequired
	}

	attempt, err := s.findOwned(attemptID, userID)
	if err != nil {
		return nil, err
	}
	if !attempt.Terminal() {
		return nil, util.ErrAttemptNotFinished
	}

	snapshot, err := s.Snapshots.FindByPaperAndUser(attempt.PaperID, userID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Answers.FindByAttempt(attemptID)
	if err != nil {
		return nil, err
	}

	byIndex := make(map[int]*model.Answer, len(answers))
	for i := range answers {
		byIndex[answers[i].QuestionIndex] = &answers[i]
	}

	review := make([]ReviewItem, len(snapshot))
	for i, q := range snapshot {
		item := ReviewItem{
			QuestionIndex: q.QuestionIndex,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		}
		if ans := byIndex[q.QuestionIndex]; ans != nil {
			item.SelectedOption = ans.SelectedOption
			item.IsFlagged = ans.IsFlagged
			item.IsCorrect = ans.IsCorrect
		}
		if includeExplanations {
			item.Explanation = q.Explanation
		}
		review[i] = item
	}

	return &AttemptReview{Attempt: attempt, Review: review}, nil
}

// ExpireOverdue 清扫超时未交的答卷：客户端倒计时失联时由服务端兜底按超时提交
func (s *AttemptService) ExpireOverdue() error {
	attempts, err := s.Attempts.FindInProgress()
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range attempts {
		a := &attempts[i]
		if now.Before(a.Deadline().Add(expiryGrace)) {
			continue
		}
		if _, err := s.finalize(a, true); err != nil {
			logger.Log.Error("overdue attempt finalize failed",
				zap.String("attempt_id", a.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *AttemptService) findOwned(attemptID string, userID uint) (*model.Attempt, error) {
	attempt, err := s.Attempts.FindByIDAndUser(attemptID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return attempt, nil
}
