package service

import (
	"math"
	"time"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/pkg/logger"

	"go.uber.org/zap"
)

// DashboardService 汇总看板只读投影，按需重算，不落库
type DashboardService struct {
	Papers   *repository.PaperRepository
	Attempts *repository.AttemptRepository
	Webhook  *WebhookService
}

func NewDashboardService(papers *repository.PaperRepository, attempts *repository.AttemptRepository, webhook *WebhookService) *DashboardService {
	return &DashboardService{Papers: papers, Attempts: attempts, Webhook: webhook}
}

type DashboardTotals struct {
	Papers           int64 `json:"papers"`
	Attempts         int64 `json:"attempts"`
	AttemptsThisWeek int64 `json:"attemptsThisWeek"`
}

type DashboardPerformance struct {
	AvgPercentThisWeek  float64 `json:"avgPercentThisWeek"`
	BestPercentThisWeek int     `json:"bestPercentThisWeek"`
}

type DashboardActivity struct {
	LastAttemptAt  *time.Time `json:"lastAttemptAt"`
	LastActivityAt time.Time  `json:"lastActivityAt"`
}

type DashboardSummary struct {
	Totals      DashboardTotals      `json:"totals"`
	Performance DashboardPerformance `json:"performance"`
	Activity    DashboardActivity    `json:"activity"`
}

// WeekStart "本周" = 含今天在内的最近 7 个自然日，锚定在 6 天前的零点
func WeekStart(now time.Time) time.Time {
	return Midnight(now).AddDate(0, 0, -6)
}

// SummarizeWeek 仅统计 percent 已写入（即已提交/已超时）的记录；没有则都为 0
func SummarizeWeek(attempts []model.Attempt) (avg float64, best int) {
	sum, count := 0, 0
	for _, a := range attempts {
		if a.Percent == nil {
			continue
		}
		sum += *a.Percent
		count++
		if *a.Percent > best {
			best = *a.Percent
		}
	}
	if count > 0 {
		avg = math.Round(float64(sum)/float64(count)*10) / 10
	}
	return avg, best
}

func (s *DashboardService) BuildSummary(userID uint) (*DashboardSummary, error) {
	now := time.Now()

	paperCount, err := s.Papers.CountByUser(userID)
	if err != nil {
		return nil, err
	}
	attemptCount, err := s.Attempts.CountByUser(userID)
	if err != nil {
		return nil, err
	}

	weekStart := WeekStart(now)
	weekAttempts, err := s.Attempts.FindByUserSince(userID, &weekStart, 0)
	if err != nil {
		return nil, err
	}
	avg, best := SummarizeWeek(weekAttempts)

	lastAttemptAt, err := s.Attempts.LatestStartedAt(userID)
	if err != nil {
		return nil, err
	}

	lastActivityAt := now
	if lastAttemptAt != nil {
		lastActivityAt = *lastAttemptAt
	}

	return &DashboardSummary{
		Totals: DashboardTotals{
			Papers:           paperCount,
			Attempts:         attemptCount,
			AttemptsThisWeek: int64(len(weekAttempts)),
		},
		Performance: DashboardPerformance{
			AvgPercentThisWeek:  avg,
			BestPercentThisWeek: best,
		},
		Activity: DashboardActivity{
			LastAttemptAt:  lastAttemptAt,
			LastActivityAt: lastActivityAt,
		},
	}, nil
}

// PushSummary 变更事件后重算并推送看板；失败只记日志，不回传调用方
func (s *DashboardService) PushSummary(userID uint, eventType string) {
	summary, err := s.BuildSummary(userID)
	if err != nil {
		logger.Log.Warn("dashboard summary rebuild failed",
			zap.Uint("user_id", userID), zap.String("event", eventType), zap.Error(err))
		return
	}
	s.Webhook.PushDashboard(userID, eventType, summary)
}
