package service

import (
	"time"

	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
)

// 配额判定本身是纯函数，QuotaService 只负责取计数后套用规则。
// 计数与写入之间允许极小的并发窗口（见存储层唯一约束的说明），不做串行化。

// CanCreatePaper 免费用户试卷总数达到上限后必须升级
func CanCreatePaper(paperCount int64, isPaid bool, maxFree int) bool {
	return isPaid || paperCount < int64(maxFree)
}

// CanStartAttempt 免费用户当日答题次数达到上限后必须升级
func CanStartAttempt(todayCount int64, isPaid bool, maxFree int) bool {
	return isPaid || todayCount < int64(maxFree)
}

// Midnight 当地时区的当日零点
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// HistoryWindowStart 解析历史可见窗口起点。
// 付费用户：尊重请求的起点，nil 表示不限；
// 免费用户：固定钳制到 (historyDays-1) 天前的零点，不能自行放宽。
func HistoryWindowStart(isPaid bool, requested *time.Time, historyDays int, now time.Time) *time.Time {
	if isPaid {
		return requested
	}
	floor := Midnight(now).AddDate(0, 0, -(historyDays - 1))
	if requested != nil && requested.After(floor) {
		return requested
	}
	return &floor
}

type QuotaService struct {
	Papers   *repository.PaperRepository
	Attempts *repository.AttemptRepository
	Cfg      config.QuotaConfig
}

func NewQuotaService(papers *repository.PaperRepository, attempts *repository.AttemptRepository, cfg config.QuotaConfig) *QuotaService {
	return &QuotaService{Papers: papers, Attempts: attempts, Cfg: cfg}
}

func (s *QuotaService) CheckPaperCreation(userID uint, isPaid bool) error {
	count, err := s.Papers.CountByUser(userID)
	if err != nil {
		return err
	}
	if !CanCreatePaper(count, isPaid, s.Cfg.MaxFreePapers) {
		return util.ErrPaymentRequired
	}
	return nil
}

func (s *QuotaService) CheckDailyAttempt(userID uint, isPaid bool) error {
	count, err := s.Attempts.CountByUserSince(userID, Midnight(time.Now()))
	if err != nil {
		return err
	}
	if !CanStartAttempt(count, isPaid, s.Cfg.MaxFreeDailyAttempts) {
		return util.ErrPaymentRequired
	}
	return nil
}

func (s *QuotaService) ResolveHistoryWindow(isPaid bool, requested *time.Time) *time.Time {
	return HistoryWindowStart(isPaid, requested, s.Cfg.HistoryDays, time.Now())
}
