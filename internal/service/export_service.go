package service

import (
	"context"
	"fmt"
	"time"

	"exam_prep_backend/internal/repository"

	"github.com/xuri/excelize/v2"
)

// ExportService 把历史答题导出为 Excel 报表并存入对象存储。
// 导出同样受历史窗口钳制：免费用户只能导出可见窗口内的记录。
type ExportService struct {
	Attempts *repository.AttemptRepository
	Papers   *repository.PaperRepository
	Quota    *QuotaService
	Storage  *StorageService
}

func NewExportService(attempts *repository.AttemptRepository, papers *repository.PaperRepository, quota *QuotaService, storage *StorageService) *ExportService {
	return &ExportService{Attempts: attempts, Papers: papers, Quota: quota, Storage: storage}
}

const exportSheet = "Attempts"

var exportHeaders = []string{"试卷", "开始时间", "提交时间", "状态", "答对", "答错", "未作答", "得分率(%)"}

// ExportHistory 生成报表并返回可下载地址
func (s *ExportService) ExportHistory(ctx context.Context, userID uint, isPaid bool) (string, error) {
	windowStart := s.Quota.ResolveHistoryWindow(isPaid, nil)
	attempts, err := s.Attempts.FindByUserSince(userID, windowStart, 0)
	if err != nil {
		return "", err
	}

	papers, err := s.Papers.FindByUser(userID)
	if err != nil {
		return "", err
	}
	titles := make(map[string]string, len(papers))
	for _, p := range papers {
		titles[p.ID] = p.Title
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportSheet)
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, h)
	}

	for row, a := range attempts {
		values := []any{
			titles[a.PaperID],
			a.StartedAt.Format("2006-01-02 15:04:05"),
			formatTime(a.SubmittedAt),
			string(a.Status),
			intOrDash(a.CorrectCount),
			intOrDash(a.WrongCount),
			intOrDash(a.UnattemptedCount),
			intOrDash(a.Percent),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(exportSheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("exports/attempts_%d_%d.xlsx", userID, time.Now().Unix())
	return s.Storage.Provider.Upload(ctx, filename, buf, int64(buf.Len()),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func intOrDash(v *int) any {
	if v == nil {
		return "-"
	}
	return *v
}
