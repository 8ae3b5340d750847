package service

import (
	"errors"
	"strings"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"

	"gorm.io/gorm"
)

type PaperService struct {
	Papers    *repository.PaperRepository
	Snapshots *repository.SnapshotRepository
	Quota     *QuotaService
	Dashboard *DashboardService
}

func NewPaperService(papers *repository.PaperRepository, snapshots *repository.SnapshotRepository, quota *QuotaService, dashboard *DashboardService) *PaperService {
	return &PaperService{Papers: papers, Snapshots: snapshots, Quota: quota, Dashboard: dashboard}
}

// ParseSourceRef 解析 "quiz:abc" 形式的来源引用。只在创建试卷时解析一次，
// 之后各处读落库的结构化字段。
func ParseSourceRef(ref string) (model.SourceType, string, error) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", util.ErrInvalidSourceRef
	}
	t := model.SourceType(parts[0])
	switch t {
	case model.SourceQuiz, model.SourceTopic, model.SourceSubject, model.SourcePlatform, model.SourceRoadmap:
		return t, parts[1], nil
	default:
		return "", "", util.ErrInvalidSourceRef
	}
}

type CreatePaperReq struct {
	Title            string `json:"title" binding:"required,max=200"`
	SourceRef        string `json:"sourceRef" binding:"required"`
	QuestionCount    int    `json:"questionCount" binding:"required,min=5,max=100"`
	TimeLimitMinutes int    `json:"timeLimitMinutes" binding:"required,min=5,max=180"`
	Difficulty       string `json:"difficulty"`
	Shuffle          bool   `json:"shuffle"`
}

func (s *PaperService) Create(userID uint, isPaid bool, req CreatePaperReq) (*model.Paper, error) {
	if err := s.Quota.CheckPaperCreation(userID, isPaid); err != nil {
		return nil, err
	}

	sourceType, sourceID, err := ParseSourceRef(req.SourceRef)
	if err != nil {
		return nil, err
	}

	paper := &model.Paper{
		UserID:           userID,
		Title:            req.Title,
		SourceType:       sourceType,
		SourceID:         sourceID,
		QuestionCount:    req.QuestionCount,
		TimeLimitMinutes: req.TimeLimitMinutes,
		Difficulty:       req.Difficulty,
		Shuffle:          req.Shuffle,
	}
	if err := s.Papers.Create(paper); err != nil {
		return nil, err
	}

	go s.Dashboard.PushSummary(userID, "paper-created")

	return paper, nil
}

func (s *PaperService) List(userID uint) ([]model.Paper, error) {
	return s.Papers.FindByUser(userID)
}

func (s *PaperService) Get(userID uint, paperID string) (*model.Paper, error) {
	paper, err := s.Papers.FindByIDAndUser(paperID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPaperNotFound
		}
		return nil, err
	}
	return paper, nil
}

// Delete 删除试卷并清理其快照，返回被删的试卷
func (s *PaperService) Delete(userID uint, paperID string) (*model.Paper, error) {
	paper, err := s.Get(userID, paperID)
	if err != nil {
		return nil, err
	}

	if err := s.Papers.Delete(paperID, userID); err != nil {
		return nil, err
	}
	if err := s.Snapshots.DeleteByPaper(paperID); err != nil {
		return nil, err
	}

	go s.Dashboard.PushSummary(userID, "paper-deleted")

	return paper, nil
}
