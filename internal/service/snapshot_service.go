package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const snapshotLockTTL = 30 * time.Second

// SnapshotService 负责题目快照的一次性固化。
// 并发保证：redis SETNX 收窄同一 (paper, user) 的首次并发窗口；
// 最终兜底是 (paper_id, user_id, question_index) 唯一索引 —— 撞索引的一方
// 放弃自己的插入并改读赢家写入的快照。
type SnapshotService struct {
	Snapshots *repository.SnapshotRepository
	Papers    *repository.PaperRepository
	Source    *QuestionSourceClient
	Redis     *redis.Client
}

func NewSnapshotService(snapshots *repository.SnapshotRepository, papers *repository.PaperRepository, source *QuestionSourceClient, rdb *redis.Client) *SnapshotService {
	return &SnapshotService{Snapshots: snapshots, Papers: papers, Source: source, Redis: rdb}
}

// EnsureSnapshot 幂等地返回 (paper, user) 的题目快照，首次调用才会访问题库。
// token 是调用方凭证，透传给题库服务。
func (s *SnapshotService) EnsureSnapshot(ctx context.Context, userID uint, paperID string, token string) ([]model.QuestionSnapshot, error) {
	existing, err := s.Snapshots.FindByPaperAndUser(paperID, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	paper, err := s.Papers.FindByIDAndUser(paperID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPaperNotFound
		}
		return nil, err
	}

	if s.Redis != nil {
		lockKey := fmt.Sprintf("snapshot:lock:%s:%d", paperID, userID)
		ok, lockErr := s.Redis.SetNX(ctx, lockKey, 1, snapshotLockTTL).Result()
		if lockErr == nil && ok {
			defer s.Redis.Del(context.Background(), lockKey)
		}
		// 没抢到锁也继续走：唯一索引会挡住重复写入
	}

	questions, err := s.Source.FetchQuestions(ctx, token, SourceQuery{
		SourceType: paper.SourceType,
		SourceID:   paper.SourceID,
		Limit:      paper.QuestionCount,
		Difficulty: paper.Difficulty,
		Shuffle:    paper.Shuffle,
	})
	if err != nil {
		monitoring.SnapshotCreations.WithLabelValues("source_error").Inc()
		return nil, err
	}
	if len(questions) == 0 {
		monitoring.SnapshotCreations.WithLabelValues("empty").Inc()
		return nil, util.ErrEmptyQuestionSet
	}

	rows := make([]model.QuestionSnapshot, len(questions))
	for i, q := range questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return nil, err
		}
		rows[i] = model.QuestionSnapshot{
			PaperID:       paperID,
			UserID:        userID,
			QuestionIndex: i,
			Prompt:        q.Prompt,
			Options:       opts,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}
	}

	if err := s.Snapshots.CreateBatch(rows); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发输家：读赢家的快照
			monitoring.SnapshotCreations.WithLabelValues("lost_race").Inc()
			return s.Snapshots.FindByPaperAndUser(paperID, userID)
		}
		return nil, err
	}

	monitoring.SnapshotCreations.WithLabelValues("created").Inc()
	return rows, nil
}
