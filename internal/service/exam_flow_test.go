package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// testEnv 用 sqlite 内存库 + httptest 题源搭起完整的服务链路
type testEnv struct {
	db         *gorm.DB
	sourceHits int32

	attemptRepo  *repository.AttemptRepository
	answerRepo   *repository.AnswerRepository
	paperRepo    *repository.PaperRepository
	snapshotRepo *repository.SnapshotRepository

	papers   *PaperService
	attempts *AttemptService
	snapshot *SnapshotService
	export   *ExportService
}

func newTestEnv(t *testing.T, items []map[string]any) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{db: db}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&env.sourceHits, 1)
		_ = json.NewEncoder(w).Encode(items)
	}))
	t.Cleanup(srv.Close)

	env.paperRepo = repository.NewPaperRepository(db)
	env.snapshotRepo = repository.NewSnapshotRepository(db)
	env.attemptRepo = repository.NewAttemptRepository(db)
	env.answerRepo = repository.NewAnswerRepository(db)

	quota := NewQuotaService(env.paperRepo, env.attemptRepo, config.QuotaConfig{
		MaxFreePapers:        3,
		MaxFreeDailyAttempts: 5,
		HistoryDays:          7,
	})
	webhook := NewWebhookService(config.WebhookConfig{}, "test")
	dashboard := NewDashboardService(env.paperRepo, env.attemptRepo, webhook)

	source := NewQuestionSourceClient(config.QuestionSourceConfig{BaseURL: srv.URL})
	snapshot := NewSnapshotService(env.snapshotRepo, env.paperRepo, source, nil)
	env.snapshot = snapshot

	env.papers = NewPaperService(env.paperRepo, env.snapshotRepo, quota, dashboard)
	env.attempts = NewAttemptService(
		env.attemptRepo, env.answerRepo, env.paperRepo, env.snapshotRepo,
		quota, snapshot, dashboard, webhook,
	)

	storageCfg := &config.Config{}
	storageCfg.Storage.Type = "local"
	storageCfg.Storage.LocalPath = t.TempDir()
	env.export = NewExportService(env.attemptRepo, env.paperRepo, quota, NewStorageService(storageCfg))

	return env
}

func defaultQuestions() []map[string]any {
	answers := []string{"a", "b", "c", "d", "e"}
	items := make([]map[string]any, 5)
	for i := range items {
		items[i] = map[string]any{
			"question":    fmt.Sprintf("question %d", i),
			"options":     []string{"a", "b", "c", "d", "e"},
			"answer":      answers[i],
			"explanation": fmt.Sprintf("explanation %d", i),
		}
	}
	return items
}

func (env *testEnv) createPaper(t *testing.T, userID uint) *model.Paper {
	t.Helper()
	paper, err := env.papers.Create(userID, true, CreatePaperReq{
		Title:            "期末冲刺卷",
		SourceRef:        "quiz:abc",
		QuestionCount:    5,
		TimeLimitMinutes: 30,
	})
	if err != nil {
		t.Fatalf("create paper: %v", err)
	}
	return paper
}

func (env *testEnv) saveAnswer(t *testing.T, userID uint, attemptID string, index int, option string) {
	t.Helper()
	_, err := env.attempts.SaveAnswer(userID, attemptID, SaveAnswerReq{
		QuestionIndex:  index,
		SelectedOption: &option,
	})
	if err != nil {
		t.Fatalf("save answer %d: %v", index, err)
	}
}

func TestSnapshotMaterializedOnce(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)

	first, err := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}

	if hits := atomic.LoadInt32(&env.sourceHits); hits != 1 {
		t.Errorf("question source hit %d times, want 1", hits)
	}

	rows, err := env.snapshotRepo.FindByPaperAndUser(paper.ID, 1)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("snapshot has %d rows, want 5", len(rows))
	}
	for i, row := range rows {
		if row.QuestionIndex != i {
			t.Errorf("row %d has index %d, snapshot order broken", i, row.QuestionIndex)
		}
	}

	if first.TotalQuestions != 5 || second.TotalQuestions != 5 {
		t.Errorf("attempts carry total %d/%d, want 5", first.TotalQuestions, second.TotalQuestions)
	}
	if first.TimeLimitMinutes != 30 {
		t.Errorf("time limit not copied from paper: %d", first.TimeLimitMinutes)
	}
}

func TestSnapshotConcurrentStartSingleWinner(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)

	// 同一 (paper, user) 首次并发固化：唯一索引保证至多一个赢家，
	// 输家改读赢家写入的快照
	const racers = 8
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	sizes := make(chan int, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := env.snapshot.EnsureSnapshot(context.Background(), 1, paper.ID, "tok")
			if err != nil {
				errs <- err
				return
			}
			sizes <- len(rows)
		}()
	}
	wg.Wait()
	close(errs)
	close(sizes)

	for err := range errs {
		t.Errorf("racer failed: %v", err)
	}
	for n := range sizes {
		if n != 5 {
			t.Errorf("racer saw %d rows, want 5", n)
		}
	}

	rows, err := env.snapshotRepo.FindByPaperAndUser(paper.ID, 1)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("snapshot has %d rows, want exactly 5", len(rows))
	}
	for i, row := range rows {
		if row.QuestionIndex != i {
			t.Errorf("row %d has index %d, want contiguous 0..4", i, row.QuestionIndex)
		}
	}
}

func TestSubmitScoresAttempt(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)

	attempt, err := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	env.saveAnswer(t, 1, attempt.ID, 0, "a") // 对
	env.saveAnswer(t, 1, attempt.ID, 1, "b") // 对
	env.saveAnswer(t, 1, attempt.ID, 2, "x") // 错，3/4 未作答

	submitted, err := env.attempts.Submit(1, attempt.ID, false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if submitted.Status != model.AttemptSubmitted {
		t.Errorf("status = %s, want submitted", submitted.Status)
	}
	if submitted.SubmittedAt == nil {
		t.Error("submittedAt not set")
	}
	if *submitted.CorrectCount != 2 || *submitted.WrongCount != 1 || *submitted.UnattemptedCount != 2 {
		t.Errorf("counts = %d/%d/%d, want 2/1/2",
			*submitted.CorrectCount, *submitted.WrongCount, *submitted.UnattemptedCount)
	}
	if *submitted.Percent != 40 {
		t.Errorf("percent = %d, want 40", *submitted.Percent)
	}

	// 单题对错已回填
	a0, err := env.answerRepo.FindByAttemptAndIndex(attempt.ID, 0)
	if err != nil {
		t.Fatalf("load answer 0: %v", err)
	}
	if a0.IsCorrect == nil || !*a0.IsCorrect {
		t.Error("answer 0 should be backfilled correct")
	}
	a2, err := env.answerRepo.FindByAttemptAndIndex(attempt.ID, 2)
	if err != nil {
		t.Fatalf("load answer 2: %v", err)
	}
	if a2.IsCorrect == nil || *a2.IsCorrect {
		t.Error("answer 2 should be backfilled wrong")
	}

	// 终态详情剩余时间为 0
	detail, err := env.attempts.Get(1, attempt.ID)
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}
	if detail.RemainingSeconds != 0 {
		t.Errorf("terminal attempt remaining = %d, want 0", detail.RemainingSeconds)
	}
}

func TestResubmitRejected(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)
	attempt, _ := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok")

	env.saveAnswer(t, 1, attempt.ID, 0, "a")
	first, err := env.attempts.Submit(1, attempt.ID, false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := env.attempts.Submit(1, attempt.ID, false); !errors.Is(err, util.ErrAttemptFinished) {
		t.Fatalf("resubmit err = %v, want ErrAttemptFinished", err)
	}

	// 分数未被覆盖
	reloaded, err := env.attemptRepo.FindByIDAndUser(attempt.ID, 1)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if *reloaded.Percent != *first.Percent || !reloaded.SubmittedAt.Equal(*first.SubmittedAt) {
		t.Error("terminal attempt was mutated by rejected resubmit")
	}
}

func TestLateAnswerRejected(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)
	attempt, _ := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok")

	if _, err := env.attempts.Submit(1, attempt.ID, false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	opt := "a"
	_, err := env.attempts.SaveAnswer(1, attempt.ID, SaveAnswerReq{QuestionIndex: 0, SelectedOption: &opt})
	if !errors.Is(err, util.ErrAttemptFinished) {
		t.Fatalf("late save err = %v, want ErrAttemptFinished", err)
	}
}

func TestSaveAnswerValidation(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)
	attempt, _ := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok")

	opt := "a"
	_, err := env.attempts.SaveAnswer(1, attempt.ID, SaveAnswerReq{QuestionIndex: 99, SelectedOption: &opt})
	if !errors.Is(err, util.ErrBadQuestionIndex) {
		t.Fatalf("out of range err = %v, want ErrBadQuestionIndex", err)
	}

	// 别人的答卷不可见
	_, err = env.attempts.SaveAnswer(2, attempt.ID, SaveAnswerReq{QuestionIndex: 0, SelectedOption: &opt})
	if !errors.Is(err, util.ErrAttemptNotFound) {
		t.Fatalf("foreign attempt err = %v, want ErrAttemptNotFound", err)
	}
}

func TestSaveAnswerUpsertKeepsFlag(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)
	attempt, _ := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok")

	opt, flagged := "a", true
	if _, err := env.attempts.SaveAnswer(1, attempt.ID, SaveAnswerReq{
		QuestionIndex: 0, SelectedOption: &opt, IsFlagged: &flagged,
	}); err != nil {
		t.Fatalf("first save: %v", err)
	}

	// 改答案但不带标记位：标记保留
	opt2 := "b"
	saved, err := env.attempts.SaveAnswer(1, attempt.ID, SaveAnswerReq{QuestionIndex: 0, SelectedOption: &opt2})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !saved.IsFlagged {
		t.Error("flag should survive an upsert without isFlagged")
	}
	if saved.SelectedOption == nil || *saved.SelectedOption != "b" {
		t.Errorf("selected option = %v, want b", saved.SelectedOption)
	}

	answers, err := env.answerRepo.FindByAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("upsert created %d rows, want 1", len(answers))
	}
}

func TestPaperQuota(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())

	for i := 0; i < 3; i++ {
		if _, err := env.papers.Create(1, false, CreatePaperReq{
			Title: fmt.Sprintf("卷%d", i), SourceRef: "quiz:abc",
			QuestionCount: 5, TimeLimitMinutes: 30,
		}); err != nil {
			t.Fatalf("paper %d: %v", i, err)
		}
	}

	_, err := env.papers.Create(1, false, CreatePaperReq{
		Title: "超额卷", SourceRef: "quiz:abc", QuestionCount: 5, TimeLimitMinutes: 30,
	})
	if !errors.Is(err, util.ErrPaymentRequired) {
		t.Fatalf("4th free paper err = %v, want ErrPaymentRequired", err)
	}

	// 付费用户不受限
	if _, err := env.papers.Create(1, true, CreatePaperReq{
		Title: "付费卷", SourceRef: "quiz:abc", QuestionCount: 5, TimeLimitMinutes: 30,
	}); err != nil {
		t.Fatalf("paid paper: %v", err)
	}
}

func TestDailyAttemptQuota(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)

	for i := 0; i < 5; i++ {
		if _, err := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}

	_, err := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok")
	if !errors.Is(err, util.ErrPaymentRequired) {
		t.Fatalf("6th free attempt err = %v, want ErrPaymentRequired", err)
	}

	if _, err := env.attempts.Start(context.Background(), 1, true, paper.ID, "tok"); err != nil {
		t.Fatalf("paid attempt: %v", err)
	}
}

func TestEmptyQuestionSetRejected(t *testing.T) {
	env := newTestEnv(t, []map[string]any{})
	paper := env.createPaper(t, 1)

	_, err := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok")
	if !errors.Is(err, util.ErrEmptyQuestionSet) {
		t.Fatalf("err = %v, want ErrEmptyQuestionSet", err)
	}

	// 失败的开始不留档
	count, err := env.attemptRepo.CountByUser(1)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("attempt count = %d, want 0", count)
	}
}

func TestInvalidSourceRef(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())

	for _, ref := range []string{"bogus", "quiz:", "unknown:abc", ""} {
		_, err := env.papers.Create(1, true, CreatePaperReq{
			Title: "卷", SourceRef: ref, QuestionCount: 5, TimeLimitMinutes: 30,
		})
		if !errors.Is(err, util.ErrInvalidSourceRef) {
			t.Errorf("ref %q err = %v, want ErrInvalidSourceRef", ref, err)
		}
	}
}

func TestReviewFlow(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)
	attempt, _ := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok")

	// 进行中不可回顾
	if _, err := env.attempts.Review(1, true, attempt.ID, false); !errors.Is(err, util.ErrAttemptNotFinished) {
		t.Fatalf("in-progress review err = %v, want ErrAttemptNotFinished", err)
	}

	env.saveAnswer(t, 1, attempt.ID, 0, "a")
	if _, err := env.attempts.Submit(1, attempt.ID, false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 免费用户要解析 → 402
	if _, err := env.attempts.Review(1, false, attempt.ID, true); !errors.Is(err, util.ErrPaymentRequired) {
		t.Fatalf("free explanations err = %v, want ErrPaymentRequired", err)
	}

	// 免费用户不带解析可以看
	review, err := env.attempts.Review(1, false, attempt.ID, false)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if len(review.Review) != 5 {
		t.Fatalf("review has %d items, want 5", len(review.Review))
	}
	if review.Review[0].SelectedOption == nil || *review.Review[0].SelectedOption != "a" {
		t.Error("review should carry the selected option")
	}
	if review.Review[0].Explanation != "" {
		t.Error("explanation leaked without the paid flag")
	}

	// 付费 + 解析
	review, err = env.attempts.Review(1, true, attempt.ID, true)
	if err != nil {
		t.Fatalf("paid review: %v", err)
	}
	if review.Review[0].Explanation != "explanation 0" {
		t.Errorf("explanation = %q", review.Review[0].Explanation)
	}
}

func TestExpireOverdue(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)
	attempt, _ := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok")
	env.saveAnswer(t, 1, attempt.ID, 0, "a")

	// 把开始时间拨回到远超限时+宽限
	past := time.Now().Add(-40 * time.Minute)
	if err := env.db.Model(&model.Attempt{}).Where("id = ?", attempt.ID).
		Update("started_at", past).Error; err != nil {
		t.Fatalf("rewind: %v", err)
	}

	if err := env.attempts.ExpireOverdue(); err != nil {
		t.Fatalf("expire overdue: %v", err)
	}

	expired, err := env.attemptRepo.FindByIDAndUser(attempt.ID, 1)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if expired.Status != model.AttemptExpired {
		t.Fatalf("status = %s, want expired", expired.Status)
	}
	if expired.Percent == nil || *expired.Percent != 20 {
		t.Errorf("expired attempt should still be scored, percent = %v", expired.Percent)
	}
	if expired.SubmittedAt == nil {
		t.Error("submittedAt not set on forced expiry")
	}
}

func TestExpireOverdueLeavesFreshAttempts(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)
	attempt, _ := env.attempts.Start(context.Background(), 1, false, paper.ID, "tok")

	if err := env.attempts.ExpireOverdue(); err != nil {
		t.Fatalf("expire overdue: %v", err)
	}

	fresh, _ := env.attemptRepo.FindByIDAndUser(attempt.ID, 1)
	if fresh.Status != model.AttemptInProgress {
		t.Fatalf("fresh attempt was expired prematurely: %s", fresh.Status)
	}
}

func TestHistoryWindowClampOnList(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)

	recent, _ := env.attempts.Start(context.Background(), 1, true, paper.ID, "tok")
	old, _ := env.attempts.Start(context.Background(), 1, true, paper.ID, "tok")

	// 一条拨回 30 天前
	past := time.Now().AddDate(0, 0, -30)
	if err := env.db.Model(&model.Attempt{}).Where("id = ?", old.ID).
		Update("started_at", past).Error; err != nil {
		t.Fatalf("rewind: %v", err)
	}

	// 免费用户只见 7 天窗口
	list, err := env.attempts.List(1, false, 0, nil)
	if err != nil {
		t.Fatalf("free list: %v", err)
	}
	if list.WindowStart == nil {
		t.Fatal("free list should report a clamped window start")
	}
	if len(list.Attempts) != 1 || list.Attempts[0].ID != recent.ID {
		t.Fatalf("free list = %d attempts, want just the recent one", len(list.Attempts))
	}

	// 付费用户全量可见
	list, err = env.attempts.List(1, true, 0, nil)
	if err != nil {
		t.Fatalf("paid list: %v", err)
	}
	if list.WindowStart != nil {
		t.Error("paid list should be unrestricted")
	}
	if len(list.Attempts) != 2 {
		t.Fatalf("paid list = %d attempts, want 2", len(list.Attempts))
	}
}

func TestPaperDeleteCleansSnapshots(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)
	if _, err := env.attempts.Start(context.Background(), 1, true, paper.ID, "tok"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := env.papers.Delete(1, paper.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rows, err := env.snapshotRepo.FindByPaperAndUser(paper.ID, 1)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("snapshot rows left behind: %d", len(rows))
	}

	if _, err := env.papers.Get(1, paper.ID); !errors.Is(err, util.ErrPaperNotFound) {
		t.Fatalf("get deleted paper err = %v, want ErrPaperNotFound", err)
	}
}

func TestExportHistoryWritesWorkbook(t *testing.T) {
	env := newTestEnv(t, defaultQuestions())
	paper := env.createPaper(t, 1)
	attempt, _ := env.attempts.Start(context.Background(), 1, true, paper.ID, "tok")
	env.saveAnswer(t, 1, attempt.ID, 0, "a")
	if _, err := env.attempts.Submit(1, attempt.ID, false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	url, err := env.export.ExportHistory(context.Background(), 1, true)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/exports/") || !strings.HasSuffix(url, ".xlsx") {
		t.Errorf("export url = %q", url)
	}

	local := env.export.Storage.Provider.(*LocalStorageProvider)
	matches, err := filepath.Glob(filepath.Join(local.Config.LocalPath, "exports", "*.xlsx"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("workbook not written: matches=%v err=%v", matches, err)
	}
	if info, err := os.Stat(matches[0]); err != nil || info.Size() == 0 {
		t.Errorf("workbook empty: %v", err)
	}
}
