package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
)

// QuestionSourceClient 调用外部题库服务拉取题目
type QuestionSourceClient struct {
	cfg    config.QuestionSourceConfig
	client *http.Client
}

func NewQuestionSourceClient(cfg config.QuestionSourceConfig) *QuestionSourceClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &QuestionSourceClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type SourceQuery struct {
	SourceType model.SourceType
	SourceID   string
	Limit      int
	Difficulty string
	Shuffle    bool
}

// sourceItem 题库返回的原始条目；选项字段存在 options/choices 两种命名
type sourceItem struct {
	Question    string `json:"question"`
	Explanation string `json:"explanation"`
	Answer      any    `json:"answer"`
	Options     []any  `json:"options"`
	Choices     []any  `json:"choices"`
}

// NormalizedQuestion 归一化后的题目
type NormalizedQuestion struct {
	Prompt        string
	Options       []string
	CorrectAnswer string
	Explanation   string
}

// FetchQuestions 按来源引用拉题。token 为空时退回服务级 API key。
// 非 2xx 一律视为题库不可用。
func (c *QuestionSourceClient) FetchQuestions(ctx context.Context, token string, q SourceQuery) ([]NormalizedQuestion, error) {
	body := map[string]any{
		sourceKey(q.SourceType): q.SourceID,
		"limit":                 q.Limit,
		"shuffle":               q.Shuffle,
	}
	if q.Difficulty != "" {
		body["difficulty"] = q.Difficulty
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/questions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token == "" {
		token = c.cfg.APIKey
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrQuestionSourceDown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", util.ErrQuestionSourceDown, resp.StatusCode, string(b))
	}

	var items []sourceItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: bad payload: %v", util.ErrQuestionSourceDown, err)
	}

	normalized := make([]NormalizedQuestion, len(items))
	for i, item := range items {
		normalized[i] = normalizeItem(item)
	}
	return normalized, nil
}

func sourceKey(t model.SourceType) string {
	switch t {
	case model.SourceTopic:
		return "topicId"
	case model.SourceSubject:
		return "subjectId"
	case model.SourcePlatform:
		return "platformId"
	case model.SourceRoadmap:
		return "roadmapId"
	default:
		return "quizId"
	}
}

func normalizeItem(item sourceItem) NormalizedQuestion {
	raw := item.Options
	if len(raw) == 0 {
		raw = item.Choices
	}
	opts := make([]string, len(raw))
	for i, v := range raw {
		opts[i] = optionToString(v)
	}
	return NormalizedQuestion{
		Prompt:        item.Question,
		Options:       opts,
		CorrectAnswer: optionToString(item.Answer),
		Explanation:   item.Explanation,
	}
}

// optionToString 题源的选项值可能是字符串也可能是数字，统一转成字符串存储
func optionToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
