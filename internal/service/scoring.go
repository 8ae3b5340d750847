package service

import (
	"math"
	"strconv"
	"strings"

	"exam_prep_backend/internal/model"
)

// ScoreResult 一次提交的评分汇总，Total 恒等于快照题数
type ScoreResult struct {
	Correct     int `json:"correct"`
	Wrong       int `json:"wrong"`
	Unattempted int `json:"unattempted"`
	Total       int `json:"total"`
	Percent     int `json:"percent"`
}

// Score 纯函数评分：未作答不计对错，percent = round(correct/total*100)，空卷记 0。
// 返回的 verdicts 以题号为键用于回填单题对错；无标准答案或未作答时为 nil。
func Score(answers []model.Answer, snapshot []model.QuestionSnapshot) (ScoreResult, map[int]*bool) {
	byIndex := make(map[int]*model.Answer, len(answers))
	for i := range answers {
		byIndex[answers[i].QuestionIndex] = &answers[i]
	}

	result := ScoreResult{Total: len(snapshot)}
	verdicts := make(map[int]*bool, len(snapshot))

	for _, q := range snapshot {
		ans := byIndex[q.QuestionIndex]
		if ans == nil || ans.SelectedOption == nil || strings.TrimSpace(*ans.SelectedOption) == "" {
			verdicts[q.QuestionIndex] = nil
			continue
		}
		if q.CorrectAnswer == "" {
			// 题源没给标准答案，算作答过但对错未知
			result.Wrong++
			verdicts[q.QuestionIndex] = nil
			continue
		}
		correct := AnswerMatches(*ans.SelectedOption, q.CorrectAnswer)
		verdicts[q.QuestionIndex] = &correct
		if correct {
			result.Correct++
		} else {
			result.Wrong++
		}
	}

	result.Unattempted = result.Total - result.Correct - result.Wrong
	if result.Total > 0 {
		result.Percent = int(math.Round(float64(result.Correct) / float64(result.Total) * 100))
	}
	return result, verdicts
}

// AnswerMatches 宽松比较：去首尾空格、忽略大小写；双方都是数字时按数值比较，
// 兼容题源把选项值给成数字或字符串的情况
func AnswerMatches(selected, correct string) bool {
	a := strings.TrimSpace(strings.ToLower(selected))
	b := strings.TrimSpace(strings.ToLower(correct))
	if a == b {
		return true
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && fa == fb
}
