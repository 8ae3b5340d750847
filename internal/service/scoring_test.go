package service

import (
	"testing"

	"exam_prep_backend/internal/model"
)

func strPtr(s string) *string { return &s }

func makeSnapshot(answers ...string) []model.QuestionSnapshot {
	snapshot := make([]model.QuestionSnapshot, len(answers))
	for i, a := range answers {
		snapshot[i] = model.QuestionSnapshot{
			QuestionIndex: i,
			Prompt:        "q",
			CorrectAnswer: a,
		}
	}
	return snapshot
}

func TestScoreMixedOutcome(t *testing.T) {
	snapshot := makeSnapshot("a", "b", "c", "d", "e")
	answers := []model.Answer{
		{QuestionIndex: 0, SelectedOption: strPtr("a")},
		{QuestionIndex: 1, SelectedOption: strPtr("b")},
		{QuestionIndex: 2, SelectedOption: strPtr("x")},
	}

	result, verdicts := Score(answers, snapshot)

	if result.Correct != 2 || result.Wrong != 1 || result.Unattempted != 2 {
		t.Fatalf("got correct=%d wrong=%d unattempted=%d", result.Correct, result.Wrong, result.Unattempted)
	}
	if result.Total != 5 {
		t.Fatalf("total = %d, want 5", result.Total)
	}
	if result.Percent != 40 {
		t.Fatalf("percent = %d, want 40", result.Percent)
	}

	if v := verdicts[0]; v == nil || !*v {
		t.Error("question 0 should be marked correct")
	}
	if v := verdicts[2]; v == nil || *v {
		t.Error("question 2 should be marked wrong")
	}
	if verdicts[3] != nil {
		t.Error("unattempted question should have nil verdict")
	}
}

func TestScorePercentRounding(t *testing.T) {
	snapshot := makeSnapshot("a", "a", "a")
	answers := []model.Answer{
		{QuestionIndex: 0, SelectedOption: strPtr("a")},
	}

	result, _ := Score(answers, snapshot)
	// 1/3 = 33.33 → 33
	if result.Percent != 33 {
		t.Fatalf("percent = %d, want 33", result.Percent)
	}

	answers = append(answers, model.Answer{QuestionIndex: 1, SelectedOption: strPtr("a")})
	result, _ = Score(answers, snapshot)
	// 2/3 = 66.67 → 67
	if result.Percent != 67 {
		t.Fatalf("percent = %d, want 67", result.Percent)
	}
}

func TestScoreEmptySnapshot(t *testing.T) {
	result, verdicts := Score(nil, nil)
	if result.Total != 0 || result.Percent != 0 {
		t.Fatalf("empty snapshot should score zero, got %+v", result)
	}
	if len(verdicts) != 0 {
		t.Fatalf("expected no verdicts, got %d", len(verdicts))
	}
}

func TestScoreBlankSelectionCountsUnattempted(t *testing.T) {
	snapshot := makeSnapshot("a")
	answers := []model.Answer{
		{QuestionIndex: 0, SelectedOption: strPtr("   ")},
	}

	result, verdicts := Score(answers, snapshot)
	if result.Unattempted != 1 || result.Wrong != 0 {
		t.Fatalf("blank selection should be unattempted, got %+v", result)
	}
	if verdicts[0] != nil {
		t.Error("blank selection should have nil verdict")
	}
}

func TestScoreMissingCorrectAnswer(t *testing.T) {
	snapshot := makeSnapshot("")
	answers := []model.Answer{
		{QuestionIndex: 0, SelectedOption: strPtr("a")},
	}

	result, verdicts := Score(answers, snapshot)
	if result.Wrong != 1 {
		t.Fatalf("answered question without reference answer should count wrong, got %+v", result)
	}
	if verdicts[0] != nil {
		t.Error("verdict should stay nil when no reference answer exists")
	}
}

func TestAnswerMatches(t *testing.T) {
	cases := []struct {
		selected, correct string
		want              bool
	}{
		{"a", "a", true},
		{"  A ", "a", true},
		{"True", "true", true},
		{"42", "42.0", true},
		{"0.5", ".5", true},
		{"a", "b", false},
		{"42", "43", false},
		{"", "", true},
	}

	for _, c := range cases {
		if got := AnswerMatches(c.selected, c.correct); got != c.want {
			t.Errorf("AnswerMatches(%q, %q) = %v, want %v", c.selected, c.correct, got, c.want)
		}
	}
}
