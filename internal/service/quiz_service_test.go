package service

import (
	"errors"
	"testing"

	"github.com/kmhistory/quizhub-backend/internal/model"
)

func multipleQuestion() *model.Question {
	return &model.Question{
		ID:           1,
		QuestionText: "Which dynasty built Gyeongbokgung?",
		Type:         model.QuestionTypeMultiple,
		Choices: []model.Choice{
			{ID: 10, Content: "Goryeo", IsCorrect: false},
			{ID: 11, Content: "Joseon", IsCorrect: true},
			{ID: 12, Content: "Silla", IsCorrect: false},
		},
	}
}

func TestGradeMultipleAcceptsChoiceID(t *testing.T) {
	result, err := grade(multipleQuestion(), "11")
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if !result.IsCorrect {
		t.Fatalf("choice id of the correct choice must grade correct")
	}
	if result.CorrectAnswer != "Joseon" {
		t.Fatalf("expected the correct choice content, got %q", result.CorrectAnswer)
	}
}

func TestGradeMultipleAcceptsChoiceContent(t *testing.T) {
	result, err := grade(multipleQuestion(), "Joseon")
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if !result.IsCorrect {
		t.Fatalf("content of the correct choice must grade correct")
	}
}

func TestGradeMultipleTrimsWhitespace(t *testing.T) {
	for _, answer := range []string{" 11 ", "\tJoseon\n"} {
		result, err := grade(multipleQuestion(), answer)
		if err != nil {
			t.Fatalf("grade(%q): %v", answer, err)
		}
		if !result.IsCorrect {
			t.Errorf("grade(%q) must ignore surrounding whitespace", answer)
		}
	}
}

func TestGradeMultipleWrongChoice(t *testing.T) {
	result, err := grade(multipleQuestion(), "10")
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if result.IsCorrect {
		t.Fatalf("wrong choice must not grade correct")
	}
	if result.CorrectAnswer != "Joseon" {
		t.Fatalf("the verdict must still reveal the correct answer")
	}
}

func TestGradeMultipleWithoutAnswerKey(t *testing.T) {
	q := multipleQuestion()
	for i := range q.Choices {
		q.Choices[i].IsCorrect = false
	}
	if _, err := grade(q, "10"); err == nil {
		t.Fatalf("a question with no correct choice must error")
	}
}

func TestGradeShortIsTrimmedAndCaseInsensitive(t *testing.T) {
	q := &model.Question{
		ID:            2,
		Type:          model.QuestionTypeShort,
		CorrectAnswer: "Sejong the Great",
	}

	cases := []struct {
		answer string
		want   bool
	}{
		{"Sejong the Great", true},
		{"  sejong the great  ", true},
		{"SEJONG THE GREAT", true},
		{"Sejong", false},
		{"", false},
	}
	for _, tc := range cases {
		result, err := grade(q, tc.answer)
		if err != nil {
			t.Fatalf("grade(%q): %v", tc.answer, err)
		}
		if result.IsCorrect != tc.want {
			t.Errorf("grade(%q) = %v, want %v", tc.answer, result.IsCorrect, tc.want)
		}
	}
}

func TestGradeShortWithoutAnswerKey(t *testing.T) {
	q := &model.Question{ID: 3, Type: model.QuestionTypeShort}
	if _, err := grade(q, "anything"); err == nil {
		t.Fatalf("a SHORT question without an answer key must error")
	}
}

func TestGradeUnknownType(t *testing.T) {
	q := &model.Question{ID: 4, Type: model.QuestionType("ESSAY")}
	if _, err := grade(q, "x"); err == nil {
		t.Fatalf("unknown question type must error")
	}
}

func TestQuestionShapeValidation(t *testing.T) {
	s := &QuestionService{}

	base := model.QuestionRequest{
		QuestionText:  "q",
		CorrectAnswer: "a",
	}

	t.Run("multiple needs choices", func(t *testing.T) {
		req := base
		req.Type = string(model.QuestionTypeMultiple)
		req.Choices = []model.ChoiceRequest{{Content: "only one", IsCorrect: true}}
		if _, err := s.questionFromRequest(t.Context(), req); !errors.Is(err, ErrChoicesRequired) {
			t.Fatalf("expected ErrChoicesRequired, got %v", err)
		}
	})

	t.Run("multiple needs exactly one correct", func(t *testing.T) {
		req := base
		req.Type = string(model.QuestionTypeMultiple)
		req.Choices = []model.ChoiceRequest{
			{Content: "a", IsCorrect: true},
			{Content: "b", IsCorrect: true},
		}
		if _, err := s.questionFromRequest(t.Context(), req); !errors.Is(err, ErrOneCorrectChoice) {
			t.Fatalf("expected ErrOneCorrectChoice, got %v", err)
		}
	})

	t.Run("short rejects choices", func(t *testing.T) {
		req := base
		req.Type = string(model.QuestionTypeShort)
		req.Choices = []model.ChoiceRequest{{Content: "a"}}
		if _, err := s.questionFromRequest(t.Context(), req); !errors.Is(err, ErrChoicesNotAllowed) {
			t.Fatalf("expected ErrChoicesNotAllowed, got %v", err)
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		req := base
		req.Type = string(model.QuestionTypeShort)
		q, err := s.questionFromRequest(t.Context(), req)
		if err != nil {
			t.Fatalf("questionFromRequest: %v", err)
		}
		if q.Category != model.CategoryAll || q.Difficulty != model.DifficultyStandard {
			t.Fatalf("expected default classification, got %s/%s", q.Category, q.Difficulty)
		}
	})
}
