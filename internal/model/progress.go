package model

import "time"

// BundleProgress is the per-user aggregate state of one bundle session,
// unique per (user, bundle).
type BundleProgress struct {
	BundleID          int        `json:"bundle_id"`
	TotalQuestions    int        `json:"total_questions"`
	CorrectAnswers    int        `json:"correct_answers"`
	Completed         bool       `json:"completed"`
	InProgress        bool       `json:"in_progress"`
	LastQuestionID    *int       `json:"last_question_id"`
	LastQuestionOrder *int       `json:"last_question_order"`
	LastPlayedAt      *time.Time `json:"last_played_at"`
	CompletedAt       *time.Time `json:"completed_at"`
}

// ProgressUpdateRequest is the snapshot a client persists after submissions
// and on exit/completion. InProgress defaults to !Completed when omitted.
type ProgressUpdateRequest struct {
	TotalQuestions    int   `json:"total_questions" binding:"required,min=1"`
	CorrectAnswers    int   `json:"correct_answers" binding:"min=0"`
	Completed         bool  `json:"completed"`
	LastQuestionID    *int  `json:"last_question_id"`
	LastQuestionOrder *int  `json:"last_question_order"`
	InProgress        *bool `json:"in_progress"`
}

// QuestionProgress is one previously graded question inside a bundle,
// replayed to the client when the bundle is re-opened.
type QuestionProgress struct {
	QuestionID    int       `json:"question_id"`
	IsCorrect     bool      `json:"is_correct"`
	UserAnswer    string    `json:"user_answer"`
	CorrectAnswer string    `json:"correct_answer"`
	Explanation   *string   `json:"explanation"`
	SolvedAt      time.Time `json:"solved_at"`
	Order         int       `json:"order"`
}
