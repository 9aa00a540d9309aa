package model

import "time"

// QuizHistory records a single graded submission for an authenticated user.
type QuizHistory struct {
	ID         int       `json:"id"`
	UserID     int       `json:"user_id"`
	QuestionID int       `json:"question_id"`
	BundleID   *int      `json:"bundle_id"`
	UserAnswer string    `json:"user_answer"`
	IsCorrect  bool      `json:"is_correct"`
	SolvedAt   time.Time `json:"solved_at"`
}

// SubmitRequest is the answer submission payload.
type SubmitRequest struct {
	QuestionID int    `json:"question_id" binding:"required"`
	UserAnswer string `json:"user_answer" binding:"required"`
	BundleID   *int   `json:"bundle_id"`
}

// QuizResult is the server's verdict on one submission. The correct answer
// is revealed regardless of correctness.
type QuizResult struct {
	IsCorrect     bool    `json:"is_correct"`
	CorrectAnswer string  `json:"correct_answer"`
	Explanation   *string `json:"explanation"`
}
