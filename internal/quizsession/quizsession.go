// Package quizsession implements the client-side quiz session state machine:
// one current question, one verdict, submit and advance, in either random or
// bundle mode. It talks to the backend through narrow collaborator
// interfaces so the HTTP client, the terminal player and the tests all drive
// the same logic.
package quizsession

import (
	"context"
	"errors"

	"github.com/kmhistory/quizhub-backend/internal/model"
)

// Collaborator error contract. Implementations report transport-level auth
// and missing-resource failures by wrapping these sentinels; everything else
// is treated as a generic failure the caller may retry.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Session errors surfaced to the player.
var (
	// ErrNoQuestion means the source has nothing matching the filters, or
	// the selected bundle is empty.
	ErrNoQuestion = errors.New("no question available")

	// ErrLoginRequired is the session-level translation of a 401 from any
	// collaborator, in both modes.
	ErrLoginRequired = errors.New("login required")

	// ErrEmptyAnswer rejects a blank SHORT answer before any network call.
	ErrEmptyAnswer = errors.New("answer must not be empty")

	// ErrNoChoiceSelected rejects a MULTIPLE submit without a selection
	// before any network call.
	ErrNoChoiceSelected = errors.New("no choice selected")

	// ErrNoActiveQuestion means submit/advance was called with nothing to
	// act on.
	ErrNoActiveQuestion = errors.New("no active question")

	// ErrSessionCompleted means the bundle session is finished; only retry
	// or exit are valid.
	ErrSessionCompleted = errors.New("session already completed")
)

// QuestionSource loads questions and bundles.
type QuestionSource interface {
	RandomQuestion(ctx context.Context, filter Filter) (*model.QuestionView, error)
	Bundle(ctx context.Context, id int) (*model.BundleDetail, error)
	Topics(ctx context.Context) ([]model.Topic, error)
}

// AnswerSubmitter grades answers.
type AnswerSubmitter interface {
	Submit(ctx context.Context, req model.SubmitRequest) (*model.QuizResult, error)
}

// ProgressStore persists and clears per-bundle progress snapshots.
type ProgressStore interface {
	SaveProgress(ctx context.Context, bundleID int, req model.ProgressUpdateRequest) (*model.BundleProgress, error)
	ResetProgress(ctx context.Context, bundleID int) error
}

// Filter narrows random-mode question selection. Zero values mean no
// constraint.
type Filter struct {
	Type       model.QuestionType
	Category   model.Category
	Difficulty model.Difficulty
	TopicID    int
}

// Result is one graded question as the session remembers it: the server's
// verdict plus the raw answer the player actually sent.
type Result struct {
	QuestionID    int
	UserAnswer    string
	IsCorrect     bool
	CorrectAnswer string
	Explanation   *string
}

// Mode selects between free-play random questions and an ordered bundle.
type Mode int

const (
	ModeRandom Mode = iota
	ModeBundle
)

// Phase is the session state. Loading has no phase of its own: collaborator
// calls are synchronous and the session either lands in the next phase or
// keeps the previous one on error.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReady
	PhaseAnswered
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReady:
		return "ready"
	case PhaseAnswered:
		return "answered"
	case PhaseCompleted:
		return "completed"
	}
	return "unknown"
}
