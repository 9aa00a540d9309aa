package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/kmhistory/quizhub-backend/internal/config"
	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/repository"
)

// ErrNoQuestion signals that no question matched the requested filters.
var ErrNoQuestion = errors.New("no question available")

// SubmissionEvent is the payload pushed to the stats queue for every graded
// submission. The stats worker folds these into Redis counters.
type SubmissionEvent struct {
	QuestionID  int       `json:"question_id"`
	BundleID    *int      `json:"bundle_id,omitempty"`
	IsCorrect   bool      `json:"is_correct"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// QuizService serves random questions and grades submissions.
type QuizService struct {
	questionRepo *repository.QuestionRepository
	historyRepo  *repository.HistoryRepository
	rdb          *redis.Client
}

// NewQuizService creates a new QuizService.
func NewQuizService(questionRepo *repository.QuestionRepository, historyRepo *repository.HistoryRepository, rdb *redis.Client) *QuizService {
	return &QuizService{questionRepo: questionRepo, historyRepo: historyRepo, rdb: rdb}
}

// RandomQuestion picks one question matching the filter, stripped of answer
// data so it is safe to hand to an unauthenticated player.
func (s *QuizService) RandomQuestion(ctx context.Context, filter model.QuestionFilter) (*model.QuestionView, error) {
	q, err := s.questionRepo.Random(ctx, filter)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoQuestion
		}
		return nil, err
	}
	view := q.View()
	return &view, nil
}

// Submit grades an answer and reveals the correct answer and explanation.
// When userID is set the verdict is recorded in the user's history; anonymous
// submissions are graded but leave no trace.
func (s *QuizService) Submit(ctx context.Context, userID *int, req model.SubmitRequest) (*model.QuizResult, error) {
	q, err := s.questionRepo.GetByID(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}

	result, err := grade(q, req.UserAnswer)
	if err != nil {
		return nil, err
	}

	if userID != nil {
		entry := &model.QuizHistory{
			UserID:     *userID,
			QuestionID: q.ID,
			BundleID:   req.BundleID,
			UserAnswer: req.UserAnswer,
			IsCorrect:  result.IsCorrect,
		}
		if err := s.historyRepo.Create(ctx, entry); err != nil {
			return nil, fmt.Errorf("record history: %w", err)
		}
	}

	s.enqueueStats(ctx, SubmissionEvent{
		QuestionID:  q.ID,
		BundleID:    req.BundleID,
		IsCorrect:   result.IsCorrect,
		SubmittedAt: time.Now(),
	})

	return result, nil
}

// grade compares a raw answer against the question's answer key.
func grade(q *model.Question, userAnswer string) (*model.QuizResult, error) {
	switch q.Type {
	case model.QuestionTypeMultiple:
		var correct *model.Choice
		for i := range q.Choices {
			if q.Choices[i].IsCorrect {
				correct = &q.Choices[i]
				break
			}
		}
		if correct == nil {
			return nil, fmt.Errorf("question %d has no correct choice", q.ID)
		}
		// The client may send either the choice id or its content.
		answer := strings.TrimSpace(userAnswer)
		isCorrect := answer == strconv.Itoa(correct.ID) || answer == correct.Content
		return &model.QuizResult{
			IsCorrect:     isCorrect,
			CorrectAnswer: correct.Content,
			Explanation:   q.Explanation,
		}, nil

	case model.QuestionTypeShort:
		if q.CorrectAnswer == "" {
			return nil, fmt.Errorf("question %d has no answer key", q.ID)
		}
		isCorrect := strings.EqualFold(strings.TrimSpace(userAnswer), strings.TrimSpace(q.CorrectAnswer))
		return &model.QuizResult{
			IsCorrect:     isCorrect,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}, nil

	default:
		return nil, fmt.Errorf("unknown question type %q", q.Type)
	}
}

// enqueueStats pushes a submission event onto the worker queue. Failures are
// logged and swallowed: grading must not depend on Redis being up.
func (s *QuizService) enqueueStats(ctx context.Context, event SubmissionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("marshal submission event")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.SubmissionStatsQueue, payload).Err(); err != nil {
		log.Warn().Err(err).Int("question_id", event.QuestionID).Msg("enqueue submission stats")
	}
}
