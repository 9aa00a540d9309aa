package service

import (
	"context"
	"errors"

	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/repository"
)

// Question shape errors surfaced to the console as 422s.
var (
	ErrChoicesRequired   = errors.New("MULTIPLE questions need at least two choices")
	ErrOneCorrectChoice  = errors.New("MULTIPLE questions need exactly one correct choice")
	ErrChoicesNotAllowed = errors.New("SHORT questions cannot carry choices")
	ErrUnknownTopics     = errors.New("one or more topic ids do not exist")
)

// QuestionService is the console-facing question CRUD.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	topicRepo    *repository.TopicRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, topicRepo *repository.TopicRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo, topicRepo: topicRepo}
}

// List returns admin question rows matching the filter.
func (s *QuestionService) List(ctx context.Context, f model.QuestionFilter, limit, offset int) ([]model.QuestionListItem, int, error) {
	questions, total, err := s.questionRepo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	items := make([]model.QuestionListItem, len(questions))
	for i, q := range questions {
		topics := q.Topics
		if topics == nil {
			topics = []model.Topic{}
		}
		items[i] = model.QuestionListItem{
			ID:             q.ID,
			QuestionText:   q.QuestionText,
			Type:           q.Type,
			CreatedAt:      q.CreatedAt,
			ChoiceCount:    len(q.Choices),
			HasExplanation: q.Explanation != nil && *q.Explanation != "",
			Category:       q.Category,
			Difficulty:     q.Difficulty,
			Topics:         topics,
			ImageURL:       q.ImageURL,
		}
	}
	return items, total, nil
}

// Get returns the full question record, answer key included.
func (s *QuestionService) Get(ctx context.Context, id int) (*model.Question, error) {
	return s.questionRepo.GetByID(ctx, id)
}

// Create validates and stores a new question.
func (s *QuestionService) Create(ctx context.Context, req model.QuestionRequest) (*model.Question, error) {
	q, err := s.questionFromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.questionRepo.Create(ctx, q, dedupe(req.TopicIDs)); err != nil {
		return nil, err
	}
	return s.questionRepo.GetByID(ctx, q.ID)
}

// Update validates and replaces a question, its choices and topic links.
func (s *QuestionService) Update(ctx context.Context, id int, req model.QuestionRequest) (*model.Question, error) {
	if _, err := s.questionRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	q, err := s.questionFromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	q.ID = id
	if err := s.questionRepo.Update(ctx, q, dedupe(req.TopicIDs)); err != nil {
		return nil, err
	}
	return s.questionRepo.GetByID(ctx, id)
}

// Delete removes a question. Bundle memberships and history rows cascade.
func (s *QuestionService) Delete(ctx context.Context, id int) error {
	return s.questionRepo.Delete(ctx, id)
}

// questionFromRequest enforces the shape rules the binding tags cannot
// express: MULTIPLE questions carry choices with exactly one marked correct,
// SHORT questions carry none.
func (s *QuestionService) questionFromRequest(ctx context.Context, req model.QuestionRequest) (*model.Question, error) {
	qType := model.QuestionType(req.Type)

	switch qType {
	case model.QuestionTypeMultiple:
		if len(req.Choices) < 2 {
			return nil, ErrChoicesRequired
		}
		correct := 0
		for _, c := range req.Choices {
			if c.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return nil, ErrOneCorrectChoice
		}
	case model.QuestionTypeShort:
		if len(req.Choices) > 0 {
			return nil, ErrChoicesNotAllowed
		}
	}

	topicIDs := dedupe(req.TopicIDs)
	if len(topicIDs) > 0 {
		count, err := s.topicRepo.CountExisting(ctx, topicIDs)
		if err != nil {
			return nil, err
		}
		if count != len(topicIDs) {
			return nil, ErrUnknownTopics
		}
	}

	q := &model.Question{
		QuestionText:  req.QuestionText,
		Type:          qType,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
		Category:      model.CategoryAll,
		Difficulty:    model.DifficultyStandard,
		ImageURL:      req.ImageURL,
	}
	if req.Category != "" {
		q.Category = model.Category(req.Category)
	}
	if req.Difficulty != "" {
		q.Difficulty = model.Difficulty(req.Difficulty)
	}
	for _, c := range req.Choices {
		q.Choices = append(q.Choices, model.Choice{Content: c.Content, IsCorrect: c.IsCorrect})
	}
	return q, nil
}

func dedupe(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
