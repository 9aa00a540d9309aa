package service

import (
	"context"
	"errors"

	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/repository"
)

// ErrTopicNameTaken is returned when a topic name collides (case-insensitive).
var ErrTopicNameTaken = errors.New("topic name already exists")

// TopicService manages the topic taxonomy. Listing is public; writes are
// console-only.
type TopicService struct {
	topicRepo *repository.TopicRepository
}

// NewTopicService creates a new TopicService.
func NewTopicService(topicRepo *repository.TopicRepository) *TopicService {
	return &TopicService{topicRepo: topicRepo}
}

// List returns all topics ordered by name.
func (s *TopicService) List(ctx context.Context) ([]model.Topic, error) {
	return s.topicRepo.List(ctx)
}

// Create adds a topic.
func (s *TopicService) Create(ctx context.Context, req model.TopicRequest) (*model.Topic, error) {
	topic := &model.Topic{Name: req.Name, Description: req.Description}
	if err := s.topicRepo.Create(ctx, topic); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrTopicNameTaken
		}
		return nil, err
	}
	return topic, nil
}

// Update renames a topic or changes its description.
func (s *TopicService) Update(ctx context.Context, id int, req model.TopicRequest) (*model.Topic, error) {
	topic := &model.Topic{ID: id, Name: req.Name, Description: req.Description}
	if err := s.topicRepo.Update(ctx, topic); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrTopicNameTaken
		}
		return nil, err
	}
	return topic, nil
}

// Delete removes a topic; question links cascade, questions stay.
func (s *TopicService) Delete(ctx context.Context, id int) error {
	return s.topicRepo.Delete(ctx, id)
}
