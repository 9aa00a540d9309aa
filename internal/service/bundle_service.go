package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/kmhistory/quizhub-backend/internal/config"
	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/repository"
)

// bundleCacheTTL bounds staleness of the cached question list; admin writes
// invalidate eagerly, the TTL is a backstop.
const bundleCacheTTL = 10 * time.Minute

// BundleService serves bundle listings, session hydration and per-user
// progress. The heavy question-list payload is cached in Redis; everything
// user-specific is read fresh on every request.
type BundleService struct {
	bundleRepo   *repository.BundleRepository
	questionRepo *repository.QuestionRepository
	progressRepo *repository.ProgressRepository
	historyRepo  *repository.HistoryRepository
	rdb          *redis.Client
}

// NewBundleService creates a new BundleService.
func NewBundleService(bundleRepo *repository.BundleRepository, questionRepo *repository.QuestionRepository, progressRepo *repository.ProgressRepository, historyRepo *repository.HistoryRepository, rdb *redis.Client) *BundleService {
	return &BundleService{
		bundleRepo:   bundleRepo,
		questionRepo: questionRepo,
		progressRepo: progressRepo,
		historyRepo:  historyRepo,
		rdb:          rdb,
	}
}

// ErrUnknownQuestions is returned when a bundle references question ids that
// do not exist.
var ErrUnknownQuestions = errors.New("one or more question ids do not exist")

func (s *BundleService) checkQuestionIDs(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	unique := dedupe(ids)
	count, err := s.questionRepo.CountExisting(ctx, unique)
	if err != nil {
		return err
	}
	if count != len(unique) {
		return ErrUnknownQuestions
	}
	return nil
}

// List returns active bundles matching the filter. When userID is set each
// row carries that user's aggregate progress so the client can render
// resume/completed badges without extra round trips.
func (s *BundleService) List(ctx context.Context, userID *int, f model.BundleFilter, limit, offset int) ([]model.BundleSummary, int, error) {
	bundles, total, err := s.bundleRepo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]model.BundleSummary, len(bundles))
	for i, b := range bundles {
		summaries[i] = model.BundleSummary{Bundle: b}
	}

	if userID != nil && len(bundles) > 0 {
		ids := make([]int, len(bundles))
		for i, b := range bundles {
			ids[i] = b.ID
		}
		progress, err := s.progressRepo.GetForBundles(ctx, *userID, ids)
		if err != nil {
			return nil, 0, fmt.Errorf("load progress: %w", err)
		}
		for i := range summaries {
			if p, ok := progress[summaries[i].ID]; ok {
				p := p
				summaries[i].UserProgress = &p
			}
		}
	}
	return summaries, total, nil
}

// Detail hydrates a bundle for play: header, ordered questions and, for an
// authenticated user, their saved progress and already-graded questions.
// Inactive bundles are invisible on this path.
func (s *BundleService) Detail(ctx context.Context, userID *int, bundleID int) (*model.BundleDetail, error) {
	bundle, err := s.bundleRepo.GetByID(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if !bundle.IsActive {
		return nil, repository.ErrNotFound
	}

	questions, err := s.cachedQuestions(ctx, bundleID)
	if err != nil {
		return nil, err
	}

	detail := &model.BundleDetail{
		Bundle:           *bundle,
		Questions:        questions,
		QuestionProgress: []model.QuestionProgress{},
	}

	if userID != nil {
		progress, err := s.progressRepo.Get(ctx, *userID, bundleID)
		if err != nil {
			return nil, fmt.Errorf("load progress: %w", err)
		}
		detail.UserProgress = progress

		entries, err := s.historyRepo.BundleProgressEntries(ctx, *userID, bundleID)
		if err != nil {
			return nil, fmt.Errorf("load question progress: %w", err)
		}
		detail.QuestionProgress = entries
	}
	return detail, nil
}

// SaveProgress upserts the caller's progress snapshot for a bundle.
func (s *BundleService) SaveProgress(ctx context.Context, userID, bundleID int, req model.ProgressUpdateRequest) (*model.BundleProgress, error) {
	bundle, err := s.bundleRepo.GetByID(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if !bundle.IsActive {
		return nil, repository.ErrNotFound
	}
	return s.progressRepo.Upsert(ctx, userID, bundleID, req)
}

// ResetProgress wipes the caller's progress and per-question history for a
// bundle so it can be replayed from scratch.
func (s *BundleService) ResetProgress(ctx context.Context, userID, bundleID int) error {
	if _, err := s.bundleRepo.GetByID(ctx, bundleID); err != nil {
		return err
	}
	if err := s.historyRepo.DeleteByUserAndBundle(ctx, userID, bundleID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return s.progressRepo.Delete(ctx, userID, bundleID)
}

// AdminDetail hydrates a bundle for the console, inactive ones included.
func (s *BundleService) AdminDetail(ctx context.Context, bundleID int) (*model.BundleDetail, error) {
	bundle, err := s.bundleRepo.GetByID(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	questions, err := s.bundleRepo.Questions(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	return &model.BundleDetail{
		Bundle:           *bundle,
		Questions:        questions,
		QuestionProgress: []model.QuestionProgress{},
	}, nil
}

// Create builds a bundle and its ordered question membership.
func (s *BundleService) Create(ctx context.Context, req model.BundleRequest) (*model.Bundle, error) {
	if err := s.checkQuestionIDs(ctx, req.QuestionIDs); err != nil {
		return nil, err
	}
	bundle := bundleFromRequest(req)
	if err := s.bundleRepo.Create(ctx, bundle, req.QuestionIDs); err != nil {
		return nil, err
	}
	return bundle, nil
}

// Update replaces a bundle's fields and question membership wholesale.
func (s *BundleService) Update(ctx context.Context, bundleID int, req model.BundleRequest) (*model.Bundle, error) {
	if _, err := s.bundleRepo.GetByID(ctx, bundleID); err != nil {
		return nil, err
	}
	if err := s.checkQuestionIDs(ctx, req.QuestionIDs); err != nil {
		return nil, err
	}
	bundle := bundleFromRequest(req)
	bundle.ID = bundleID
	if err := s.bundleRepo.Update(ctx, bundle, req.QuestionIDs); err != nil {
		return nil, err
	}
	s.invalidate(ctx, bundleID)
	return bundle, nil
}

// Delete removes a bundle and everything hanging off it.
func (s *BundleService) Delete(ctx context.Context, bundleID int) error {
	if err := s.bundleRepo.Delete(ctx, bundleID); err != nil {
		return err
	}
	s.invalidate(ctx, bundleID)
	return nil
}

func bundleFromRequest(req model.BundleRequest) *model.Bundle {
	bundle := &model.Bundle{
		Title:       req.Title,
		Description: req.Description,
		IsActive:    req.IsActive,
	}
	if req.Category != nil {
		c := model.Category(*req.Category)
		bundle.Category = &c
	}
	if req.Difficulty != nil {
		d := model.Difficulty(*req.Difficulty)
		bundle.Difficulty = &d
	}
	return bundle
}

// cachedQuestions returns the bundle's ordered question list, serving from
// Redis when possible. Cache trouble degrades to a database read.
func (s *BundleService) cachedQuestions(ctx context.Context, bundleID int) ([]model.BundleQuestion, error) {
	key := config.CacheKey.BundleDetail(bundleID)

	cached, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var questions []model.BundleQuestion
		if err := json.Unmarshal(cached, &questions); err == nil {
			return questions, nil
		}
		log.Warn().Int("bundle_id", bundleID).Msg("corrupt bundle cache entry, rebuilding")
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Int("bundle_id", bundleID).Msg("bundle cache read failed")
	}

	questions, err := s.bundleRepo.Questions(ctx, bundleID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(questions); err == nil {
		if err := s.rdb.Set(ctx, key, payload, bundleCacheTTL).Err(); err != nil {
			log.Warn().Err(err).Int("bundle_id", bundleID).Msg("bundle cache write failed")
		}
	}
	return questions, nil
}

// invalidate drops the cached question list after an admin write.
func (s *BundleService) invalidate(ctx context.Context, bundleID int) {
	if err := s.rdb.Del(ctx, config.CacheKey.BundleDetail(bundleID)).Err(); err != nil {
		log.Warn().Err(err).Int("bundle_id", bundleID).Msg("bundle cache invalidation failed")
	}
}
