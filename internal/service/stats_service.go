package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/kmhistory/quizhub-backend/internal/config"
	"github.com/kmhistory/quizhub-backend/internal/repository"
)

// QuestionStat is one question's accuracy row for the console dashboard.
type QuestionStat struct {
	QuestionID   int     `json:"question_id"`
	QuestionText string  `json:"question_text"`
	Category     string  `json:"category"`
	Difficulty   string  `json:"difficulty"`
	Attempts     int     `json:"total_attempts"`
	Correct      int     `json:"correct_count"`
	Accuracy     float64 `json:"accuracy"`
}

// StatsOverview is the console dashboard payload. Question rows are sorted
// worst-accuracy-first so problem questions surface immediately.
type StatsOverview struct {
	Questions []QuestionStat               `json:"questions"`
	Bundles   []repository.BundleAggregate `json:"bundles"`
}

// StatsService assembles the console dashboard. Attempt counters come from
// the Redis hashes the stats worker maintains; when those are cold (fresh
// deployment, flushed cache) it falls back to aggregating history rows.
type StatsService struct {
	historyRepo *repository.HistoryRepository
	rdb         *redis.Client
}

// NewStatsService creates a new StatsService.
func NewStatsService(historyRepo *repository.HistoryRepository, rdb *redis.Client) *StatsService {
	return &StatsService{historyRepo: historyRepo, rdb: rdb}
}

// Overview builds the full dashboard payload.
func (s *StatsService) Overview(ctx context.Context) (*StatsOverview, error) {
	questions, err := s.questionStats(ctx)
	if err != nil {
		return nil, err
	}

	bundles, err := s.historyRepo.BundleAggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("bundle aggregates: %w", err)
	}

	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Accuracy != questions[j].Accuracy {
			return questions[i].Accuracy < questions[j].Accuracy
		}
		return questions[i].Attempts > questions[j].Attempts
	})

	return &StatsOverview{Questions: questions, Bundles: bundles}, nil
}

func (s *StatsService) questionStats(ctx context.Context) ([]QuestionStat, error) {
	attempts, err := s.rdb.HGetAll(ctx, config.CacheKey.QuestionAttempts).Result()
	if err != nil {
		log.Warn().Err(err).Msg("question stats cache unavailable, using database")
		attempts = nil
	}
	if len(attempts) == 0 {
		return s.questionStatsFromDB(ctx)
	}

	correct, err := s.rdb.HGetAll(ctx, config.CacheKey.QuestionCorrect).Result()
	if err != nil {
		return s.questionStatsFromDB(ctx)
	}

	// The counters only know ids; join against the question table for text
	// and classification.
	rows, err := s.historyRepo.QuestionAccuracies(ctx)
	if err != nil {
		return nil, fmt.Errorf("question accuracies: %w", err)
	}
	byID := make(map[int]repository.QuestionAccuracy, len(rows))
	for _, row := range rows {
		byID[row.QuestionID] = row
	}

	stats := make([]QuestionStat, 0, len(attempts))
	for field, raw := range attempts {
		id, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		total, _ := strconv.Atoi(raw)
		ok, _ := strconv.Atoi(correct[field])

		stat := QuestionStat{QuestionID: id, Attempts: total, Correct: ok}
		if row, found := byID[id]; found {
			stat.QuestionText = row.QuestionText
			stat.Category = string(row.Category)
			stat.Difficulty = string(row.Difficulty)
		}
		if stat.Attempts > 0 {
			stat.Accuracy = float64(stat.Correct) / float64(stat.Attempts)
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

func (s *StatsService) questionStatsFromDB(ctx context.Context) ([]QuestionStat, error) {
	rows, err := s.historyRepo.QuestionAccuracies(ctx)
	if err != nil {
		return nil, fmt.Errorf("question accuracies: %w", err)
	}
	stats := make([]QuestionStat, 0, len(rows))
	for _, row := range rows {
		stat := QuestionStat{
			QuestionID:   row.QuestionID,
			QuestionText: row.QuestionText,
			Category:     string(row.Category),
			Difficulty:   string(row.Difficulty),
			Attempts:     row.Attempts,
			Correct:      row.Correct,
		}
		if stat.Attempts > 0 {
			stat.Accuracy = float64(stat.Correct) / float64(stat.Attempts)
		}
		stats = append(stats, stat)
	}
	return stats, nil
}
