package worker

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kmhistory/quizhub-backend/internal/config"
	"github.com/kmhistory/quizhub-backend/internal/service"
)

const (
	StatsBatchSize    = 100
	StatsBatchTimeout = 2 * time.Second
	StatsPollTimeout  = 1 * time.Second
)

// StatsWorker drains the submission stats queue and folds graded
// submissions into the Redis accuracy counters the console dashboard reads.
// Keeping this off the request path means grading latency never pays for
// counter bookkeeping.
type StatsWorker struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewStatsWorker creates a new StatsWorker.
func NewStatsWorker(rdb *redis.Client, log zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		rdb: rdb,
		log: log.With().Str("component", "stats_worker").Logger(),
	}
}

// Start runs the worker loop until ctx is cancelled. Remaining batched
// events are flushed before returning.
func (w *StatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatsWorker started")

	batch := make([]service.SubmissionEvent, 0, StatsBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= StatsBatchSize || time.Since(lastFlush) >= StatsBatchTimeout) {

			w.flush(context.Background(), batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flush(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, StatsPollTimeout, config.WorkerKey.SubmissionStatsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var event service.SubmissionEvent
			if err := json.Unmarshal([]byte(item[1]), &event); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			batch = append(batch, event)
		}
	}
}

// flush applies one batch of events as a single pipelined HIncrBy round.
func (w *StatsWorker) flush(ctx context.Context, batch []service.SubmissionEvent) {
	if len(batch) == 0 {
		return
	}

	attempts := make(map[string]int64, len(batch))
	correct := make(map[string]int64, len(batch))
	for _, event := range batch {
		field := strconv.Itoa(event.QuestionID)
		attempts[field]++
		if event.IsCorrect {
			correct[field]++
		}
	}

	pipe := w.rdb.Pipeline()
	for field, n := range attempts {
		pipe.HIncrBy(ctx, config.CacheKey.QuestionAttempts, field, n)
	}
	for field, n := range correct {
		pipe.HIncrBy(ctx, config.CacheKey.QuestionCorrect, field, n)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("events", len(batch)).Msg("stats flush failed — requeueing")
		for _, event := range batch {
			raw, _ := json.Marshal(event)
			w.rdb.RPush(ctx, config.WorkerKey.SubmissionStatsQueue, raw)
		}
	}
}
