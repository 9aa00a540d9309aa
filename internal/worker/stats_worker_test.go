package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kmhistory/quizhub-backend/internal/config"
	"github.com/kmhistory/quizhub-backend/internal/service"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func enqueueEvent(t *testing.T, rdb *redis.Client, event service.SubmissionEvent) {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if err := rdb.RPush(context.Background(), config.WorkerKey.SubmissionStatsQueue, payload).Err(); err != nil {
		t.Fatalf("rpush: %v", err)
	}
}

func TestStatsWorkerFoldsEventsIntoCounters(t *testing.T) {
	rdb := newTestRedis(t)

	enqueueEvent(t, rdb, service.SubmissionEvent{QuestionID: 11, IsCorrect: true})
	enqueueEvent(t, rdb, service.SubmissionEvent{QuestionID: 11, IsCorrect: false})
	enqueueEvent(t, rdb, service.SubmissionEvent{QuestionID: 12, IsCorrect: true})

	w := NewStatsWorker(rdb, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		n, err := rdb.LLen(context.Background(), config.WorkerKey.SubmissionStatsQueue).Result()
		if err != nil {
			t.Fatalf("llen: %v", err)
		}
		if n == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("worker did not drain the queue")
		case <-time.After(20 * time.Millisecond):
		}
	}

	// Cancellation flushes whatever is still batched.
	cancel()
	<-done

	attempts, err := rdb.HGetAll(context.Background(), config.CacheKey.QuestionAttempts).Result()
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	correct, err := rdb.HGetAll(context.Background(), config.CacheKey.QuestionCorrect).Result()
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}

	if attempts["11"] != "2" || attempts["12"] != "1" {
		t.Fatalf("unexpected attempt counters: %v", attempts)
	}
	if correct["11"] != "1" || correct["12"] != "1" {
		t.Fatalf("unexpected correct counters: %v", correct)
	}
}

func TestStatsWorkerSkipsMalformedPayloads(t *testing.T) {
	rdb := newTestRedis(t)

	if err := rdb.RPush(context.Background(), config.WorkerKey.SubmissionStatsQueue, "not-json").Err(); err != nil {
		t.Fatalf("rpush: %v", err)
	}
	enqueueEvent(t, rdb, service.SubmissionEvent{QuestionID: 5, IsCorrect: true})

	w := NewStatsWorker(rdb, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		n, _ := rdb.LLen(context.Background(), config.WorkerKey.SubmissionStatsQueue).Result()
		if n == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("worker did not drain the queue")
		case <-time.After(20 * time.Millisecond):
		}
	}
	cancel()
	<-done

	attempts, err := rdb.HGetAll(context.Background(), config.CacheKey.QuestionAttempts).Result()
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if attempts["5"] != "1" {
		t.Fatalf("valid event after a malformed one must still count: %v", attempts)
	}
}
