package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kmhistory/quizhub-backend/internal/model"
)

// ProgressRepository handles per-user bundle progress rows.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

const progressColumns = `bundle_id, total_questions, correct_answers, completed,
	in_progress, last_question_id, last_question_order, last_played_at, completed_at`

func scanProgress(row pgx.Row) (model.BundleProgress, error) {
	var p model.BundleProgress
	err := row.Scan(&p.BundleID, &p.TotalQuestions, &p.CorrectAnswers, &p.Completed,
		&p.InProgress, &p.LastQuestionID, &p.LastQuestionOrder, &p.LastPlayedAt, &p.CompletedAt)
	return p, err
}

// Get returns the progress row for one user and bundle, or nil when absent.
func (r *ProgressRepository) Get(ctx context.Context, userID, bundleID int) (*model.BundleProgress, error) {
	p, err := scanProgress(r.pool.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM user_quiz_bundle_progress
		 WHERE user_id = $1 AND bundle_id = $2`, userID, bundleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetForBundles returns the user's progress rows for a set of bundles,
// keyed by bundle id.
func (r *ProgressRepository) GetForBundles(ctx context.Context, userID int, bundleIDs []int) (map[int]model.BundleProgress, error) {
	result := make(map[int]model.BundleProgress, len(bundleIDs))
	if len(bundleIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+progressColumns+` FROM user_quiz_bundle_progress
		 WHERE user_id = $1 AND bundle_id = ANY($2)`, userID, bundleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		result[p.BundleID] = p
	}
	return result, rows.Err()
}

// Upsert writes the snapshot, creating the row on first save. The last
// question pointer is only overwritten when the snapshot carries one, so a
// snapshot without position data never erases a known position.
func (r *ProgressRepository) Upsert(ctx context.Context, userID, bundleID int, req model.ProgressUpdateRequest) (*model.BundleProgress, error) {
	inProgress := !req.Completed
	if req.InProgress != nil {
		inProgress = *req.InProgress
	}

	var completedAt *time.Time
	if req.Completed {
		now := time.Now().UTC()
		completedAt = &now
	}

	p, err := scanProgress(r.pool.QueryRow(ctx,
		`INSERT INTO user_quiz_bundle_progress
		   (user_id, bundle_id, total_questions, correct_answers, completed, in_progress,
		    last_question_id, last_question_order, last_played_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), $9)
		 ON CONFLICT (user_id, bundle_id) DO UPDATE SET
		   total_questions = EXCLUDED.total_questions,
		   correct_answers = EXCLUDED.correct_answers,
		   completed = EXCLUDED.completed,
		   in_progress = EXCLUDED.in_progress,
		   last_question_id = COALESCE($7, user_quiz_bundle_progress.last_question_id),
		   last_question_order = COALESCE($8, user_quiz_bundle_progress.last_question_order),
		   last_played_at = now(),
		   completed_at = EXCLUDED.completed_at
		 RETURNING `+progressColumns,
		userID, bundleID, req.TotalQuestions, req.CorrectAnswers, req.Completed, inProgress,
		req.LastQuestionID, req.LastQuestionOrder, completedAt))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes the progress row for one user and bundle.
func (r *ProgressRepository) Delete(ctx context.Context, userID, bundleID int) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM user_quiz_bundle_progress WHERE user_id = $1 AND bundle_id = $2`,
		userID, bundleID)
	return err
}
