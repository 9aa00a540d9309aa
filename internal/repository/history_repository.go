package repository

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kmhistory/quizhub-backend/internal/model"
)

// HistoryRepository handles graded-submission records and the aggregate
// queries derived from them.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Create records one graded submission.
func (r *HistoryRepository) Create(ctx context.Context, h *model.QuizHistory) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO user_quiz_history (user_id, question_id, bundle_id, user_answer, is_correct)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, solved_at`,
		h.UserID, h.QuestionID, h.BundleID, h.UserAnswer, h.IsCorrect,
	).Scan(&h.ID, &h.SolvedAt)
}

// BundleProgressEntries returns the user's graded submissions for a bundle,
// joined with grading data and bundle order, sorted by order. When a question
// was submitted more than once (possible before bundle linkage existed), the
// latest verdict wins.
func (r *HistoryRepository) BundleProgressEntries(ctx context.Context, userID, bundleID int) ([]model.QuestionProgress, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (h.question_id)
		        h.question_id, h.is_correct, h.user_answer, q.correct_answer,
		        q.explanation, h.solved_at, bq.position
		 FROM user_quiz_history h
		 JOIN quiz_bundle_questions bq
		   ON bq.question_id = h.question_id AND bq.bundle_id = h.bundle_id
		 JOIN questions q ON q.id = h.question_id
		 WHERE h.user_id = $1 AND h.bundle_id = $2
		 ORDER BY h.question_id, h.solved_at DESC`, userID, bundleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.QuestionProgress{}
	for rows.Next() {
		var e model.QuestionProgress
		if err := rows.Scan(&e.QuestionID, &e.IsCorrect, &e.UserAnswer, &e.CorrectAnswer,
			&e.Explanation, &e.SolvedAt, &e.Order); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// DISTINCT ON ordering is by question id; the client wants bundle order.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })
	return entries, nil
}

// DeleteByUserAndBundle clears the user's history for a bundle (retry flow).
func (r *HistoryRepository) DeleteByUserAndBundle(ctx context.Context, userID, bundleID int) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM user_quiz_history WHERE user_id = $1 AND bundle_id = $2`,
		userID, bundleID)
	return err
}

// QuestionAccuracy is one row of the per-question accuracy aggregate.
type QuestionAccuracy struct {
	QuestionID   int              `json:"question_id"`
	QuestionText string           `json:"question_text"`
	Category     model.Category   `json:"category"`
	Difficulty   model.Difficulty `json:"difficulty"`
	Attempts     int              `json:"total_attempts"`
	Correct      int              `json:"correct_count"`
}

// QuestionAccuracies aggregates all recorded submissions per question,
// questions without attempts excluded.
func (r *HistoryRepository) QuestionAccuracies(ctx context.Context) ([]QuestionAccuracy, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.question_text, q.category, q.difficulty,
		        count(h.id), count(h.id) FILTER (WHERE h.is_correct)
		 FROM questions q
		 JOIN user_quiz_history h ON h.question_id = q.id
		 GROUP BY q.id
		 HAVING count(h.id) > 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []QuestionAccuracy{}
	for rows.Next() {
		var s QuestionAccuracy
		if err := rows.Scan(&s.QuestionID, &s.QuestionText, &s.Category, &s.Difficulty,
			&s.Attempts, &s.Correct); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// BundleAggregate is one row of the per-bundle progress aggregate.
type BundleAggregate struct {
	BundleID        int     `json:"bundle_id"`
	Title           string  `json:"title"`
	TotalUsers      int     `json:"total_users"`
	CompletedUsers  int     `json:"completed_users"`
	InProgressUsers int     `json:"in_progress_users"`
	AverageAccuracy float64 `json:"average_accuracy"`
}

// BundleAggregates aggregates stored bundle progress per bundle.
func (r *HistoryRepository) BundleAggregates(ctx context.Context) ([]BundleAggregate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT b.id, b.title,
		        count(p.id),
		        count(p.id) FILTER (WHERE p.completed),
		        count(p.id) FILTER (WHERE p.in_progress),
		        coalesce(avg(CASE WHEN p.total_questions > 0
		                          THEN p.correct_answers::float / p.total_questions
		                     END), 0)
		 FROM quiz_bundles b
		 JOIN user_quiz_bundle_progress p ON p.bundle_id = b.id
		 GROUP BY b.id
		 HAVING count(p.id) > 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []BundleAggregate{}
	for rows.Next() {
		var s BundleAggregate
		if err := rows.Scan(&s.BundleID, &s.Title, &s.TotalUsers, &s.CompletedUsers,
			&s.InProgressUsers, &s.AverageAccuracy); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
