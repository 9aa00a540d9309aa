package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kmhistory/quizhub-backend/internal/model"
)

// BundleRepository handles quiz bundle data access.
type BundleRepository struct {
	pool *pgxpool.Pool
}

// NewBundleRepository creates a new BundleRepository.
func NewBundleRepository(pool *pgxpool.Pool) *BundleRepository {
	return &BundleRepository{pool: pool}
}

const bundleColumns = `b.id, b.title, b.description, b.category, b.difficulty,
	b.question_count, b.is_active, b.created_at`

func scanBundle(row pgx.Row) (model.Bundle, error) {
	var b model.Bundle
	err := row.Scan(&b.ID, &b.Title, &b.Description, &b.Category, &b.Difficulty,
		&b.QuestionCount, &b.IsActive, &b.CreatedAt)
	return b, err
}

// List retrieves bundles matching the filter, newest first.
func (r *BundleRepository) List(ctx context.Context, f model.BundleFilter, limit, offset int) ([]model.Bundle, int, error) {
	var conds []string
	var args []interface{}

	if f.Search != "" {
		args = append(args, "%"+strings.TrimSpace(f.Search)+"%")
		conds = append(conds, fmt.Sprintf("b.title ILIKE $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("b.category = $%d", len(args)))
	}
	if f.Difficulty != "" {
		args = append(args, f.Difficulty)
		conds = append(conds, fmt.Sprintf("b.difficulty = $%d", len(args)))
	}
	if f.OnlyActive {
		conds = append(conds, "b.is_active")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM quiz_bundles b`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+bundleColumns+` FROM quiz_bundles b`+where+
			fmt.Sprintf(` ORDER BY b.created_at DESC, b.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bundles []model.Bundle
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, 0, err
		}
		bundles = append(bundles, b)
	}
	return bundles, total, rows.Err()
}

// GetByID retrieves one bundle header row.
func (r *BundleRepository) GetByID(ctx context.Context, id int) (*model.Bundle, error) {
	b, err := scanBundle(r.pool.QueryRow(ctx,
		`SELECT `+bundleColumns+` FROM quiz_bundles b WHERE b.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Questions returns the bundle's questions in bundle order, shaped for players.
func (r *BundleRepository) Questions(ctx context.Context, bundleID int) ([]model.BundleQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT bq.id, bq.question_id, bq.position, q.question_text, q.type,
		        q.category, q.difficulty, q.explanation, q.image_url
		 FROM quiz_bundle_questions bq
		 JOIN questions q ON q.id = bq.question_id
		 WHERE bq.bundle_id = $1
		 ORDER BY bq.position, bq.id`, bundleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.BundleQuestion{}
	index := make(map[int]int) // question id -> slice index
	for rows.Next() {
		var bq model.BundleQuestion
		if err := rows.Scan(&bq.ID, &bq.QuestionID, &bq.Order, &bq.QuestionText, &bq.Type,
			&bq.Category, &bq.Difficulty, &bq.Explanation, &bq.ImageURL); err != nil {
			return nil, err
		}
		bq.Choices = []model.ChoiceView{}
		bq.Topics = []model.Topic{}
		index[bq.QuestionID] = len(questions)
		questions = append(questions, bq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return questions, nil
	}

	ids := make([]int, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}

	choiceRows, err := r.pool.Query(ctx,
		`SELECT question_id, id, content FROM choices WHERE question_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	for choiceRows.Next() {
		var qid int
		var c model.ChoiceView
		if err := choiceRows.Scan(&qid, &c.ID, &c.Content); err != nil {
			choiceRows.Close()
			return nil, err
		}
		if i, ok := index[qid]; ok {
			questions[i].Choices = append(questions[i].Choices, c)
		}
	}
	choiceRows.Close()
	if err := choiceRows.Err(); err != nil {
		return nil, err
	}

	topicRows, err := r.pool.Query(ctx,
		`SELECT l.question_id, t.id, t.name, t.description, t.created_at
		 FROM question_topic_links l
		 JOIN quiz_topics t ON t.id = l.topic_id
		 WHERE l.question_id = ANY($1)
		 ORDER BY t.name`, ids)
	if err != nil {
		return nil, err
	}
	defer topicRows.Close()
	for topicRows.Next() {
		var qid int
		var t model.Topic
		if err := topicRows.Scan(&qid, &t.ID, &t.Name, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[qid]; ok {
			questions[i].Topics = append(questions[i].Topics, t)
		}
	}
	return questions, topicRows.Err()
}

// Create inserts a bundle and assigns its questions in one transaction.
func (r *BundleRepository) Create(ctx context.Context, b *model.Bundle, questionIDs []int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO quiz_bundles (title, description, category, difficulty, is_active)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`,
			b.Title, b.Description, b.Category, b.Difficulty, b.IsActive,
		).Scan(&b.ID, &b.CreatedAt)
		if err != nil {
			return err
		}
		return assignQuestions(ctx, tx, b, questionIDs)
	})
}

// Update rewrites a bundle header; when questionIDs is non-nil the
// membership is replaced wholesale preserving the given order.
func (r *BundleRepository) Update(ctx context.Context, b *model.Bundle, questionIDs []int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE quiz_bundles
			 SET title = $1, description = $2, category = $3, difficulty = $4, is_active = $5
			 WHERE id = $6`,
			b.Title, b.Description, b.Category, b.Difficulty, b.IsActive, b.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if questionIDs == nil {
			return nil
		}
		return assignQuestions(ctx, tx, b, questionIDs)
	})
}

// Delete removes a bundle; membership, history linkage, and progress cascade.
func (r *BundleRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quiz_bundles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func assignQuestions(ctx context.Context, tx pgx.Tx, b *model.Bundle, questionIDs []int) error {
	if _, err := tx.Exec(ctx, `DELETE FROM quiz_bundle_questions WHERE bundle_id = $1`, b.ID); err != nil {
		return err
	}

	inserted := 0
	seen := make(map[int]bool, len(questionIDs))
	for _, qid := range questionIDs {
		if seen[qid] {
			continue
		}
		seen[qid] = true
		tag, err := tx.Exec(ctx,
			`INSERT INTO quiz_bundle_questions (bundle_id, question_id, position)
			 SELECT $1, id, $3 FROM questions WHERE id = $2`,
			b.ID, qid, inserted)
		if err != nil {
			return err
		}
		inserted += int(tag.RowsAffected())
	}

	b.QuestionCount = inserted
	_, err := tx.Exec(ctx, `UPDATE quiz_bundles SET question_count = $1 WHERE id = $2`, inserted, b.ID)
	return err
}
