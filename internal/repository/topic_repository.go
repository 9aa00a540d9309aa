package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kmhistory/quizhub-backend/internal/model"
)

// ErrDuplicate is returned when a uniqueness constraint would be violated.
var ErrDuplicate = errors.New("duplicate")

// TopicRepository handles topic data access.
type TopicRepository struct {
	pool *pgxpool.Pool
}

// NewTopicRepository creates a new TopicRepository.
func NewTopicRepository(pool *pgxpool.Pool) *TopicRepository {
	return &TopicRepository{pool: pool}
}

// List returns all topics ordered by name.
func (r *TopicRepository) List(ctx context.Context) ([]model.Topic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at FROM quiz_topics ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := []model.Topic{}
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// Create inserts a topic. Names are unique case-insensitively.
func (r *TopicRepository) Create(ctx context.Context, t *model.Topic) error {
	taken, err := r.nameTaken(ctx, t.Name, 0)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicate
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO quiz_topics (name, description) VALUES ($1, $2) RETURNING id, created_at`,
		t.Name, t.Description,
	).Scan(&t.ID, &t.CreatedAt)
}

// Update renames a topic.
func (r *TopicRepository) Update(ctx context.Context, t *model.Topic) error {
	taken, err := r.nameTaken(ctx, t.Name, t.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicate
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE quiz_topics SET name = $1, description = $2 WHERE id = $3`,
		t.Name, t.Description, t.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a topic; question links cascade.
func (r *TopicRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quiz_topics WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountExisting reports how many of the given topic ids exist.
func (r *TopicRepository) CountExisting(ctx context.Context, ids []int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM quiz_topics WHERE id = ANY($1)`, ids).Scan(&n)
	return n, err
}

func (r *TopicRepository) nameTaken(ctx context.Context, name string, excludeID int) (bool, error) {
	var id int
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM quiz_topics WHERE lower(name) = lower($1) AND id <> $2`,
		name, excludeID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
