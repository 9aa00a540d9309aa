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

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `q.id, q.question_text, q.type, q.correct_answer, q.explanation,
	q.category, q.difficulty, q.image_url, q.created_at`

func scanQuestion(row pgx.Row) (model.Question, error) {
	var q model.Question
	err := row.Scan(&q.ID, &q.QuestionText, &q.Type, &q.CorrectAnswer, &q.Explanation,
		&q.Category, &q.Difficulty, &q.ImageURL, &q.CreatedAt)
	return q, err
}

// questionWhere builds the WHERE clause for a filter, appending to args.
func questionWhere(f model.QuestionFilter, args []interface{}) (string, []interface{}) {
	var conds []string

	if f.Search != "" {
		args = append(args, "%"+strings.TrimSpace(f.Search)+"%")
		conds = append(conds, fmt.Sprintf("q.question_text ILIKE $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		conds = append(conds, fmt.Sprintf("q.type = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("q.category = $%d", len(args)))
	}
	if f.Difficulty != "" {
		args = append(args, f.Difficulty)
		conds = append(conds, fmt.Sprintf("q.difficulty = $%d", len(args)))
	}
	if f.TopicID != 0 {
		args = append(args, f.TopicID)
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM question_topic_links l WHERE l.question_id = q.id AND l.topic_id = $%d)",
			len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Random picks one question at random among those matching the filter.
// Returns ErrNotFound when nothing matches.
func (r *QuestionRepository) Random(ctx context.Context, f model.QuestionFilter) (*model.Question, error) {
	where, args := questionWhere(f, nil)

	q, err := scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions q`+where+` ORDER BY random() LIMIT 1`, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := r.hydrate(ctx, []*model.Question{&q}); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetByID retrieves a question with its choices and topics.
func (r *QuestionRepository) GetByID(ctx context.Context, id int) (*model.Question, error) {
	q, err := scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions q WHERE q.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := r.hydrate(ctx, []*model.Question{&q}); err != nil {
		return nil, err
	}
	return &q, nil
}

// List retrieves questions matching the filter, newest first.
func (r *QuestionRepository) List(ctx context.Context, f model.QuestionFilter, limit, offset int) ([]model.Question, int, error) {
	where, args := questionWhere(f, nil)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM questions q`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions q`+where+
			fmt.Sprintf(` ORDER BY q.created_at DESC, q.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	refs := make([]*model.Question, len(questions))
	for i := range questions {
		refs[i] = &questions[i]
	}
	if err := r.hydrate(ctx, refs); err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

// Create inserts a question with its choices and topic links in one transaction.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question, topicIDs []int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO questions (question_text, type, correct_answer, explanation, category, difficulty, image_url)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, created_at`,
			q.QuestionText, q.Type, q.CorrectAnswer, q.Explanation, q.Category, q.Difficulty, q.ImageURL,
		).Scan(&q.ID, &q.CreatedAt)
		if err != nil {
			return err
		}

		if err := insertChoices(ctx, tx, q.ID, q.Choices); err != nil {
			return err
		}
		return replaceTopicLinks(ctx, tx, q.ID, topicIDs)
	})
}

// Update rewrites a question; choices and topic links are replaced wholesale.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question, topicIDs []int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE questions
			 SET question_text = $1, type = $2, correct_answer = $3, explanation = $4,
			     category = $5, difficulty = $6, image_url = $7
			 WHERE id = $8`,
			q.QuestionText, q.Type, q.CorrectAnswer, q.Explanation, q.Category, q.Difficulty, q.ImageURL, q.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM choices WHERE question_id = $1`, q.ID); err != nil {
			return err
		}
		if err := insertChoices(ctx, tx, q.ID, q.Choices); err != nil {
			return err
		}
		return replaceTopicLinks(ctx, tx, q.ID, topicIDs)
	})
}

// Delete removes a question; choices and links cascade.
func (r *QuestionRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CorrectChoice returns the correct choice of a MULTIPLE question.
func (r *QuestionRepository) CorrectChoice(ctx context.Context, questionID int) (*model.Choice, error) {
	var c model.Choice
	err := r.pool.QueryRow(ctx,
		`SELECT id, content, is_correct FROM choices WHERE question_id = $1 AND is_correct LIMIT 1`,
		questionID,
	).Scan(&c.ID, &c.Content, &c.IsCorrect)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CountExisting reports how many of the given question ids exist.
func (r *QuestionRepository) CountExisting(ctx context.Context, ids []int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM questions WHERE id = ANY($1)`, ids).Scan(&n)
	return n, err
}

func insertChoices(ctx context.Context, tx pgx.Tx, questionID int, choices []model.Choice) error {
	for i := range choices {
		err := tx.QueryRow(ctx,
			`INSERT INTO choices (question_id, content, is_correct) VALUES ($1, $2, $3) RETURNING id`,
			questionID, choices[i].Content, choices[i].IsCorrect,
		).Scan(&choices[i].ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func replaceTopicLinks(ctx context.Context, tx pgx.Tx, questionID int, topicIDs []int) error {
	if _, err := tx.Exec(ctx, `DELETE FROM question_topic_links WHERE question_id = $1`, questionID); err != nil {
		return err
	}
	for _, topicID := range topicIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO question_topic_links (question_id, topic_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			questionID, topicID); err != nil {
			return err
		}
	}
	return nil
}

// hydrate loads choices and topics for the given questions in two queries.
func (r *QuestionRepository) hydrate(ctx context.Context, questions []*model.Question) error {
	if len(questions) == 0 {
		return nil
	}

	ids := make([]int, len(questions))
	index := make(map[int]*model.Question, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		index[q.ID] = q
		q.Choices = []model.Choice{}
		q.Topics = []model.Topic{}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT question_id, id, content, is_correct FROM choices WHERE question_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var qid int
		var c model.Choice
		if err := rows.Scan(&qid, &c.ID, &c.Content, &c.IsCorrect); err != nil {
			rows.Close()
			return err
		}
		if q, ok := index[qid]; ok {
			q.Choices = append(q.Choices, c)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx,
		`SELECT l.question_id, t.id, t.name, t.description, t.created_at
		 FROM question_topic_links l
		 JOIN quiz_topics t ON t.id = l.topic_id
		 WHERE l.question_id = ANY($1)
		 ORDER BY t.name`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var qid int
		var t model.Topic
		if err := rows.Scan(&qid, &t.ID, &t.Name, &t.Description, &t.CreatedAt); err != nil {
			return err
		}
		if q, ok := index[qid]; ok {
			q.Topics = append(q.Topics, t)
		}
	}
	return rows.Err()
}
