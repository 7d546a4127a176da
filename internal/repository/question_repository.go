package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/intervue-backend/internal/model"
)

const questionColumns = `q.id, q.title, q.description, q.industry, q.position, q.difficulty, q.sample_answer, q.created_at`

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// List retrieves questions matching the filter, with pagination.
func (r *QuestionRepository) List(ctx context.Context, f model.QuestionFilter, page, perPage int) ([]model.Question, int64, error) {
	offset := (page - 1) * perPage

	where, args := questionWhere(f)

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM questions q"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Favorited)
	favIdx := len(args)
	query := `SELECT ` + questionColumns + `,
			EXISTS(SELECT 1 FROM candidate_favorites cf WHERE cf.question_id = q.id AND cf.candidate_id = $` + fmt.Sprintf("%d", favIdx) + `)
		FROM questions q` + where + `
		ORDER BY q.industry, q.position, q.created_at
		LIMIT $` + fmt.Sprintf("%d", favIdx+1) + ` OFFSET $` + fmt.Sprintf("%d", favIdx+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.Industry, &q.Position, &q.Difficulty, &q.SampleAnswer, &q.CreatedAt, &q.IsFavorited); err != nil {
			return nil, 0, err
		}
		questions = append(questions, q)
	}
	return questions, total, rows.Err()
}

// GetByID retrieves one question. candidateID drives the is_favorited flag.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID, candidateID int) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+`,
			EXISTS(SELECT 1 FROM candidate_favorites cf WHERE cf.question_id = q.id AND cf.candidate_id = $2)
		 FROM questions q WHERE q.id = $1`, id, candidateID,
	).Scan(&q.ID, &q.Title, &q.Description, &q.Industry, &q.Position, &q.Difficulty, &q.SampleAnswer, &q.CreatedAt, &q.IsFavorited)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetByIDs retrieves questions in the order of ids. Unknown ids are skipped.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM UNNEST($1::uuid[]) WITH ORDINALITY AS u(id, ord)
		 JOIN questions q ON q.id = u.id
		 ORDER BY u.ord`, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// PickRandom draws up to n random questions matching the filter.
func (r *QuestionRepository) PickRandom(ctx context.Context, f model.QuestionFilter, n int) ([]model.Question, error) {
	where, args := questionWhere(f)
	args = append(args, n)

	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions q`+where+
			fmt.Sprintf(" ORDER BY random() LIMIT $%d", len(args)), args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// ListIndustries returns the distinct industries with their positions.
func (r *QuestionRepository) ListIndustries(ctx context.Context) (map[string][]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT industry, ARRAY_AGG(DISTINCT position ORDER BY position)
		 FROM questions GROUP BY industry ORDER BY industry`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var industry string
		var positions []string
		if err := rows.Scan(&industry, &positions); err != nil {
			return nil, err
		}
		out[industry] = positions
	}
	return out, rows.Err()
}

// AddFavorite bookmarks a question for a candidate. Repeated calls are no-ops.
func (r *QuestionRepository) AddFavorite(ctx context.Context, candidateID int, questionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO candidate_favorites (candidate_id, question_id)
		 VALUES ($1, $2)
		 ON CONFLICT (candidate_id, question_id) DO NOTHING`,
		candidateID, questionID,
	)
	return err
}

// RemoveFavorite removes a bookmark.
func (r *QuestionRepository) RemoveFavorite(ctx context.Context, candidateID int, questionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM candidate_favorites WHERE candidate_id = $1 AND question_id = $2`,
		candidateID, questionID,
	)
	return err
}

func questionWhere(f model.QuestionFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Industry != "" {
		args = append(args, f.Industry)
		conds = append(conds, fmt.Sprintf("q.industry = $%d", len(args)))
	}
	if f.Position != "" {
		args = append(args, f.Position)
		conds = append(conds, fmt.Sprintf("q.position = $%d", len(args)))
	}
	if len(f.Difficulties) > 0 {
		levels := make([]string, len(f.Difficulties))
		for i, d := range f.Difficulties {
			levels[i] = string(d)
		}
		args = append(args, levels)
		conds = append(conds, fmt.Sprintf("q.difficulty = ANY($%d::text[])", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(q.title ILIKE $%d OR q.description ILIKE $%d)", len(args), len(args)))
	}
	if f.FavoritesOf > 0 {
		args = append(args, f.FavoritesOf)
		conds = append(conds, fmt.Sprintf("EXISTS(SELECT 1 FROM candidate_favorites fo WHERE fo.question_id = q.id AND fo.candidate_id = $%d)", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.Industry, &q.Position, &q.Difficulty, &q.SampleAnswer, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
