package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizhub-backend/internal/model"
)

const resultRowSelect = `
	SELECT r.id, r.quiz_id, COALESCE(q.title, '` + model.UnknownQuizTitle + `'), r.user_id,
	       COALESCE(a.name, ''), COALESCE(a.roll_number, ''), COALESCE(a.department, ''),
	       COALESCE(a.section, ''), COALESCE(a.batch, ''),
	       r.score, r.max_score, r.violation_count, r.submitted_at
	FROM results r
	LEFT JOIN quizzes q ON q.id = r.quiz_id
	LEFT JOIN accounts a ON a.id = r.user_id`

// ResultRepository handles result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create inserts a result. The (quiz_id, user_id) constraint makes a second submission
// a no-op, reported as ErrDuplicate.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO results (quiz_id, user_id, answers, score, max_score, violation_count)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (quiz_id, user_id) DO NOTHING
		 RETURNING id, submitted_at`,
		res.QuizID, res.UserID, res.Answers, res.Score, res.MaxScore, res.ViolationCount,
	).Scan(&res.ID, &res.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicate
	}
	return translate(err)
}

// Exists reports whether the account already has a result for the quiz.
func (r *ResultRepository) Exists(ctx context.Context, quizID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM results WHERE quiz_id = $1 AND user_id = $2)`, quizID, userID,
	).Scan(&ok)
	return ok, err
}

// GetByID retrieves a single result including its answer vector.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, user_id, answers, score, max_score, violation_count, submitted_at
		 FROM results WHERE id = $1`, id,
	).Scan(&res.ID, &res.QuizID, &res.UserID, &res.Answers, &res.Score, &res.MaxScore,
		&res.ViolationCount, &res.SubmittedAt)
	if err != nil {
		return nil, translate(err)
	}
	return res, nil
}

// ListByUser returns an account's results, newest first.
func (r *ResultRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ResultRow, error) {
	return r.list(ctx, ` WHERE r.user_id = $1 ORDER BY r.submitted_at DESC`, userID)
}

// ListByQuizAuthor returns results for every quiz the author created.
func (r *ResultRepository) ListByQuizAuthor(ctx context.Context, authorID uuid.UUID) ([]model.ResultRow, error) {
	return r.list(ctx, ` WHERE q.created_by = $1 ORDER BY r.submitted_at DESC`, authorID)
}

// ListAll returns every result, newest first.
func (r *ResultRepository) ListAll(ctx context.Context) ([]model.ResultRow, error) {
	return r.list(ctx, ` ORDER BY r.submitted_at DESC`)
}

// ListByQuiz returns a quiz's results ordered by roll number for grading sheets.
func (r *ResultRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.ResultRow, error) {
	return r.list(ctx, ` WHERE r.quiz_id = $1 ORDER BY a.roll_number NULLS LAST, r.submitted_at`, quizID)
}

func (r *ResultRepository) list(ctx context.Context, tail string, args ...any) ([]model.ResultRow, error) {
	rows, err := r.pool.Query(ctx, resultRowSelect+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ResultRow{}
	for rows.Next() {
		var row model.ResultRow
		if err := rows.Scan(&row.ID, &row.QuizID, &row.QuizTitle, &row.UserID,
			&row.Name, &row.RollNumber, &row.Department, &row.Section, &row.Batch,
			&row.Score, &row.MaxScore, &row.ViolationCount, &row.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
