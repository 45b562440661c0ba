package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizhub-backend/internal/model"
)

// ViolationRepository persists proctoring events.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// InsertBatch bulk-loads events with COPY.
func (r *ViolationRepository) InsertBatch(ctx context.Context, batch []model.Violation) error {
	rows := make([][]any, 0, len(batch))
	for _, v := range batch {
		rows = append(rows, []any{v.QuizID, v.UserID, string(v.Kind), v.OccurredAt})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"quiz_violations"},
		[]string{"quiz_id", "user_id", "kind", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert writes a single event.
func (r *ViolationRepository) Insert(ctx context.Context, v model.Violation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO quiz_violations (quiz_id, user_id, kind, occurred_at) VALUES ($1, $2, $3, $4)`,
		v.QuizID, v.UserID, string(v.Kind), v.OccurredAt)
	return err
}

// ListByQuiz returns a quiz's recorded events in occurrence order.
func (r *ViolationRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.Violation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, user_id, kind, occurred_at, recorded_at
		 FROM quiz_violations
		 WHERE quiz_id = $1
		 ORDER BY occurred_at, id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Violation{}
	for rows.Next() {
		var v model.Violation
		if err := rows.Scan(&v.ID, &v.QuizID, &v.UserID, &v.Kind, &v.OccurredAt, &v.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
