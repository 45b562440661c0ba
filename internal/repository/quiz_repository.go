package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizhub-backend/internal/model"
)

const quizSelect = `
	SELECT q.id, q.title, q.description, q.start_time, q.end_time, q.duration_minutes,
	       q.created_by, COALESCE(a.name, ''), q.department, q.batch,
	       (SELECT COUNT(*) FROM questions qs WHERE qs.quiz_id = q.id),
	       q.created_at
	FROM quizzes q
	LEFT JOIN accounts a ON a.id = q.created_by`

// QuizRepository handles quiz and question data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

func scanQuiz(row pgx.Row) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.StartTime, &q.EndTime, &q.DurationMinutes,
		&q.CreatedBy, &q.AuthorName, &q.Department, &q.Batch, &q.QuestionCount, &q.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return q, nil
}

func collectQuizzes(rows pgx.Rows) ([]model.Quiz, error) {
	defer rows.Close()
	quizzes := []model.Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, *q)
	}
	return quizzes, rows.Err()
}

// Create inserts a quiz and its questions in one transaction.
// Question IDs and the quiz ID/created_at are populated on success.
func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz, questions []model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO quizzes (title, description, start_time, end_time, duration_minutes, created_by, department, batch)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id, created_at`,
			quiz.Title, quiz.Description, quiz.StartTime, quiz.EndTime, quiz.DurationMinutes,
			quiz.CreatedBy, quiz.Department, quiz.Batch,
		).Scan(&quiz.ID, &quiz.CreatedAt)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i := range questions {
			q := &questions[i]
			q.QuizID = quiz.ID
			var (
				data        []byte
				contentType string
				key         string
			)
			if q.Image != nil {
				data, contentType, key = q.Image.Data, q.Image.ContentType, q.Image.Key
			}
			batch.Queue(
				`INSERT INTO questions (quiz_id, position, question_text, options, correct_answer, points,
				                        image_data, image_content_type, image_key)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				 RETURNING id`,
				quiz.ID, q.Position, q.QuestionText, q.Options, q.CorrectAnswer, q.Points, data, contentType, key,
			).QueryRow(func(row pgx.Row) error {
				return row.Scan(&q.ID)
			})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		quiz.QuestionCount = len(questions)
		return nil
	})
}

// GetByID retrieves a quiz with author name and question count.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	return scanQuiz(r.pool.QueryRow(ctx, quizSelect+` WHERE q.id = $1`, id))
}

// List returns quizzes newest first. A nil authorID lists every quiz.
func (r *QuizRepository) List(ctx context.Context, authorID *uuid.UUID) ([]model.Quiz, error) {
	query := quizSelect
	var args []any
	if authorID != nil {
		query += ` WHERE q.created_by = $1`
		args = append(args, *authorID)
	}
	query += ` ORDER BY q.created_at DESC, q.id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectQuizzes(rows)
}

// ListAvailable returns quizzes whose window contains now, that the account has not
// yet submitted, and whose targeting (when set) matches department and batch.
func (r *QuizRepository) ListAvailable(ctx context.Context, accountID uuid.UUID, department, batch string, now time.Time) ([]model.Quiz, error) {
	rows, err := r.pool.Query(ctx, quizSelect+`
		WHERE q.start_time <= $1 AND q.end_time >= $1
		  AND NOT EXISTS (SELECT 1 FROM results res WHERE res.quiz_id = q.id AND res.user_id = $2)
		  AND (q.department = '' OR LOWER(q.department) = LOWER($3))
		  AND (q.batch = '' OR LOWER(q.batch) = LOWER($4))
		ORDER BY q.end_time ASC, q.id`,
		now, accountID, strings.TrimSpace(department), strings.TrimSpace(batch))
	if err != nil {
		return nil, err
	}
	return collectQuizzes(rows)
}

// ListQuestions returns a quiz's questions in order. Image bytes are not loaded;
// Image is set (with content type and key only) for questions that have one.
func (r *QuizRepository) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, position, question_text, options, correct_answer, points,
		        (image_data IS NOT NULL OR image_key <> ''), image_content_type, image_key
		 FROM questions
		 WHERE quiz_id = $1
		 ORDER BY position`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var (
			q           model.Question
			hasImage    bool
			contentType string
			key         string
		)
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Position, &q.QuestionText, &q.Options,
			&q.CorrectAnswer, &q.Points, &hasImage, &contentType, &key); err != nil {
			return nil, err
		}
		if hasImage {
			q.Image = &model.QuestionImage{ContentType: contentType, Key: key}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetQuestionImage loads a question's image. Data is empty when the image lives in object storage.
func (r *QuizRepository) GetQuestionImage(ctx context.Context, quizID, questionID uuid.UUID) (*model.QuestionImage, error) {
	img := &model.QuestionImage{}
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(image_data, ''::bytea), image_content_type, image_key
		 FROM questions
		 WHERE id = $1 AND quiz_id = $2 AND (image_data IS NOT NULL OR image_key <> '')`,
		questionID, quizID,
	).Scan(&img.Data, &img.ContentType, &img.Key)
	if err != nil {
		return nil, translate(err)
	}
	return img, nil
}

// Delete removes a quiz (questions cascade) and returns the object-storage keys of its images.
func (r *QuizRepository) Delete(ctx context.Context, id uuid.UUID) ([]string, error) {
	var keys []string
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT image_key FROM questions WHERE quiz_id = $1 AND image_key <> ''`, id)
		if err != nil {
			return err
		}
		keys, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
