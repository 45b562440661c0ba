package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/model"
)

// AccountStore is the account persistence the services depend on.
// *repository.AccountRepository satisfies it.
type AccountStore interface {
	Create(ctx context.Context, a *model.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	GetByRollNumber(ctx context.Context, rollNumber string) (*model.Account, error)
	List(ctx context.Context, approved bool, f model.AccountFilter) ([]model.Account, error)
	Approve(ctx context.Context, ids []uuid.UUID) (int64, error)
	CountExisting(ctx context.Context, ids []uuid.UUID) (int64, error)
	Retire(ctx context.Context, id uuid.UUID) (*model.RetiredAccount, error)
	ListRetired(ctx context.Context, f model.AccountFilter) ([]model.RetiredAccount, error)
	Restore(ctx context.Context, retiredID uuid.UUID, passwordHash string) (*model.Account, error)
	DeleteRetired(ctx context.Context, retiredID uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, mutate func(a *model.Account) error) (*model.Account, error)
}

// QuizStore is the quiz persistence the services depend on.
// *repository.QuizRepository satisfies it.
type QuizStore interface {
	Create(ctx context.Context, quiz *model.Quiz, questions []model.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	List(ctx context.Context, authorID *uuid.UUID) ([]model.Quiz, error)
	ListAvailable(ctx context.Context, accountID uuid.UUID, department, batch string, now time.Time) ([]model.Quiz, error)
	ListQuestions(ctx context.Context, quizID uuid.UUID) ([]model.Question, error)
	GetQuestionImage(ctx context.Context, quizID, questionID uuid.UUID) (*model.QuestionImage, error)
	Delete(ctx context.Context, id uuid.UUID) ([]string, error)
}

// ResultStore is the result persistence the services depend on.
// *repository.ResultRepository satisfies it.
type ResultStore interface {
	Create(ctx context.Context, res *model.Result) error
	Exists(ctx context.Context, quizID, userID uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ResultRow, error)
	ListByQuizAuthor(ctx context.Context, authorID uuid.UUID) ([]model.ResultRow, error)
	ListAll(ctx context.Context) ([]model.ResultRow, error)
	ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.ResultRow, error)
}

// ViolationStore reads persisted proctoring events.
// *repository.ViolationRepository satisfies it.
type ViolationStore interface {
	ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.Violation, error)
}

// ObjectStore holds question images outside the database.
// *storage.S3Store satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}
