//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			Env:          map[string]string{"POSTGRES_USER": "quizhub", "POSTGRES_PASSWORD": "quizhub", "POSTGRES_DB": "quizhub"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://quizhub:quizhub@%s:%s/quizhub?sslmode=disable", host, port.Port())

	src, err := iofs.New(migrations.FS, ".")
	require.NoError(t, err)
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate: %v", err)
	}
	_, _ = m.Close()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestRepositories(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)

	accounts := NewAccountRepository(pool)
	quizzes := NewQuizRepository(pool)
	results := NewResultRepository(pool)
	violations := NewViolationRepository(pool)

	staff := &model.Account{RollNumber: "S-1", Name: "Grace", PasswordHash: "x", Role: model.RoleStaff, Department: "CS", IsApproved: true}
	student := &model.Account{RollNumber: "CS-042", Name: "Alan", PasswordHash: "x", Role: model.RoleStudent, Department: "CS", Batch: "2026"}

	t.Run("accounts", func(t *testing.T) {
		require.NoError(t, accounts.Create(ctx, staff))
		require.NoError(t, accounts.Create(ctx, student))

		dup := *student
		assert.ErrorIs(t, accounts.Create(ctx, &dup), ErrDuplicate)

		pending, err := accounts.List(ctx, false, model.AccountFilter{})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, student.ID, pending[0].ID)

		n, err := accounts.Approve(ctx, []uuid.UUID{student.ID, staff.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		found, err := accounts.List(ctx, true, model.AccountFilter{Search: "alan"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "CS-042", found[0].RollNumber)

		_, err = accounts.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	var quiz *model.Quiz
	t.Run("quizzes", func(t *testing.T) {
		now := time.Now().UTC()
		quiz = &model.Quiz{
			Title:           "Compilers",
			StartTime:       now.Add(-time.Minute),
			EndTime:         now.Add(time.Hour),
			DurationMinutes: 30,
			CreatedBy:       staff.ID,
			Department:      "cs",
		}
		questions := []model.Question{
			{Position: 0, QuestionText: "LL or LR?", Options: []string{"LL", "LR"}, CorrectAnswer: 1, Points: 2},
			{Position: 1, QuestionText: "Diagram", Options: []string{"a", "b"}, CorrectAnswer: 0, Points: 1,
				Image: &model.QuestionImage{Data: []byte{0x89, 'P', 'N', 'G'}, ContentType: "image/png"}},
		}
		require.NoError(t, quizzes.Create(ctx, quiz, questions))
		assert.NotEqual(t, uuid.Nil, quiz.ID)

		got, err := quizzes.GetByID(ctx, quiz.ID)
		require.NoError(t, err)
		assert.Equal(t, "Grace", got.AuthorName)
		assert.Equal(t, 2, got.QuestionCount)

		listed, err := quizzes.ListQuestions(ctx, quiz.ID)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Nil(t, listed[0].Image)
		require.NotNil(t, listed[1].Image)
		assert.Equal(t, "image/png", listed[1].Image.ContentType)

		img, err := quizzes.GetQuestionImage(ctx, quiz.ID, listed[1].ID)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, img.Data)

		_, err = quizzes.GetQuestionImage(ctx, quiz.ID, listed[0].ID)
		assert.ErrorIs(t, err, ErrNotFound)

		avail, err := quizzes.ListAvailable(ctx, student.ID, "CS", "2026", now)
		require.NoError(t, err)
		require.Len(t, avail, 1)

		avail, err = quizzes.ListAvailable(ctx, student.ID, "EE", "2026", now)
		require.NoError(t, err)
		assert.Empty(t, avail)
	})

	t.Run("results", func(t *testing.T) {
		one := 1
		res := &model.Result{QuizID: quiz.ID, UserID: student.ID, Answers: []*int{&one, nil}, Score: 2, MaxScore: 3}
		require.NoError(t, results.Create(ctx, res))

		again := &model.Result{QuizID: quiz.ID, UserID: student.ID, Answers: []*int{nil, nil}}
		assert.ErrorIs(t, results.Create(ctx, again), ErrDuplicate)

		stored, err := results.GetByID(ctx, res.ID)
		require.NoError(t, err)
		require.Len(t, stored.Answers, 2)
		assert.Equal(t, 1, *stored.Answers[0])
		assert.Nil(t, stored.Answers[1])

		avail, err := quizzes.ListAvailable(ctx, student.ID, "CS", "2026", time.Now())
		require.NoError(t, err)
		assert.Empty(t, avail, "submitted quizzes leave the lobby")

		rows, err := results.ListByQuizAuthor(ctx, staff.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Compilers", rows[0].QuizTitle)
		assert.Equal(t, "CS-042", rows[0].RollNumber)
	})

	t.Run("violations", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Millisecond)
		require.NoError(t, violations.InsertBatch(ctx, []model.Violation{
			{QuizID: quiz.ID, UserID: student.ID, Kind: model.ViolationTabHidden, OccurredAt: at},
			{QuizID: quiz.ID, UserID: student.ID, Kind: model.ViolationFullscreenExit, OccurredAt: at.Add(time.Second)},
		}))
		require.NoError(t, violations.Insert(ctx, model.Violation{
			QuizID: quiz.ID, UserID: student.ID, Kind: model.ViolationTabHidden, OccurredAt: at.Add(2 * time.Second),
		}))

		got, err := violations.ListByQuiz(ctx, quiz.ID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, model.ViolationFullscreenExit, got[1].Kind)
	})

	t.Run("retire and restore", func(t *testing.T) {
		retired, err := accounts.Retire(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, student.ID, retired.AccountID)

		_, err = accounts.Retire(ctx, student.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		// Results outlive the account, with an empty profile.
		rows, err := results.ListByQuiz(ctx, quiz.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Empty(t, rows[0].RollNumber)

		restored, err := accounts.Restore(ctx, retired.ID, "new-hash")
		require.NoError(t, err)
		assert.Equal(t, student.ID, restored.ID)
		assert.True(t, restored.IsApproved)

		_, err = accounts.Restore(ctx, retired.ID, "again")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete quiz", func(t *testing.T) {
		keys, err := quizzes.Delete(ctx, quiz.ID)
		require.NoError(t, err)
		assert.Empty(t, keys)

		_, err = quizzes.GetByID(ctx, quiz.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = quizzes.Delete(ctx, quiz.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
