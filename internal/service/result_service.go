package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
	"github.com/stemsi/quizhub-backend/internal/scoring"
)

// ViolationCounter reports the server-side violation count of an attempt.
type ViolationCounter interface {
	Count(ctx context.Context, quizID, userID uuid.UUID) (int64, error)
}

// ResultService grades submissions and serves results by role.
type ResultService struct {
	cfg        *config.Config
	quizzes    QuizStore
	results    ResultStore
	violations ViolationCounter
	log        zerolog.Logger
	now        func() time.Time
}

// NewResultService creates a new ResultService.
func NewResultService(
	cfg *config.Config,
	quizzes QuizStore,
	results ResultStore,
	violations ViolationCounter,
	log zerolog.Logger,
) *ResultService {
	return &ResultService{
		cfg:        cfg,
		quizzes:    quizzes,
		results:    results,
		violations: violations,
		log:        log.With().Str("component", "result_service").Logger(),
		now:        time.Now,
	}
}

// Submit grades and stores a student's answers. The window is checked against server
// time with a grace period after the end; the store's (quiz, account) constraint keeps
// concurrent submissions to a single result.
func (s *ResultService) Submit(ctx context.Context, quizID uuid.UUID, caller Caller, req *model.SubmitResultRequest) (*model.Result, error) {
	if caller.Role != model.RoleStudent {
		return nil, ErrForbidden
	}

	quiz, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.Before(quiz.StartTime) {
		return nil, ErrQuizNotStarted
	}
	if now.After(quiz.EndTime.Add(s.cfg.SubmitGrace)) {
		return nil, ErrQuizEnded
	}
	if !targets(quiz.Department, caller.Department) || !targets(quiz.Batch, caller.Batch) {
		return nil, ErrForbidden
	}

	done, err := s.results.Exists(ctx, quizID, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("check result: %w", err)
	}
	if done {
		return nil, ErrAlreadySubmitted
	}

	questions, err := s.quizzes.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	keys := answerKeys(questions)
	answers := scoring.Normalize(req.Answers, len(keys))

	violations := req.Violations
	if recorded, err := s.violations.Count(ctx, quizID, caller.ID); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Failed to read violation counter")
	} else if int(recorded) > violations {
		violations = int(recorded)
	}

	res := &model.Result{
		QuizID:         quizID,
		UserID:         caller.ID,
		Answers:        answers,
		Score:          scoring.Score(keys, answers),
		MaxScore:       scoring.MaxScore(keys),
		ViolationCount: violations,
	}
	if err := s.results.Create(ctx, res); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("store result: %w", err)
	}

	s.log.Info().
		Str("quiz_id", quizID.String()).
		Str("account_id", caller.ID.String()).
		Int("score", res.Score).
		Int("max_score", res.MaxScore).
		Int("violations", res.ViolationCount).
		Msg("Result submitted")

	return res, nil
}

// List returns a student's own results, a staff member's quiz results, or everything for admins.
func (s *ResultService) List(ctx context.Context, caller Caller) ([]model.ResultRow, error) {
	switch caller.Role {
	case model.RoleStudent:
		return s.results.ListByUser(ctx, caller.ID)
	case model.RoleStaff:
		return s.results.ListByQuizAuthor(ctx, caller.ID)
	case model.RoleAdmin:
		return s.results.ListAll(ctx)
	}
	return nil, ErrForbidden
}

// Details returns a result with the answer key once the quiz window has closed.
// A result whose quiz was deleted is returned with a placeholder title and no questions.
func (s *ResultService) Details(ctx context.Context, resultID uuid.UUID, caller Caller) (*model.ResultDetails, error) {
	res, err := s.results.GetByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	if res.UserID != caller.ID {
		return nil, ErrNotResultOwner
	}

	quiz, err := s.quizzes.GetByID(ctx, res.QuizID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.ResultDetails{
			Result:    res,
			QuizTitle: model.UnknownQuizTitle,
			Questions: []model.ReviewQuestion{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if s.now().Before(quiz.EndTime) {
		return nil, ErrTooEarly
	}

	questions, err := s.quizzes.ListQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	review := make([]model.ReviewQuestion, len(questions))
	for i, q := range questions {
		if q.Image != nil {
			q.ImageURL = QuestionImageURL(quiz.ID, q.ID)
		}
		var answer *int
		if i < len(res.Answers) {
			answer = res.Answers[i]
		}
		review[i] = model.ReviewQuestion{
			Question:   q,
			YourAnswer: answer,
			IsCorrect:  scoring.IsCorrect(scoring.Key{CorrectAnswer: q.CorrectAnswer, Points: q.Points}, answer),
		}
	}

	return &model.ResultDetails{Result: res, QuizTitle: quiz.Title, Questions: review}, nil
}

// QuizResults lists a quiz's results for its author or an admin.
func (s *ResultService) QuizResults(ctx context.Context, quizID uuid.UUID, caller Caller) (*model.Quiz, []model.ResultRow, error) {
	quiz, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorize(quiz, caller); err != nil {
		return nil, nil, err
	}

	rows, err := s.results.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, nil, fmt.Errorf("list results: %w", err)
	}
	for i := range rows {
		if rows[i].Name == "" && rows[i].RollNumber == "" {
			rows[i].Name = model.UnknownAccountName
		}
	}
	return quiz, rows, nil
}

func (s *ResultService) getQuiz(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	quiz, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

func answerKeys(questions []model.Question) []scoring.Key {
	keys := make([]scoring.Key, len(questions))
	for i, q := range questions {
		keys[i] = scoring.Key{CorrectAnswer: q.CorrectAnswer, Points: q.Points}
	}
	return keys
}
