package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/proctor"
)

// ProctorService counts proctoring violations in Redis and queues them for persistence.
type ProctorService struct {
	cfg        *config.Config
	quizzes    QuizStore
	violations ViolationStore
	rdb        *redis.Client
	log        zerolog.Logger
	now        func() time.Time
}

// NewProctorService creates a new ProctorService.
func NewProctorService(
	cfg *config.Config,
	quizzes QuizStore,
	violations ViolationStore,
	rdb *redis.Client,
	log zerolog.Logger,
) *ProctorService {
	return &ProctorService{
		cfg:        cfg,
		quizzes:    quizzes,
		violations: violations,
		rdb:        rdb,
		log:        log.With().Str("component", "proctor_service").Logger(),
		now:        time.Now,
	}
}

// Report counts a violation for the caller's attempt and returns the action the client must take.
func (s *ProctorService) Report(ctx context.Context, quizID uuid.UUID, caller Caller, kind model.ViolationKind) (*model.ViolationDecision, error) {
	if caller.Role != model.RoleStudent {
		return nil, ErrForbidden
	}

	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return nil, notFoundOr(err, "get quiz")
	}

	now := s.now()
	if now.Before(quiz.StartTime) {
		return nil, ErrQuizNotStarted
	}
	if now.After(quiz.EndTime.Add(s.cfg.SubmitGrace)) {
		return nil, ErrQuizEnded
	}

	event, err := json.Marshal(model.Violation{
		QuizID:     quizID,
		UserID:     caller.ID,
		Kind:       kind,
		OccurredAt: now.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal violation: %w", err)
	}

	counterKey := config.CacheKey.ViolationCountKey(quizID, caller.ID)
	var incr *redis.IntCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, counterKey)
		pipe.ExpireAt(ctx, counterKey, quiz.EndTime.Add(s.cfg.ViolationCounter))
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, event)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record violation: %w", err)
	}

	count := incr.Val()
	decision := &model.ViolationDecision{Count: count, Action: proctor.Decide(count)}

	s.log.Info().
		Str("quiz_id", quizID.String()).
		Str("account_id", caller.ID.String()).
		Str("kind", string(kind)).
		Int64("count", count).
		Str("action", string(decision.Action)).
		Msg("Violation reported")

	return decision, nil
}

// Count returns the live violation count of an attempt; zero when none were reported.
func (s *ProctorService) Count(ctx context.Context, quizID, userID uuid.UUID) (int64, error) {
	n, err := s.rdb.Get(ctx, config.CacheKey.ViolationCountKey(quizID, userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// List returns a quiz's persisted violations for its author or an admin.
func (s *ProctorService) List(ctx context.Context, quizID uuid.UUID, caller Caller) ([]model.Violation, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return nil, notFoundOr(err, "get quiz")
	}
	if err := authorize(quiz, caller); err != nil {
		return nil, err
	}
	return s.violations.ListByQuiz(ctx, quizID)
}
