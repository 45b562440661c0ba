package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
	"github.com/stemsi/quizhub-backend/internal/validator"
)

// QuizService handles quiz authoring and the student-facing quiz reads.
type QuizService struct {
	cfg     *config.Config
	quizzes QuizStore
	results ResultStore
	media   *MediaService
	rdb     *redis.Client
	log     zerolog.Logger
	now     func() time.Time
}

// NewQuizService creates a new QuizService.
func NewQuizService(
	cfg *config.Config,
	quizzes QuizStore,
	results ResultStore,
	media *MediaService,
	rdb *redis.Client,
	log zerolog.Logger,
) *QuizService {
	return &QuizService{
		cfg:     cfg,
		quizzes: quizzes,
		results: results,
		media:   media,
		rdb:     rdb,
		log:     log.With().Str("component", "quiz_service").Logger(),
		now:     time.Now,
	}
}

// QuestionImageURL is the authenticated route serving a question's image.
func QuestionImageURL(quizID, questionID uuid.UUID) string {
	return fmt.Sprintf("/api/v1/quizzes/%s/questions/%s/image", quizID, questionID)
}

// ParseQuestions decodes and validates the JSON question list of a create form.
func ParseQuestions(raw string) ([]model.QuestionInput, error) {
	var questions []model.QuestionInput
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, newValidationError("questions", "questions must be a JSON array")
	}
	if len(questions) == 0 {
		return nil, newValidationError("questions", "at least one question is required")
	}

	fields := make(map[string]string)
	for i := range questions {
		prefix := "questions[" + strconv.Itoa(i) + "]"
		if errs := validator.Struct(&questions[i]); errs != nil {
			for f, msg := range errs {
				fields[prefix+"."+f] = msg
			}
			continue
		}
		q := &questions[i]
		if *q.CorrectAnswer >= len(q.Options) {
			fields[prefix+".correct_answer"] = "correct_answer must index one of the options"
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return questions, nil
}

// Create validates the quiz, stores its images and persists quiz and questions atomically.
// Images uploaded to object storage are removed again if the database write fails.
func (s *QuizService) Create(ctx context.Context, author Caller, in *model.NewQuiz) (*model.QuizWithQuestions, error) {
	if !in.EndTime.After(in.StartTime) {
		return nil, newValidationError("end_time", "end_time must be after start_time")
	}

	assignment, err := assignImages(in.Questions, len(in.Images))
	if err != nil {
		return nil, err
	}

	contentTypes := make([]string, len(in.Images))
	for i, img := range in.Images {
		if assignment.used[i] {
			ct, err := s.media.Inspect(img)
			if err != nil {
				return nil, err
			}
			contentTypes[i] = ct
		}
	}

	stored := make(map[int]*model.QuestionImage)
	var uploaded []string
	for i, img := range in.Images {
		if !assignment.used[i] {
			continue
		}
		qi, err := s.media.Store(ctx, img, contentTypes[i])
		if err != nil {
			s.media.Remove(ctx, uploaded)
			return nil, err
		}
		if qi.Key != "" {
			uploaded = append(uploaded, qi.Key)
		}
		stored[i] = qi
	}

	quiz := &model.Quiz{
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		StartTime:       in.StartTime.UTC(),
		EndTime:         in.EndTime.UTC(),
		DurationMinutes: in.DurationMinutes,
		CreatedBy:       author.ID,
		Department:      strings.TrimSpace(in.Department),
		Batch:           strings.TrimSpace(in.Batch),
	}

	questions := make([]model.Question, len(in.Questions))
	for i, qi := range in.Questions {
		points := 1
		if qi.Points != nil && *qi.Points > 0 {
			points = *qi.Points
		}
		options := make([]string, len(qi.Options))
		for j, o := range qi.Options {
			options[j] = strings.TrimSpace(o)
		}
		questions[i] = model.Question{
			Position:      i,
			QuestionText:  strings.TrimSpace(qi.QuestionText),
			Options:       options,
			CorrectAnswer: *qi.CorrectAnswer,
			Points:        points,
		}
		if idx := assignment.byQuestion[i]; idx >= 0 {
			questions[i].Image = stored[idx]
		}
	}

	if err := s.quizzes.Create(ctx, quiz, questions); err != nil {
		s.media.Remove(ctx, uploaded)
		return nil, fmt.Errorf("create quiz: %w", err)
	}

	for i := range questions {
		if questions[i].Image != nil {
			questions[i].ImageURL = QuestionImageURL(quiz.ID, questions[i].ID)
		}
	}

	s.log.Info().
		Str("quiz_id", quiz.ID.String()).
		Str("author_id", author.ID.String()).
		Int("questions", len(questions)).
		Int("images", len(stored)).
		Msg("Quiz created")

	return &model.QuizWithQuestions{Quiz: *quiz, Questions: questions}, nil
}

type imageAssignment struct {
	byQuestion []int
	used       []bool
}

// assignImages maps questions to attachment indices. Explicit image_index values win;
// when no question names one, attachments map positionally.
func assignImages(questions []model.QuestionInput, images int) (*imageAssignment, error) {
	a := &imageAssignment{byQuestion: make([]int, len(questions)), used: make([]bool, images)}

	explicit := false
	for _, q := range questions {
		if q.ImageIndex != nil {
			explicit = true
			break
		}
	}

	fields := make(map[string]string)
	for i, q := range questions {
		a.byQuestion[i] = -1
		switch {
		case explicit && q.ImageIndex != nil:
			if *q.ImageIndex >= images {
				fields["questions["+strconv.Itoa(i)+"].image_index"] = "image_index does not match an uploaded image"
				continue
			}
			a.byQuestion[i] = *q.ImageIndex
			a.used[*q.ImageIndex] = true
		case !explicit && i < images:
			a.byQuestion[i] = i
			a.used[i] = true
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return a, nil
}

// List returns every quiz for admins and the caller's own quizzes for staff.
func (s *QuizService) List(ctx context.Context, caller Caller) ([]model.Quiz, error) {
	switch caller.Role {
	case model.RoleAdmin:
		return s.quizzes.List(ctx, nil)
	case model.RoleStaff:
		return s.quizzes.List(ctx, &caller.ID)
	}
	return nil, ErrForbidden
}

// ListAvailable returns the quizzes a student can take right now.
func (s *QuizService) ListAvailable(ctx context.Context, caller Caller) (*model.AvailableQuizzes, error) {
	now := s.now().UTC()
	quizzes, err := s.quizzes.ListAvailable(ctx, caller.ID, caller.Department, caller.Batch, now)
	if err != nil {
		return nil, fmt.Errorf("list available quizzes: %w", err)
	}
	return &model.AvailableQuizzes{Quizzes: quizzes, ServerTime: now}, nil
}

// GetFull returns a quiz with answer keys. Staff may only read their own quizzes.
func (s *QuizService) GetFull(ctx context.Context, id uuid.UUID, caller Caller) (*model.QuizWithQuestions, error) {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(quiz, caller); err != nil {
		return nil, err
	}

	questions, err := s.quizzes.ListQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	for i := range questions {
		if questions[i].Image != nil {
			questions[i].ImageURL = QuestionImageURL(id, questions[i].ID)
		}
	}
	return &model.QuizWithQuestions{Quiz: *quiz, Questions: questions}, nil
}

// GetForStudent returns the stripped payload if the caller may take the quiz now.
func (s *QuizService) GetForStudent(ctx context.Context, id uuid.UUID, caller Caller) (*model.StudentQuizView, error) {
	payload, err := s.payload(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if now.Before(payload.StartTime) {
		return nil, ErrQuizNotStarted
	}
	if now.After(payload.EndTime) {
		return nil, ErrQuizEnded
	}
	if !targets(payload.Department, caller.Department) || !targets(payload.Batch, caller.Batch) {
		return nil, ErrForbidden
	}

	done, err := s.results.Exists(ctx, id, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("check result: %w", err)
	}
	if done {
		return nil, ErrAlreadySubmitted
	}

	return &model.StudentQuizView{Quiz: payload, ServerTime: now}, nil
}

// payload reads the student payload from Redis, warming it from PostgreSQL on a miss.
func (s *QuizService) payload(ctx context.Context, id uuid.UUID) (*model.QuizPayload, error) {
	key := config.CacheKey.QuizPayloadKey(id)

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var p model.QuizPayload
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		s.log.Warn().Str("quiz_id", id.String()).Msg("Discarding unreadable cached payload")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("quiz_id", id.String()).Msg("Payload cache read failed")
	}

	return s.WarmPayload(ctx, id)
}

// WarmPayload builds the student payload from PostgreSQL and caches it in Redis.
func (s *QuizService) WarmPayload(ctx context.Context, id uuid.UUID) (*model.QuizPayload, error) {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.quizzes.ListQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	p := &model.QuizPayload{
		ID:              quiz.ID,
		Title:           quiz.Title,
		Description:     quiz.Description,
		StartTime:       quiz.StartTime.UTC(),
		EndTime:         quiz.EndTime.UTC(),
		DurationMinutes: quiz.DurationMinutes,
		Department:      quiz.Department,
		Batch:           quiz.Batch,
		Questions:       make([]model.QuestionForStudent, len(questions)),
	}
	for i, q := range questions {
		p.Questions[i] = model.QuestionForStudent{
			ID:           q.ID,
			Position:     q.Position,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			Points:       q.Points,
		}
		if q.Image != nil {
			p.Questions[i].ImageURL = QuestionImageURL(quiz.ID, q.ID)
		}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.QuizPayloadKey(id), data, s.cfg.QuizCacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", id.String()).Msg("Failed to cache payload")
	} else {
		s.log.Debug().Str("quiz_id", id.String()).Int("questions", len(questions)).Msg("Payload cached")
	}
	return p, nil
}

// PrewarmOpen caches the payload of every quiz whose window is open, so a class starting
// together does not stampede PostgreSQL on the first read.
func (s *QuizService) PrewarmOpen(ctx context.Context) (int, error) {
	quizzes, err := s.quizzes.List(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("list quizzes: %w", err)
	}

	now := s.now().UTC()
	warmed := 0
	for i := range quizzes {
		if !quizzes[i].WindowContains(now) {
			continue
		}
		if _, err := s.WarmPayload(ctx, quizzes[i].ID); err != nil {
			s.log.Warn().Err(err).Str("quiz_id", quizzes[i].ID.String()).Msg("Prewarm failed")
			continue
		}
		warmed++
	}
	return warmed, nil
}

// QuestionImage returns an image's bytes and content type.
func (s *QuizService) QuestionImage(ctx context.Context, quizID, questionID uuid.UUID) ([]byte, string, error) {
	img, err := s.quizzes.GetQuestionImage(ctx, quizID, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("get image: %w", err)
	}
	data, err := s.media.Load(ctx, img)
	if err != nil {
		return nil, "", err
	}
	return data, img.ContentType, nil
}

// Delete removes a quiz. Admins may delete any quiz, staff only their own.
func (s *QuizService) Delete(ctx context.Context, id uuid.UUID, caller Caller) error {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(quiz, caller); err != nil {
		return err
	}

	keys, err := s.quizzes.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete quiz: %w", err)
	}

	if err := s.rdb.Del(ctx, config.CacheKey.QuizPayloadKey(id)).Err(); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", id.String()).Msg("Failed to drop cached payload")
	}
	s.media.Remove(ctx, keys)

	s.log.Info().
		Str("quiz_id", id.String()).
		Str("by", caller.ID.String()).
		Msg("Quiz deleted")
	return nil
}

// Authorize loads a quiz and checks the caller may manage it.
func (s *QuizService) Authorize(ctx context.Context, id uuid.UUID, caller Caller) (*model.Quiz, error) {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(quiz, caller); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) getQuiz(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	quiz, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

func authorize(quiz *model.Quiz, caller Caller) error {
	switch {
	case caller.Role == model.RoleAdmin:
		return nil
	case caller.Role == model.RoleStaff && quiz.CreatedBy == caller.ID:
		return nil
	case caller.Role == model.RoleStaff:
		return ErrNotQuizAuthor
	}
	return ErrForbidden
}

// targets reports whether a quiz restricted to want admits have. Empty want admits everyone.
func targets(want, have string) bool {
	return want == "" || strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(have))
}
