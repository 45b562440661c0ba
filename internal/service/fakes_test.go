package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// ─── Shared fixtures ────────────────────────────────────────────────

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:              "test-secret",
		JWTExpiry:              time.Hour,
		BcryptCost:             bcrypt.MinCost,
		MaxUploadBytes:         5 * 1024 * 1024,
		AllowAdminRegistration: true,
		DefaultAdminRollNumber: "admin",
		SubmitGrace:            15 * time.Second,
		QuizCacheTTL:           30 * time.Minute,
		ViolationCounter:       time.Hour,
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr[T any](v T) *T { return &v }

// ─── Accounts ───────────────────────────────────────────────────────

type fakeAccounts struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*model.Account
	order   []uuid.UUID
	retired map[uuid.UUID]*model.RetiredAccount
	retErr  map[uuid.UUID]error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		byID:    map[uuid.UUID]*model.Account{},
		retired: map[uuid.UUID]*model.RetiredAccount{},
		retErr:  map[uuid.UUID]error{},
	}
}

func (f *fakeAccounts) rollTaken(roll string, except uuid.UUID) bool {
	for id, a := range f.byID {
		if a.RollNumber == roll && id != except {
			return true
		}
	}
	return false
}

func (f *fakeAccounts) Create(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rollTaken(a.RollNumber, uuid.Nil) {
		return repository.ErrDuplicate
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	f.byID[a.ID] = &cp
	f.order = append(f.order, a.ID)
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetByRollNumber(_ context.Context, roll string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.RollNumber == roll {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func matches(fl model.AccountFilter, role model.Role, name, roll, dept, section, batch string) bool {
	contains := func(have, want string) bool {
		return want == "" || strings.Contains(strings.ToLower(have), strings.ToLower(want))
	}
	if fl.Role != "" && fl.Role != role {
		return false
	}
	if fl.Search != "" && !contains(name, fl.Search) && !contains(roll, fl.Search) {
		return false
	}
	return contains(dept, fl.Department) && contains(section, fl.Section) && contains(batch, fl.Batch)
}

func (f *fakeAccounts) List(_ context.Context, approved bool, fl model.AccountFilter) ([]model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Account{}
	for _, id := range f.order {
		a, ok := f.byID[id]
		if !ok || a.IsApproved != approved {
			continue
		}
		if matches(fl, a.Role, a.Name, a.RollNumber, a.Department, a.Section, a.Batch) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAccounts) Approve(_ context.Context, ids []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if a, ok := f.byID[id]; ok && !a.IsApproved {
			a.IsApproved = true
			n++
		}
	}
	return n, nil
}

func (f *fakeAccounts) CountExisting(_ context.Context, ids []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := f.byID[id]; ok {
			n++
		}
	}
	return n, nil
}

func (f *fakeAccounts) Retire(_ context.Context, id uuid.UUID) (*model.RetiredAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.retErr[id]; err != nil {
		return nil, err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ra := &model.RetiredAccount{
		ID: uuid.New(), AccountID: a.ID, RollNumber: a.RollNumber, Name: a.Name, Role: a.Role,
		Department: a.Department, Section: a.Section, Batch: a.Batch,
		CreatedAt: a.CreatedAt, RetiredAt: time.Now(),
	}
	f.retired[ra.ID] = ra
	delete(f.byID, id)
	return ra, nil
}

func (f *fakeAccounts) ListRetired(_ context.Context, fl model.AccountFilter) ([]model.RetiredAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.RetiredAccount{}
	for _, ra := range f.retired {
		if matches(fl, ra.Role, ra.Name, ra.RollNumber, ra.Department, ra.Section, ra.Batch) {
			out = append(out, *ra)
		}
	}
	return out, nil
}

func (f *fakeAccounts) Restore(_ context.Context, retiredID uuid.UUID, hash string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ra, ok := f.retired[retiredID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if _, exists := f.byID[ra.AccountID]; exists || f.rollTaken(ra.RollNumber, uuid.Nil) {
		return nil, repository.ErrDuplicate
	}
	a := &model.Account{
		ID: ra.AccountID, RollNumber: ra.RollNumber, Name: ra.Name, PasswordHash: hash, Role: ra.Role,
		Department: ra.Department, Section: ra.Section, Batch: ra.Batch, IsApproved: true,
		CreatedAt: ra.CreatedAt, UpdatedAt: time.Now(),
	}
	f.byID[a.ID] = a
	f.order = append(f.order, a.ID)
	delete(f.retired, retiredID)
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) DeleteRetired(_ context.Context, retiredID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.retired[retiredID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.retired, retiredID)
	return nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, id uuid.UUID, mutate func(a *model.Account) error) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := *cur
	if err := mutate(&next); err != nil {
		return nil, err
	}
	if next.RollNumber != cur.RollNumber && f.rollTaken(next.RollNumber, id) {
		return nil, repository.ErrDuplicate
	}
	f.byID[id] = &next
	cp := next
	return &cp, nil
}

// ─── Quizzes ────────────────────────────────────────────────────────

type fakeQuizzes struct {
	mu        sync.Mutex
	quizzes   map[uuid.UUID]*model.Quiz
	questions map[uuid.UUID][]model.Question
	createErr error
	listCalls int
}

func newFakeQuizzes() *fakeQuizzes {
	return &fakeQuizzes{
		quizzes:   map[uuid.UUID]*model.Quiz{},
		questions: map[uuid.UUID][]model.Question{},
	}
}

func (f *fakeQuizzes) Create(_ context.Context, quiz *model.Quiz, questions []model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	quiz.ID = uuid.New()
	quiz.CreatedAt = time.Now()
	quiz.QuestionCount = len(questions)
	for i := range questions {
		questions[i].ID = uuid.New()
		questions[i].QuizID = quiz.ID
	}
	cp := *quiz
	f.quizzes[quiz.ID] = &cp
	f.questions[quiz.ID] = append([]model.Question(nil), questions...)
	return nil
}

// add stores a quiz with the given questions directly.
func (f *fakeQuizzes) add(q model.Quiz, questions ...model.Question) *model.Quiz {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	_ = f.Create(context.Background(), &q, questions)
	return &q
}

func (f *fakeQuizzes) GetByID(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quizzes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuizzes) List(_ context.Context, authorID *uuid.UUID) ([]model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Quiz{}
	for _, q := range f.quizzes {
		if authorID == nil || q.CreatedBy == *authorID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeQuizzes) ListAvailable(_ context.Context, _ uuid.UUID, department, batch string, now time.Time) ([]model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Quiz{}
	for _, q := range f.quizzes {
		if q.WindowContains(now) && targets(q.Department, department) && targets(q.Batch, batch) {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeQuizzes) ListQuestions(_ context.Context, quizID uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]model.Question, 0, len(f.questions[quizID]))
	for _, q := range f.questions[quizID] {
		if q.Image != nil {
			q.Image = &model.QuestionImage{ContentType: q.Image.ContentType, Key: q.Image.Key}
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeQuizzes) GetQuestionImage(_ context.Context, quizID, questionID uuid.UUID) (*model.QuestionImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.questions[quizID] {
		if q.ID == questionID && q.Image != nil {
			cp := *q.Image
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeQuizzes) Delete(_ context.Context, id uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quizzes[id]; !ok {
		return nil, repository.ErrNotFound
	}
	var keys []string
	for _, q := range f.questions[id] {
		if q.Image != nil && q.Image.Key != "" {
			keys = append(keys, q.Image.Key)
		}
	}
	delete(f.quizzes, id)
	delete(f.questions, id)
	return keys, nil
}

// ─── Results ────────────────────────────────────────────────────────

type fakeResults struct {
	mu      sync.Mutex
	results map[uuid.UUID]*model.Result
	quizzes *fakeQuizzes
}

func newFakeResults(quizzes *fakeQuizzes) *fakeResults {
	return &fakeResults{results: map[uuid.UUID]*model.Result{}, quizzes: quizzes}
}

func (f *fakeResults) Create(_ context.Context, res *model.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.results {
		if r.QuizID == res.QuizID && r.UserID == res.UserID {
			return repository.ErrDuplicate
		}
	}
	res.ID = uuid.New()
	res.SubmittedAt = time.Now()
	cp := *res
	f.results[res.ID] = &cp
	return nil
}

func (f *fakeResults) Exists(_ context.Context, quizID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.results {
		if r.QuizID == quizID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeResults) GetByID(_ context.Context, id uuid.UUID) (*model.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeResults) rows(keep func(r *model.Result, q *model.Quiz) bool) []model.ResultRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ResultRow{}
	for _, r := range f.results {
		q := f.quizzes.quizzes[r.QuizID]
		if !keep(r, q) {
			continue
		}
		title := model.UnknownQuizTitle
		if q != nil {
			title = q.Title
		}
		out = append(out, model.ResultRow{
			ID: r.ID, QuizID: r.QuizID, QuizTitle: title, UserID: r.UserID,
			Score: r.Score, MaxScore: r.MaxScore, ViolationCount: r.ViolationCount, SubmittedAt: r.SubmittedAt,
		})
	}
	return out
}

func (f *fakeResults) ListByUser(_ context.Context, userID uuid.UUID) ([]model.ResultRow, error) {
	return f.rows(func(r *model.Result, _ *model.Quiz) bool { return r.UserID == userID }), nil
}

func (f *fakeResults) ListByQuizAuthor(_ context.Context, authorID uuid.UUID) ([]model.ResultRow, error) {
	return f.rows(func(_ *model.Result, q *model.Quiz) bool { return q != nil && q.CreatedBy == authorID }), nil
}

func (f *fakeResults) ListAll(_ context.Context) ([]model.ResultRow, error) {
	return f.rows(func(*model.Result, *model.Quiz) bool { return true }), nil
}

func (f *fakeResults) ListByQuiz(_ context.Context, quizID uuid.UUID) ([]model.ResultRow, error) {
	return f.rows(func(r *model.Result, _ *model.Quiz) bool { return r.QuizID == quizID }), nil
}

// ─── Violations & objects ───────────────────────────────────────────

type fakeViolations struct {
	byQuiz map[uuid.UUID][]model.Violation
}

func (f *fakeViolations) ListByQuiz(_ context.Context, quizID uuid.UUID) ([]model.Violation, error) {
	return append([]model.Violation{}, f.byQuiz[quizID]...), nil
}

type fixedCounter int64

func (c fixedCounter) Count(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return int64(c), nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Put(_ context.Context, key, _ string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key], nil
}

func (f *fakeObjects) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.objects, k)
		f.deleted = append(f.deleted, k)
	}
	return nil
}

var nopLog = zerolog.Nop()
