package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu         sync.Mutex
	rows       []model.Violation
	batchErr   error
	rejectKind model.ViolationKind
	batches    int
}

func (s *memorySink) InsertBatch(_ context.Context, batch []model.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	if s.batchErr != nil {
		return s.batchErr
	}
	s.rows = append(s.rows, batch...)
	return nil
}

func (s *memorySink) Insert(_ context.Context, v model.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.Kind == s.rejectKind {
		return errors.New("insert rejected")
	}
	s.rows = append(s.rows, v)
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func push(t *testing.T, rdb *redis.Client, v model.Violation) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.PersistViolationsQueue, data).Err())
}

func run(w *ViolationWorker) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestViolationWorker_PersistsQueuedEvents(t *testing.T) {
	_, rdb := setup(t)
	sink := &memorySink{}
	w := NewViolationWorker(sink, rdb, zerolog.Nop())

	quizID := uuid.New()
	for i := 0; i < 3; i++ {
		push(t, rdb, model.Violation{QuizID: quizID, UserID: uuid.New(), Kind: model.ViolationTabHidden, OccurredAt: time.Now()})
	}
	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.PersistViolationsQueue, "{not json").Err())

	stop := run(w)
	require.Eventually(t, func() bool { return sink.count() == 3 }, 5*time.Second, 20*time.Millisecond)
	stop()

	assert.Equal(t, quizID, sink.rows[0].QuizID)
}

func TestViolationWorker_FlushesOnShutdown(t *testing.T) {
	_, rdb := setup(t)
	sink := &memorySink{}
	w := NewViolationWorker(sink, rdb, zerolog.Nop())

	push(t, rdb, model.Violation{QuizID: uuid.New(), UserID: uuid.New(), Kind: model.ViolationFullscreenExit})

	stop := run(w)
	// Give the loop time to pop the event before the batch timeout elapses.
	time.Sleep(200 * time.Millisecond)
	stop()

	assert.Equal(t, 1, sink.count())
}

func TestViolationWorker_FallbackAndRequeue(t *testing.T) {
	mr, rdb := setup(t)
	sink := &memorySink{batchErr: errors.New("copy failed"), rejectKind: model.ViolationFullscreenExit}
	w := NewViolationWorker(sink, rdb, zerolog.Nop())
	w.requeueBackoff = 0

	w.flushSafe(context.Background(), []model.Violation{
		{QuizID: uuid.New(), UserID: uuid.New(), Kind: model.ViolationTabHidden},
		{QuizID: uuid.New(), UserID: uuid.New(), Kind: model.ViolationFullscreenExit},
	})

	assert.Equal(t, 1, sink.count(), "row-by-row recovery keeps good rows")

	queued, err := mr.List(config.WorkerKey.PersistViolationsQueue)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	var v model.Violation
	require.NoError(t, json.Unmarshal([]byte(queued[0]), &v))
	assert.Equal(t, model.ViolationFullscreenExit, v.Kind)
}
