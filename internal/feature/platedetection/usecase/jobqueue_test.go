package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/usecase"
)

// mockIngestRunner は usecase.IngestRunner のモックです。
type mockIngestRunner struct {
	IngestFunc func(ctx context.Context, cameraID string, data []byte) (*entity.IngestResult, error)
}

func (m *mockIngestRunner) Ingest(ctx context.Context, cameraID string, data []byte) (*entity.IngestResult, error) {
	return m.IngestFunc(ctx, cameraID, data)
}

// memJobStore はテスト用の usecase.JobStore 実装です。
type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]entity.Job
}

func newMemJobStore() *memJobStore { return &memJobStore{jobs: map[string]entity.Job{}} }

func (s *memJobStore) Save(_ context.Context, job *entity.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *memJobStore) Find(_ context.Context, id string) (*entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, usecase.ErrJobNotFound
	}
	return &j, nil
}

func waitJob(t *testing.T, done <-chan entity.Job) entity.Job {
	t.Helper()
	select {
	case j := <-done:
		return j
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
		return entity.Job{}
	}
}

func TestJobQueue_Lifecycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ingest     func(ctx context.Context, cameraID string, data []byte) (*entity.IngestResult, error)
		wantStatus entity.JobStatus
		wantErr    string
	}{
		{
			name: "success: job done with result",
			ingest: func(_ context.Context, cameraID string, _ []byte) (*entity.IngestResult, error) {
				return &entity.IngestResult{CameraID: cameraID, Plates: []entity.PlateOutcome{{Text: "AB12"}}}, nil
			},
			wantStatus: entity.JobDone,
		},
		{
			name: "failure: ingest error marks job failed",
			ingest: func(context.Context, string, []byte) (*entity.IngestResult, error) {
				return nil, errors.New("image could not be decoded")
			},
			wantStatus: entity.JobFailed,
			wantErr:    "image could not be decoded",
		},
		{
			name: "failure: ingest panic marks job failed",
			ingest: func(context.Context, string, []byte) (*entity.IngestResult, error) {
				panic("boom")
			},
			wantStatus: entity.JobFailed,
			wantErr:    "ingest panicked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemJobStore()
			q := usecase.NewJobQueue(&mockIngestRunner{IngestFunc: tt.ingest}, store, 1, 4)
			usecase.SetJobQueueIDGenerator(q, func() string { return "job-1" })
			t.Cleanup(func() { _ = q.Shutdown(context.Background()) })

			done := make(chan entity.Job, 1)
			job, err := q.Enqueue(context.Background(), "CAM2", []byte("img"), func(j entity.Job) { done <- j })
			require.NoError(t, err)
			assert.Equal(t, "job-1", job.ID)
			assert.Equal(t, entity.JobQueued, job.Status)

			finished := waitJob(t, done)
			assert.Equal(t, tt.wantStatus, finished.Status)
			assert.Equal(t, tt.wantErr, finished.Error)
			assert.Equal(t, "CAM2", finished.CameraID)

			stored, err := q.Get(context.Background(), "job-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			if tt.wantStatus == entity.JobDone {
				require.NotNil(t, stored.Result)
				assert.Equal(t, "AB12", stored.Result.Plates[0].Text)
			}
		})
	}
}

func TestJobQueue_Enqueue_QueueFull(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 4)
	release := make(chan struct{})
	runner := &mockIngestRunner{IngestFunc: func(context.Context, string, []byte) (*entity.IngestResult, error) {
		started <- struct{}{}
		<-release
		return &entity.IngestResult{}, nil
	}}
	q := usecase.NewJobQueue(runner, newMemJobStore(), 1, 1)

	_, err := q.Enqueue(context.Background(), "CAM1", []byte("a"), nil)
	require.NoError(t, err)
	<-started // the only worker is now busy

	_, err = q.Enqueue(context.Background(), "CAM1", []byte("b"), nil)
	require.NoError(t, err)

	_, err = q.Enqueue(context.Background(), "CAM1", []byte("c"), nil)
	assert.ErrorIs(t, err, usecase.ErrQueueFull)

	close(release)
	require.NoError(t, q.Shutdown(context.Background()))
	assert.Len(t, started, 1) // second job drained during shutdown
}

func TestJobQueue_Shutdown(t *testing.T) {
	t.Parallel()

	runner := &mockIngestRunner{IngestFunc: func(context.Context, string, []byte) (*entity.IngestResult, error) {
		return &entity.IngestResult{}, nil
	}}
	q := usecase.NewJobQueue(runner, newMemJobStore(), 2, 2)

	require.NoError(t, q.Shutdown(context.Background()))
	require.NoError(t, q.Shutdown(context.Background()))

	_, err := q.Enqueue(context.Background(), "CAM1", []byte("a"), nil)
	assert.ErrorIs(t, err, usecase.ErrQueueClosed)
}

func TestJobQueue_Get_NotFound(t *testing.T) {
	t.Parallel()

	q := usecase.NewJobQueue(&mockIngestRunner{}, newMemJobStore(), 1, 1)
	t.Cleanup(func() { _ = q.Shutdown(context.Background()) })

	_, err := q.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, usecase.ErrJobNotFound)
}

func TestJobQueue_Enqueue_TooLarge(t *testing.T) {
	t.Parallel()

	q := usecase.NewJobQueue(&mockIngestRunner{}, newMemJobStore(), 1, 1)
	t.Cleanup(func() { _ = q.Shutdown(context.Background()) })

	_, err := q.Enqueue(context.Background(), "CAM1", make([]byte, usecase.MaxImageSize+1), nil)
	assert.ErrorIs(t, err, usecase.ErrImageTooLarge)
}
