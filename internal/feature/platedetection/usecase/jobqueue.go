package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"parking_backend/internal/feature/platedetection/domain/entity"
)

const (
	// DefaultJobWorkers は同時に処理するジョブ数のデフォルトです。
	DefaultJobWorkers = 2
	// DefaultJobQueueSize は待機できるジョブ数のデフォルトです。
	DefaultJobQueueSize = 32
	// DefaultJobTimeout は1ジョブあたりの最大処理時間です。
	DefaultJobTimeout = 2 * time.Minute
)

// JobStore はジョブの状態を保存するインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type JobStore interface {
	Save(ctx context.Context, job *entity.Job) error
	// Find は見つからない場合 ErrJobNotFound を返します。
	Find(ctx context.Context, id string) (*entity.Job, error)
}

// IngestRunner は1枚の画像を取り込むインターフェースです。
type IngestRunner interface {
	Ingest(ctx context.Context, cameraID string, data []byte) (*entity.IngestResult, error)
}

// JobCallback はジョブが完了（成功・失敗）したときに呼ばれます。
type JobCallback func(job entity.Job)

type task struct {
	job    entity.Job
	data   []byte
	onDone JobCallback
}

// JobQueue は同時実行数の上限を持つ非同期取り込みキューです。
// 状態はJobStoreから参照でき、満杯のときはブロックせず ErrQueueFull を返します。
type JobQueue struct {
	runner  IngestRunner
	store   JobStore
	tasks   chan task
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// NewJobQueue はワーカーを起動したJobQueueを生成します。
func NewJobQueue(runner IngestRunner, store JobStore, workers, size int) *JobQueue {
	if workers <= 0 {
		workers = DefaultJobWorkers
	}
	if size <= 0 {
		size = DefaultJobQueueSize
	}
	q := &JobQueue{
		runner:  runner,
		store:   store,
		tasks:   make(chan task, size),
		timeout: DefaultJobTimeout,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	q.wg.Add(workers)
	for n := 0; n < workers; n++ {
		go q.worker()
	}
	return q
}

// Enqueue はジョブを登録します。onDoneはnilでも構いません。
func (q *JobQueue) Enqueue(ctx context.Context, cameraID string, data []byte, onDone JobCallback) (*entity.Job, error) {
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return nil, ErrQueueClosed
	}

	now := q.now().UTC()
	job := entity.Job{
		ID:        q.newID(),
		CameraID:  cameraID,
		Status:    entity.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := q.store.Save(ctx, &job); err != nil {
		return nil, err
	}

	select {
	case q.tasks <- task{job: job, data: data, onDone: onDone}:
		slog.Info("ジョブを登録", "job_id", job.ID, "camera_id", cameraID, "pending", len(q.tasks))
		return &job, nil
	default:
		job.Status = entity.JobFailed
		job.Error = ErrQueueFull.Error()
		q.save(&job)
		return nil, ErrQueueFull
	}
}

// Get はジョブの現在の状態を返します。
func (q *JobQueue) Get(ctx context.Context, id string) (*entity.Job, error) {
	return q.store.Find(ctx, id)
}

// Shutdown は新規登録を止め、処理中と待機中のジョブの完了を待ちます。
func (q *JobQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *JobQueue) worker() {
	defer q.wg.Done()
	for t := range q.tasks {
		q.process(t)
	}
}

func (q *JobQueue) process(t task) {
	job := t.job
	job.Status = entity.JobRunning
	job.UpdatedAt = q.now().UTC()
	q.save(&job)

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	result, err := q.run(ctx, job.CameraID, t.data)
	cancel()

	job.UpdatedAt = q.now().UTC()
	if err != nil {
		job.Status = entity.JobFailed
		job.Error = err.Error()
		slog.Error("ジョブの処理に失敗", "job_id", job.ID, "error", err)
	} else {
		job.Status = entity.JobDone
		job.Result = result
		slog.Info("ジョブ完了", "job_id", job.ID, "plates", len(result.Plates))
	}
	q.save(&job)

	if t.onDone != nil {
		t.onDone(job)
	}
}

// run はパニックを失敗として扱います。
func (q *JobQueue) run(ctx context.Context, cameraID string, data []byte) (res *entity.IngestResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, errors.New("ingest panicked")
			slog.Error("ジョブでパニック", "recover", r)
		}
	}()
	return q.runner.Ingest(ctx, cameraID, data)
}

func (q *JobQueue) save(job *entity.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.store.Save(ctx, job); err != nil {
		slog.Error("ジョブ状態の保存に失敗", "job_id", job.ID, "status", job.Status, "error", err)
	}
}
