package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/pkg/jobs"
	"github.com/noah-isme/eknojore-quran-api/pkg/storage"
)

// JobTypeBlobRemove removes objects that are no longer referenced.
const JobTypeBlobRemove = "blob.remove"

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type blobRemover interface {
	Remove(ctx context.Context, bucket string, objectPaths ...string) error
	PublicBase() string
}

// BlobCleanupService deletes replaced uploads in the background.
type BlobCleanupService struct {
	queue   jobEnqueuer
	store   blobRemover
	metrics *MetricsService
	logger  *zap.Logger
}

// NewBlobCleanupService constructs the service; queue may be nil to disable cleanup.
func NewBlobCleanupService(queue jobEnqueuer, store blobRemover, metrics *MetricsService, logger *zap.Logger) *BlobCleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlobCleanupService{queue: queue, store: store, metrics: metrics, logger: logger}
}

// Register installs the job handler on q.
func (s *BlobCleanupService) Register(q *jobs.Queue) {
	q.Handle(JobTypeBlobRemove, s.handle)
}

// ScheduleURLs enqueues removal of the objects behind public URLs produced by the
// store. Foreign URLs are skipped. Enqueue failures are logged only.
func (s *BlobCleanupService) ScheduleURLs(urls ...string) {
	if s == nil || s.queue == nil || s.store == nil {
		return
	}
	for _, raw := range urls {
		if raw == "" {
			continue
		}
		obj, ok := storage.ObjectFromURL(s.store.PublicBase(), raw)
		if !ok {
			continue
		}
		s.Schedule(obj)
	}
}

// Schedule enqueues removal of obj.
func (s *BlobCleanupService) Schedule(obj storage.Object) {
	if s == nil || s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: JobTypeBlobRemove, Payload: obj}); err != nil {
		s.logger.Warn("failed to enqueue blob cleanup",
			zap.String("bucket", obj.Bucket),
			zap.String("path", obj.Path),
			zap.Error(err))
	}
}

func (s *BlobCleanupService) handle(ctx context.Context, job jobs.Job) error {
	obj, ok := job.Payload.(storage.Object)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	err := s.store.Remove(ctx, obj.Bucket, obj.Path)
	s.metrics.RecordBlobJob(err)
	if err != nil {
		return err
	}
	s.logger.Info("blob removed", zap.String("bucket", obj.Bucket), zap.String("path", obj.Path), zap.Int("attempt", job.Attempt))
	return nil
}
