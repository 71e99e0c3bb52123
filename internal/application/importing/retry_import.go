package importing

import (
	"context"

	domain "github.com/librilane/book-import/internal/domain/importing"
)

type RetryImport interface {
	Execute(ctx context.Context, jobID string) error
}

type retryImport struct {
	jobs domain.JobStore
}

func NewRetryImport(jobs domain.JobStore) RetryImport {
	return &retryImport{jobs: jobs}
}

// Execute re-queues a failed job. The checkpoint is left untouched, so the
// next processor run picks up where the failed one stopped.
func (uc *retryImport) Execute(ctx context.Context, jobID string) error {
	job, err := uc.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if err := job.ResetForRetry(); err != nil {
		return err
	}
	return uc.jobs.Update(ctx, job)
}
