package importing_test

import (
	"context"
	"testing"
	"time"

	app "github.com/librilane/book-import/internal/application/importing"
	domain "github.com/librilane/book-import/internal/domain/importing"
)

func TestWorkerClaimsAndProcessesPendingJob(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	jobID := f.seedJob(t, []string{"9780000000001", "9780000000002"}, 50)

	worker := app.NewWorker(f.store, f.processor(), app.WorkerConfig{
		Workers:      1,
		PollInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	deadline := time.After(2 * time.Second)
	for {
		job := f.store.stored(jobID)
		if job.Status == domain.StatusCompleted {
			if job.SuccessCount != 2 {
				t.Fatalf("unexpected success count: %d", job.SuccessCount)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job never completed, status=%s", job.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWorkerStartIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	worker := app.NewWorker(f.store, f.processor(), app.WorkerConfig{Workers: 1, PollInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	worker.Start(ctx)
}
