package importing

import (
	"context"
	"log"
	"sync"
	"time"

	domain "github.com/librilane/book-import/internal/domain/importing"
)

type WorkerConfig struct {
	Workers       int
	PollInterval  time.Duration
	LeaseDuration time.Duration
}

// Worker polls the job store for runnable imports and hands them to the
// processor. Claiming takes a lease; a job whose runner died is picked up
// again once its lease expires and resumes from its last checkpoint.
type Worker struct {
	jobs      domain.JobStore
	processor *Processor
	cfg       WorkerConfig

	once sync.Once
}

func NewWorker(jobs domain.JobStore, processor *Processor, cfg WorkerConfig) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 60 * time.Second
	}
	return &Worker{jobs: jobs, processor: processor, cfg: cfg}
}

func (w *Worker) Start(ctx context.Context) {
	w.once.Do(func() {
		for i := 0; i < w.cfg.Workers; i++ {
			go w.workerLoop(ctx)
		}
	})
}

func (w *Worker) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.jobs.ClaimNext(ctx, w.cfg.LeaseDuration)
		if err != nil {
			log.Printf("claim next import job failed: %v", err)
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if job == nil {
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if err := w.processor.ProcessJob(ctx, job.ID); err != nil {
			log.Printf("process import job %s stopped: %v", job.ID, err)
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
