package importing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	domain "github.com/librilane/book-import/internal/domain/importing"
)

type ProcessorConfig struct {
	// UpsertWorkers bounds concurrent catalog upserts within one chunk.
	UpsertWorkers int
}

// Processor drives an import job from pending through chunked processing to
// a terminal state. It holds no state of its own; the job record is the only
// authority, so any invocation can resume any job from its last checkpoint.
type Processor struct {
	jobs     domain.JobStore
	blobs    domain.BlobStore
	lookup   domain.MetadataLookup
	catalog  domain.CatalogUpserter
	notifier domain.CompletionNotifier
	cfg      ProcessorConfig
	now      func() time.Time
}

func NewProcessor(jobs domain.JobStore, blobs domain.BlobStore, lookup domain.MetadataLookup, catalog domain.CatalogUpserter, notifier domain.CompletionNotifier, cfg ProcessorConfig) *Processor {
	if cfg.UpsertWorkers <= 0 {
		cfg.UpsertWorkers = 8
	}
	return &Processor{
		jobs:     jobs,
		blobs:    blobs,
		lookup:   lookup,
		catalog:  catalog,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ProcessJob runs one job until it is exhausted, cancelled, or fails.
// Chunks are processed strictly in ascending order and each chunk is
// checkpointed through the versioned store update before the next one
// starts; a concurrent invocation of the same job loses that write and
// aborts without touching progress.
func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	switch job.Status {
	case domain.StatusCompleted:
		return nil
	case domain.StatusFailed:
		return domain.ErrJobNotRunnable
	}

	job.Start(p.now())
	if err := p.jobs.Update(ctx, job); err != nil {
		return err
	}

	candidates, err := p.loadCandidates(ctx, job)
	if err != nil {
		return p.failJob(ctx, job, err)
	}
	if len(candidates) != job.TotalISBNCount {
		return p.failJob(ctx, job, fmt.Errorf("source blob produced %d candidates, job expects %d", len(candidates), job.TotalISBNCount))
	}

	for !job.Exhausted() {
		// cancellation is honored only between chunks so no partial
		// counts ever reach the store
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(job.CurrentPosition+job.ChunkSize, job.TotalISBNCount)
		chunk := candidates[job.CurrentPosition:end]

		result, err := p.processChunk(ctx, job, chunk)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return p.failJob(ctx, job, err)
		}

		job.ApplyChunkResult(result)
		if err := p.jobs.Update(ctx, job); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				return err
			}
			return p.failJob(ctx, job, fmt.Errorf("persist checkpoint: %w", err))
		}
	}

	job.Complete(p.now())
	if !job.NotificationSent {
		// dispatch before persisting the flag: a crash in between may
		// duplicate the notification but can never lose it
		if err := p.notifier.NotifyCompletion(ctx, job.ID); err != nil {
			log.Printf("import job %s: completion notification failed: %v", job.ID, err)
		}
		job.MarkNotified()
	}
	return p.jobs.Update(ctx, job)
}

// loadCandidates re-derives the ISBN sequence from the stored blob. The
// extractor is deterministic, so a resumed job sees the exact chunk
// boundaries the original run checkpointed against.
func (p *Processor) loadCandidates(ctx context.Context, job *domain.ImportJob) ([]string, error) {
	if job.TotalISBNCount == 0 {
		return nil, nil
	}

	content, err := p.blobs.Download(ctx, job.SourceBlobKey)
	if err != nil {
		return nil, fmt.Errorf("download import source: %w", err)
	}
	defer content.Close()

	candidates, err := ExtractCandidates(content, job.TotalISBNCount)
	if err != nil {
		return nil, fmt.Errorf("extract isbn candidates: %w", err)
	}
	return candidates, nil
}

// processChunk resolves metadata for one chunk and upserts the matches.
// Lookups are sub-batched under the external service's cap. A single ISBN's
// failure never aborts the chunk; an error return is reserved for fatal
// lookup problems.
func (p *Processor) processChunk(ctx context.Context, job *domain.ImportJob, chunk []string) (domain.ChunkResult, error) {
	found := make(map[string]domain.BookMetadata, len(chunk))
	batchCap := p.lookup.BatchCap()
	if batchCap <= 0 {
		batchCap = len(chunk)
	}

	for start := 0; start < len(chunk); start += batchCap {
		batch := chunk[start:min(start+batchCap, len(chunk))]
		resolved, err := p.lookup.LookupBatch(ctx, batch)
		if err != nil {
			return domain.ChunkResult{}, fmt.Errorf("lookup batch: %w", err)
		}
		for isbn, meta := range resolved {
			found[isbn] = meta
		}
	}

	// disjoint indices per worker, so no locking; everything settles
	// before the chunk's checkpoint is written
	failed := make([]bool, len(chunk))
	sem := make(chan struct{}, p.cfg.UpsertWorkers)
	var wg sync.WaitGroup

	for i, isbn := range chunk {
		meta, ok := found[isbn]
		if !ok {
			failed[i] = true
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, meta domain.BookMetadata) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := p.catalog.Upsert(ctx, meta, job.LibraryID, job.RequestedBy); err != nil {
				failed[i] = true
			}
		}(i, meta)
	}
	wg.Wait()

	result := domain.ChunkResult{Size: len(chunk)}
	for i, isbn := range chunk {
		if failed[i] {
			result.Failed++
			result.FailedISBNs = append(result.FailedISBNs, isbn)
		} else {
			result.Succeeded++
		}
	}
	return result, nil
}

func (p *Processor) failJob(ctx context.Context, job *domain.ImportJob, cause error) error {
	job.Fail(truncateReason(cause.Error()), p.now())
	if err := p.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("%v; mark failed: %w", cause, err)
	}
	return cause
}

func truncateReason(reason string) string {
	const maxLen = 1000
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxLen {
		return reason
	}
	return reason[:maxLen]
}
