package importing

import (
	"context"
	"io"
	"time"
)

// JobStore owns ImportJob persistence. Update is the only write path for an
// existing job and must reject a stale Version with ErrVersionConflict.
type JobStore interface {
	Create(ctx context.Context, job *ImportJob) error
	Get(ctx context.Context, jobID string) (*ImportJob, error)
	Update(ctx context.Context, job *ImportJob) error
	// ClaimNext leases the oldest runnable job: pending, or processing
	// with an expired lease (a runner that died mid-flight). Returns nil
	// when nothing is runnable.
	ClaimNext(ctx context.Context, leaseDuration time.Duration) (*ImportJob, error)
}

type BlobStore interface {
	Upload(ctx context.Context, key string, content io.Reader) (string, error)
	Download(ctx context.Context, locator string) (io.ReadCloser, error)
}

// MetadataLookup resolves a batch of ISBNs. Entries with no match are simply
// absent from the result; a transport failure is reported the same way
// (absent for all), not as an error. Errors are reserved for fatal problems
// such as context cancellation or an over-cap batch.
type MetadataLookup interface {
	LookupBatch(ctx context.Context, isbns []string) (map[string]BookMetadata, error)
	BatchCap() int
}

// CatalogUpserter creates or updates exactly one catalog record keyed by
// (library, ISBN). Implementations must be idempotent.
type CatalogUpserter interface {
	Upsert(ctx context.Context, meta BookMetadata, libraryID, actor string) error
}

type QuotaChecker interface {
	CanAccommodate(ctx context.Context, libraryID string, additional int) (bool, error)
}

// CompletionNotifier is fire-and-forget; the processor guarantees at most
// one dispatch per job but does not fail the job on a dispatch error.
type CompletionNotifier interface {
	NotifyCompletion(ctx context.Context, jobID string) error
}
