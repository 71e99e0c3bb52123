package importing_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	domain "github.com/librilane/book-import/internal/domain/importing"
)

// memJobStore is an in-memory JobStore with the same versioned-update
// semantics the real repository enforces.
type memJobStore struct {
	mu        sync.Mutex
	jobs      map[string]domain.ImportJob
	updateErr error
	// afterUpdate runs after each successful update with a snapshot of
	// the persisted job; tests use it to simulate crashes mid-run.
	afterUpdate func(job domain.ImportJob)
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]domain.ImportJob)}
}

func (s *memJobStore) Create(ctx context.Context, job *domain.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.Version = 1
	s.jobs[job.ID] = cloneJob(*job)
	return nil
}

func (s *memJobStore) Get(ctx context.Context, jobID string) (*domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copied := cloneJob(stored)
	return &copied, nil
}

func (s *memJobStore) Update(ctx context.Context, job *domain.ImportJob) error {
	s.mu.Lock()
	stored, ok := s.jobs[job.ID]
	if !ok {
		s.mu.Unlock()
		return domain.ErrJobNotFound
	}
	if s.updateErr != nil {
		err := s.updateErr
		s.mu.Unlock()
		return err
	}
	if stored.Version != job.Version {
		s.mu.Unlock()
		return domain.ErrVersionConflict
	}
	job.Version++
	s.jobs[job.ID] = cloneJob(*job)
	snapshot := cloneJob(*job)
	hook := s.afterUpdate
	s.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
	return nil
}

func (s *memJobStore) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.Status == domain.StatusPending {
			copied := cloneJob(job)
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memJobStore) stored(jobID string) domain.ImportJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneJob(s.jobs[jobID])
}

func cloneJob(job domain.ImportJob) domain.ImportJob {
	job.FailedISBNs = append([]string(nil), job.FailedISBNs...)
	return job
}

type fakeBlobStore struct {
	mu          sync.Mutex
	blobs       map[string][]byte
	uploadErr   error
	downloadErr error
	uploads     int
	downloads   int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (s *fakeBlobStore) Upload(ctx context.Context, key string, content io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	s.blobs[key] = data
	return key, nil
}

func (s *fakeBlobStore) Download(ctx context.Context, locator string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloads++
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	data, ok := s.blobs[locator]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", locator)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// fakeLookup resolves every ISBN it is asked about except those listed in
// absent, and records each batch it receives.
type fakeLookup struct {
	mu         sync.Mutex
	cap        int
	absent     map[string]bool
	err        error
	batchSizes []int
}

func newFakeLookup(batchCap int) *fakeLookup {
	return &fakeLookup{cap: batchCap, absent: make(map[string]bool)}
}

func (l *fakeLookup) BatchCap() int { return l.cap }

func (l *fakeLookup) LookupBatch(ctx context.Context, isbns []string) (map[string]domain.BookMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.batchSizes = append(l.batchSizes, len(isbns))
	if l.err != nil {
		return nil, l.err
	}

	found := make(map[string]domain.BookMetadata, len(isbns))
	for _, isbn := range isbns {
		if l.absent[isbn] {
			continue
		}
		found[isbn] = domain.BookMetadata{ISBN: isbn, Title: "Book " + isbn}
	}
	return found, nil
}

type fakeCatalog struct {
	mu      sync.Mutex
	upserts map[string]int
	failFor map[string]bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{upserts: make(map[string]int), failFor: make(map[string]bool)}
}

func (c *fakeCatalog) Upsert(ctx context.Context, meta domain.BookMetadata, libraryID, actor string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failFor[meta.ISBN] {
		return fmt.Errorf("upsert %s failed", meta.ISBN)
	}
	c.upserts[meta.ISBN]++
	return nil
}

func (c *fakeCatalog) upsertCount(isbn string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upserts[isbn]
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (n *fakeNotifier) NotifyCompletion(ctx context.Context, jobID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type fakeQuota struct {
	allow bool
	err   error
	calls int
}

func (q *fakeQuota) CanAccommodate(ctx context.Context, libraryID string, additional int) (bool, error) {
	q.calls++
	if q.err != nil {
		return false, q.err
	}
	return q.allow, nil
}

var jobStart = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func csvOf(isbns []string) string {
	return strings.Join(isbns, "\n") + "\n"
}
