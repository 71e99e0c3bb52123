package importing

import (
	"math"
	"time"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// MaxStoredFailedISBNs caps FailedISBNs for operator visibility; the full
// failure set is reflected in FailedCount only.
const MaxStoredFailedISBNs = 100

type ImportJob struct {
	ID             string
	LibraryID      string
	RequestedBy    string
	SourceFileName string
	SourceBlobKey  string

	TotalISBNCount  int
	ChunkSize       int
	TotalChunks     int
	ProcessedChunks int
	CurrentPosition int
	SuccessCount    int
	FailedCount     int
	FailedISBNs     []string

	Status              JobStatus
	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time
	ErrorMessage        string
	NotificationSent    bool

	// Version guards every persisted update; a write carrying a stale
	// version is rejected by the store with ErrVersionConflict.
	Version int64
}

func NewImportJob(id, libraryID, requestedBy, fileName, blobKey string, totalISBNs, chunkSize int) (ImportJob, error) {
	if chunkSize <= 0 {
		return ImportJob{}, ErrInvalidChunkSize
	}
	if totalISBNs < 0 {
		totalISBNs = 0
	}

	return ImportJob{
		ID:             id,
		LibraryID:      libraryID,
		RequestedBy:    requestedBy,
		SourceFileName: fileName,
		SourceBlobKey:  blobKey,
		TotalISBNCount: totalISBNs,
		ChunkSize:      chunkSize,
		TotalChunks:    (totalISBNs + chunkSize - 1) / chunkSize,
		Status:         StatusPending,
	}, nil
}

// ChunkResult is the outcome of one fully processed chunk.
type ChunkResult struct {
	Size        int
	Succeeded   int
	Failed      int
	FailedISBNs []string
}

// Start moves the job into processing. ProcessingStartedAt is set only on
// the first invocation so a resumed job keeps its original start time.
func (j *ImportJob) Start(now time.Time) {
	if j.ProcessingStartedAt == nil {
		t := now
		j.ProcessingStartedAt = &t
	}
	j.Status = StatusProcessing
}

// ApplyChunkResult advances the cursor past one completed chunk. It keeps
// SuccessCount+FailedCount == CurrentPosition and ProcessedChunks in step
// with the cursor, which is what resume relies on.
func (j *ImportJob) ApplyChunkResult(res ChunkResult) {
	j.CurrentPosition += res.Size
	if j.CurrentPosition > j.TotalISBNCount {
		j.CurrentPosition = j.TotalISBNCount
	}
	j.ProcessedChunks++
	j.SuccessCount += res.Succeeded
	j.FailedCount += res.Failed

	for _, isbn := range res.FailedISBNs {
		if len(j.FailedISBNs) >= MaxStoredFailedISBNs {
			break
		}
		j.FailedISBNs = append(j.FailedISBNs, isbn)
	}
}

func (j *ImportJob) Complete(now time.Time) {
	t := now
	j.CompletedAt = &t
	j.Status = StatusCompleted
	j.ErrorMessage = ""
}

func (j *ImportJob) MarkNotified() {
	j.NotificationSent = true
}

func (j *ImportJob) Fail(reason string, now time.Time) {
	t := now
	j.CompletedAt = &t
	j.Status = StatusFailed
	j.ErrorMessage = reason
}

// ResetForRetry re-queues a failed job. Counters and the cursor are kept so
// the next run resumes from the last checkpoint.
func (j *ImportJob) ResetForRetry() error {
	if j.Status != StatusFailed {
		return ErrJobNotRetryable
	}
	j.Status = StatusPending
	j.ErrorMessage = ""
	j.CompletedAt = nil
	return nil
}

func (j *ImportJob) Exhausted() bool {
	return j.CurrentPosition >= j.TotalISBNCount
}

func (j *ImportJob) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// ProgressPercent reports (success+failed)/total*100 rounded to two decimal
// places, 0 for an empty job.
func (j *ImportJob) ProgressPercent() float64 {
	if j.TotalISBNCount == 0 {
		return 0
	}
	pct := float64(j.SuccessCount+j.FailedCount) / float64(j.TotalISBNCount) * 100
	return math.Round(pct*100) / 100
}
