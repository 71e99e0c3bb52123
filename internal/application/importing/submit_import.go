package importing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/librilane/book-import/internal/domain/importing"
)

type SubmitImportInput struct {
	FileName    string
	Size        int64
	Content     io.Reader
	LibraryID   string
	RequestedBy string
}

type SubmitImportOutput struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	TotalISBNs  int    `json:"total_isbns"`
	TotalChunks int    `json:"total_chunks"`
}

type SubmitImport interface {
	Execute(ctx context.Context, in SubmitImportInput) (SubmitImportOutput, error)
}

type SubmitImportConfig struct {
	MaxUploadBytes int64
	ChunkSize      int
	// MaxCandidates caps how many ISBNs one import may carry; 0 means
	// unlimited.
	MaxCandidates int
}

type submitImport struct {
	jobs  domain.JobStore
	blobs domain.BlobStore
	quota domain.QuotaChecker
	cfg   SubmitImportConfig
	now   func() time.Time
}

func NewSubmitImport(jobs domain.JobStore, blobs domain.BlobStore, quota domain.QuotaChecker, cfg SubmitImportConfig) SubmitImport {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5 << 20
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	return &submitImport{jobs: jobs, blobs: blobs, quota: quota, cfg: cfg, now: time.Now}
}

// Execute validates the upload, counts candidates, stores the original file
// bytes and creates the job record in pending state. Nothing durable exists
// until validation and the quota check have passed, and a failed upload
// leaves no job record behind.
func (uc *submitImport) Execute(ctx context.Context, in SubmitImportInput) (SubmitImportOutput, error) {
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" || in.Content == nil || in.Size == 0 {
		return SubmitImportOutput{}, ErrEmptyFile
	}
	if strings.ToLower(filepath.Ext(fileName)) != ".csv" {
		return SubmitImportOutput{}, ErrInvalidExtension
	}
	if in.Size > uc.cfg.MaxUploadBytes {
		return SubmitImportOutput{}, ErrFileTooLarge
	}
	if strings.TrimSpace(in.LibraryID) == "" {
		return SubmitImportOutput{}, ErrMissingLibrary
	}

	content, err := io.ReadAll(io.LimitReader(in.Content, uc.cfg.MaxUploadBytes+1))
	if err != nil {
		return SubmitImportOutput{}, fmt.Errorf("read upload: %w", err)
	}
	if len(content) == 0 {
		return SubmitImportOutput{}, ErrEmptyFile
	}
	if int64(len(content)) > uc.cfg.MaxUploadBytes {
		return SubmitImportOutput{}, ErrFileTooLarge
	}

	candidates, err := ExtractCandidates(bytes.NewReader(content), uc.cfg.MaxCandidates)
	if err != nil {
		return SubmitImportOutput{}, fmt.Errorf("extract isbn candidates: %w", err)
	}

	ok, err := uc.quota.CanAccommodate(ctx, in.LibraryID, len(candidates))
	if err != nil {
		return SubmitImportOutput{}, fmt.Errorf("check library quota: %w", err)
	}
	if !ok {
		return SubmitImportOutput{}, ErrQuotaExceeded
	}

	key := path.Join(in.LibraryID, uc.now().UTC().Format("2006-01-02"), path.Base(fileName))
	locator, err := uc.blobs.Upload(ctx, key, bytes.NewReader(content))
	if err != nil {
		return SubmitImportOutput{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	job, err := domain.NewImportJob(uuid.NewString(), in.LibraryID, in.RequestedBy, fileName, locator, len(candidates), uc.cfg.ChunkSize)
	if err != nil {
		return SubmitImportOutput{}, err
	}

	if err := uc.jobs.Create(ctx, &job); err != nil {
		return SubmitImportOutput{}, fmt.Errorf("%w: %v", ErrCreateJob, err)
	}

	return SubmitImportOutput{
		JobID:       job.ID,
		Status:      string(job.Status),
		TotalISBNs:  job.TotalISBNCount,
		TotalChunks: job.TotalChunks,
	}, nil
}
