package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/librilane/book-import/internal/domain/importing"
	"github.com/librilane/book-import/internal/infrastructure/db/models"
)

// ImportJobRepository is the durable job store. Every update of an existing
// job goes through the versioned write in Update; a stale version loses and
// gets domain.ErrVersionConflict instead of silently clobbering progress.
type ImportJobRepository struct {
	db            *gorm.DB
	leaseDuration time.Duration
}

func NewImportJobRepository(db *gorm.DB, leaseDuration time.Duration) *ImportJobRepository {
	if leaseDuration <= 0 {
		leaseDuration = 60 * time.Second
	}
	return &ImportJobRepository{db: db, leaseDuration: leaseDuration}
}

func (r *ImportJobRepository) Create(ctx context.Context, job *domain.ImportJob) error {
	job.Version = 1
	m := fromDomain(job)

	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("create import job: %w", err)
	}
	return nil
}

func (r *ImportJobRepository) Get(ctx context.Context, jobID string) (*domain.ImportJob, error) {
	var m models.ImportJob
	err := r.db.WithContext(ctx).First(&m, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}

	job := toDomain(m)
	return &job, nil
}

// Update persists the job guarded by its version. Processing jobs also get
// their lease extended, which doubles as the worker heartbeat.
func (r *ImportJobRepository) Update(ctx context.Context, job *domain.ImportJob) error {
	var lease *time.Time
	if job.Status == domain.StatusProcessing {
		t := time.Now().Add(r.leaseDuration)
		lease = &t
	}

	var errMsg *string
	if job.ErrorMessage != "" {
		errMsg = &job.ErrorMessage
	}

	res := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ? AND version = ?", job.ID, job.Version).
		Updates(map[string]any{
			"status":                string(job.Status),
			"processed_chunks":      job.ProcessedChunks,
			"current_position":      job.CurrentPosition,
			"success_count":         job.SuccessCount,
			"failed_count":          job.FailedCount,
			"failed_isbns":          models.StringList(job.FailedISBNs),
			"processing_started_at": job.ProcessingStartedAt,
			"completed_at":          job.CompletedAt,
			"error_message":         errMsg,
			"notification_sent":     job.NotificationSent,
			"lease_expires_at":      lease,
			"version":               job.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("update import job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.ImportJob{}).Where("id = ?", job.ID).Count(&count).Error; err == nil && count == 0 {
			return domain.ErrJobNotFound
		}
		return domain.ErrVersionConflict
	}

	job.Version++
	return nil
}

const claimSQL = `
UPDATE import_jobs
SET lease_expires_at = ?, version = version + 1, updated_at = ?
WHERE id = (
    SELECT id FROM import_jobs
    WHERE status IN ('pending', 'processing')
      AND (lease_expires_at IS NULL OR lease_expires_at < ?)
    ORDER BY created_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING *
`

// ClaimNext leases the oldest runnable job: pending, or processing with an
// expired lease left behind by a dead runner. Returns nil when the queue is
// empty.
func (r *ImportJobRepository) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ImportJob, error) {
	if leaseDuration <= 0 {
		leaseDuration = r.leaseDuration
	}
	now := time.Now()

	var m models.ImportJob
	res := r.db.WithContext(ctx).Raw(claimSQL, now.Add(leaseDuration), now, now).Scan(&m)
	if res.Error != nil {
		return nil, fmt.Errorf("claim import job: %w", res.Error)
	}
	if res.RowsAffected == 0 || m.ID == "" {
		return nil, nil
	}

	job := toDomain(m)
	return &job, nil
}

func fromDomain(job *domain.ImportJob) models.ImportJob {
	var errMsg *string
	if job.ErrorMessage != "" {
		errMsg = &job.ErrorMessage
	}

	return models.ImportJob{
		ID:                  job.ID,
		LibraryID:           job.LibraryID,
		RequestedBy:         job.RequestedBy,
		SourceFileName:      job.SourceFileName,
		SourceBlobKey:       job.SourceBlobKey,
		TotalISBNCount:      job.TotalISBNCount,
		ChunkSize:           job.ChunkSize,
		TotalChunks:         job.TotalChunks,
		ProcessedChunks:     job.ProcessedChunks,
		CurrentPosition:     job.CurrentPosition,
		SuccessCount:        job.SuccessCount,
		FailedCount:         job.FailedCount,
		FailedISBNs:         models.StringList(job.FailedISBNs),
		Status:              string(job.Status),
		ProcessingStartedAt: job.ProcessingStartedAt,
		CompletedAt:         job.CompletedAt,
		ErrorMessage:        errMsg,
		NotificationSent:    job.NotificationSent,
		Version:             job.Version,
	}
}

func toDomain(m models.ImportJob) domain.ImportJob {
	var errMsg string
	if m.ErrorMessage != nil {
		errMsg = *m.ErrorMessage
	}

	return domain.ImportJob{
		ID:                  m.ID,
		LibraryID:           m.LibraryID,
		RequestedBy:         m.RequestedBy,
		SourceFileName:      m.SourceFileName,
		SourceBlobKey:       m.SourceBlobKey,
		TotalISBNCount:      m.TotalISBNCount,
		ChunkSize:           m.ChunkSize,
		TotalChunks:         m.TotalChunks,
		ProcessedChunks:     m.ProcessedChunks,
		CurrentPosition:     m.CurrentPosition,
		SuccessCount:        m.SuccessCount,
		FailedCount:         m.FailedCount,
		FailedISBNs:         []string(m.FailedISBNs),
		Status:              domain.JobStatus(m.Status),
		ProcessingStartedAt: m.ProcessingStartedAt,
		CompletedAt:         m.CompletedAt,
		ErrorMessage:        errMsg,
		NotificationSent:    m.NotificationSent,
		Version:             m.Version,
	}
}
