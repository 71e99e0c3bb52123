package importing

import (
	"context"

	domain "github.com/librilane/book-import/internal/domain/importing"
)

type JobStatusView struct {
	JobID           string   `json:"job_id"`
	Status          string   `json:"status"`
	TotalISBNs      int      `json:"total_isbns"`
	TotalChunks     int      `json:"total_chunks"`
	ProcessedChunks int      `json:"processed_chunks"`
	SuccessCount    int      `json:"success_count"`
	FailedCount     int      `json:"failed_count"`
	FailedISBNs     []string `json:"failed_isbns,omitempty"`
	ProgressPercent float64  `json:"progress_percent"`
	ErrorMessage    string   `json:"error_message,omitempty"`
	IsTerminal      bool     `json:"is_terminal"`
}

type GetJobStatus interface {
	Execute(ctx context.Context, jobID string) (JobStatusView, error)
}

type getJobStatus struct {
	jobs domain.JobStore
}

func NewGetJobStatus(jobs domain.JobStore) GetJobStatus {
	return &getJobStatus{jobs: jobs}
}

// Execute is a pure read of the last durable checkpoint; safe to poll.
func (uc *getJobStatus) Execute(ctx context.Context, jobID string) (JobStatusView, error) {
	job, err := uc.jobs.Get(ctx, jobID)
	if err != nil {
		return JobStatusView{}, err
	}

	return JobStatusView{
		JobID:           job.ID,
		Status:          string(job.Status),
		TotalISBNs:      job.TotalISBNCount,
		TotalChunks:     job.TotalChunks,
		ProcessedChunks: job.ProcessedChunks,
		SuccessCount:    job.SuccessCount,
		FailedCount:     job.FailedCount,
		FailedISBNs:     job.FailedISBNs,
		ProgressPercent: job.ProgressPercent(),
		ErrorMessage:    job.ErrorMessage,
		IsTerminal:      job.IsTerminal(),
	}, nil
}
