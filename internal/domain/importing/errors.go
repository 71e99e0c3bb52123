package importing

import "errors"

var (
	ErrJobNotFound      = errors.New("import job not found")
	ErrVersionConflict  = errors.New("import job version conflict")
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	ErrJobNotRetryable  = errors.New("import job is not in a retryable state")
	ErrJobNotRunnable   = errors.New("import job is not in a runnable state")
)
