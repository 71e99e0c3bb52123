package importing

import "errors"

var (
	ErrEmptyFile        = errors.New("import file is empty")
	ErrInvalidExtension = errors.New("import file must be a .csv file")
	ErrFileTooLarge     = errors.New("import file exceeds the maximum allowed size")
	ErrMissingLibrary   = errors.New("request does not resolve to a library")
	ErrQuotaExceeded    = errors.New("library quota cannot accommodate this import")
	ErrUploadFailed     = errors.New("failed to store import file")
	ErrCreateJob        = errors.New("failed to create import job")
)
