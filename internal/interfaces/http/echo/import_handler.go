package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/librilane/book-import/internal/application/importing"
	domain "github.com/librilane/book-import/internal/domain/importing"
)

type ImportHandler struct {
	submit app.SubmitImport
	status app.GetJobStatus
	retry  app.RetryImport
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func NewImportHandler(submit app.SubmitImport, status app.GetJobStatus, retry app.RetryImport) *ImportHandler {
	return &ImportHandler{submit: submit, status: status, retry: retry}
}

// SubmitImport accepts a multipart CSV upload and creates the import job.
func (h *ImportHandler) SubmitImport(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "bad_request",
			Message: "multipart field 'file' is required",
		}})
	}

	content, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "bad_request",
			Message: "uploaded file could not be read",
		}})
	}
	defer content.Close()

	out, err := h.submit.Execute(c.Request().Context(), app.SubmitImportInput{
		FileName:    fileHeader.Filename,
		Size:        fileHeader.Size,
		Content:     content,
		LibraryID:   c.FormValue("library_id"),
		RequestedBy: c.FormValue("requested_by"),
	})
	if err != nil {
		return submitErrorResponse(c, err)
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func submitErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, app.ErrEmptyFile):
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "empty_file",
			Message: "a non-empty file is required",
		}})
	case errors.Is(err, app.ErrInvalidExtension):
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "invalid_extension",
			Message: "file must be a .csv",
		}})
	case errors.Is(err, app.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, apiResponse{Error: &errorBody{
			Code:    "file_too_large",
			Message: "file exceeds the maximum allowed size",
		}})
	case errors.Is(err, app.ErrMissingLibrary):
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "missing_library",
			Message: "form field 'library_id' is required",
		}})
	case errors.Is(err, app.ErrQuotaExceeded):
		return c.JSON(http.StatusUnprocessableEntity, apiResponse{Error: &errorBody{
			Code:    "quota_exceeded",
			Message: "library quota cannot accommodate this import",
		}})
	default:
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to create import job",
		}})
	}
}

// GetImportStatus is a pure read of the job's last durable checkpoint.
func (h *ImportHandler) GetImportStatus(c echo.Context) error {
	view, err := h.status.Execute(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
				Code:    "not_found",
				Message: "import job not found",
			}})
		}
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to read import job",
		}})
	}

	return c.JSON(http.StatusOK, apiResponse{Data: view})
}

// RetryImport re-queues a failed job; it resumes from its last checkpoint.
func (h *ImportHandler) RetryImport(c echo.Context) error {
	err := h.retry.Execute(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
				Code:    "not_found",
				Message: "import job not found",
			}})
		case errors.Is(err, domain.ErrJobNotRetryable):
			return c.JSON(http.StatusConflict, apiResponse{Error: &errorBody{
				Code:    "not_retryable",
				Message: "only failed jobs can be retried",
			}})
		default:
			return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
				Code:    "internal_error",
				Message: "failed to retry import job",
			}})
		}
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: map[string]string{
		"job_id": c.Param("id"),
		"status": string(domain.StatusPending),
	}})
}
