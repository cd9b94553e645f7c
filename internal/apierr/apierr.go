// Package apierr defines the error taxonomy surfaced to API callers.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status, a stable machine-readable code and whether
// the caller may retry the same request.
type Error struct {
	Status    int
	Code      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so a sentinel compares equal to
// errors built from it with Wrap.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New creates an Error.
func New(status int, code string, retryable bool, err error) *Error {
	return &Error{Status: status, Code: code, Retryable: retryable, Err: err}
}

// Wrap returns a copy of sentinel carrying err as its cause.
// The resulting error matches sentinel with errors.Is and unwraps to err.
func Wrap(sentinel *Error, err error) *Error {
	return &Error{Status: sentinel.Status, Code: sentinel.Code, Retryable: sentinel.Retryable, Err: err}
}

// Errorf is Wrap with a formatted cause.
func Errorf(sentinel *Error, format string, args ...any) *Error {
	return Wrap(sentinel, fmt.Errorf(format, args...))
}

var (
	ErrNotFound              = New(http.StatusNotFound, "not_found", false, errors.New("not found"))
	ErrInvalidQuestionNumber = New(http.StatusBadRequest, "invalid_question_number", false, errors.New("q_num must be 1, 2 or 3"))
	ErrInvalidRequest        = New(http.StatusBadRequest, "invalid_request", false, errors.New("invalid request"))
	ErrUnauthorized          = New(http.StatusUnauthorized, "unauthorized", false, errors.New("missing or invalid token"))
	ErrDuplicateSubmission   = New(http.StatusConflict, "duplicate_submission", false, errors.New("answer already submitted"))
	ErrIncompleteSession     = New(http.StatusConflict, "incomplete_session", false, errors.New("session is incomplete"))
	ErrDuplicateScore        = New(http.StatusConflict, "duplicate_score", false, errors.New("session already scored"))
	ErrUnmappedCategory      = New(http.StatusUnprocessableEntity, "unmapped_category", false, errors.New("unmapped category"))
	ErrInvalidMetrics        = New(http.StatusBadGateway, "invalid_metrics", false, errors.New("invalid inference metrics"))
	ErrAudioProcessing       = New(http.StatusInternalServerError, "audio_processing_error", true, errors.New("audio processing failed"))
	ErrInferenceUnavailable  = New(http.StatusServiceUnavailable, "inference_unavailable", true, errors.New("inference service unavailable"))
	ErrInferenceTimeout      = New(http.StatusGatewayTimeout, "inference_timeout", true, errors.New("inference service timed out"))
	ErrInferenceRejected     = New(http.StatusBadGateway, "inference_rejected", false, errors.New("inference service rejected the request"))
	ErrClassifierUnavailable = New(http.StatusServiceUnavailable, "classifier_unavailable", false, errors.New("classifier model could not be loaded"))
	ErrTransactionConflict   = New(http.StatusServiceUnavailable, "transaction_conflict", true, errors.New("concurrent update in progress, try again"))
)

// CodeInternal is reported for errors outside the taxonomy.
const CodeInternal = "internal"

// From extracts the *Error in err's chain. Errors outside the taxonomy are
// reported as an internal error that is not retryable.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return &Error{Status: apiErr.Status, Code: apiErr.Code, Retryable: apiErr.Retryable, Err: err}
	}
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Err: err}
}

// IsRetryable reports whether err belongs to a retryable taxonomy entry.
func IsRetryable(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Retryable
}
