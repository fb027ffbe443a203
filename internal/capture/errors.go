package capture

import (
	"errors"
	"fmt"

	"github.com/neuranote/neuranote/internal/backend"
)

var (
	// ErrNoInput is returned by Submit when neither pages nor text are staged.
	ErrNoInput = errors.New("nothing to submit: add a page or some text first")
	// ErrSubmitInProgress is returned by Submit while another submission runs.
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	// ErrBusy is returned by edits attempted while a submission runs.
	ErrBusy = errors.New("session is busy submitting or staging files")
)

// ValidationError reports input that was rejected locally. It never blocks
// the valid part of the same input.
type ValidationError struct {
	Skipped   int
	Truncated int
	Reason    string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// FolderResolutionError means no destination folder could be found or made.
type FolderResolutionError struct {
	Name string
	Err  error
}

func (e *FolderResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve folder %q: %v", e.Name, e.Err)
}

func (e *FolderResolutionError) Unwrap() error {
	return e.Err
}

// SubmissionError means the backend rejected the analysis or it timed out.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return "analysis failed: " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// UserMessage returns the most specific message available for err: the
// backend's own detail, then the error text, then a generic fallback.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Analysis Failed"
}
