package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid transition")

// AdmissionError is returned to the submitter when the pending record for a
// job cannot be created. The job is not queued.
type AdmissionError struct {
	JobID string
	Err   error
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admit job %q: %v", e.JobID, e.Err)
}

func (e *AdmissionError) Unwrap() error { return e.Err }

// TranscodeError marks a job failed because the encoder did not produce output.
type TranscodeError struct {
	JobID string
	Err   error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode job %q: %v", e.JobID, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// PublishError marks a job failed because at least one output file did not
// reach remote storage. Files uploaded before the failure stay in place.
type PublishError struct {
	JobID      string
	RemotePath string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish job %q to %q: %v", e.JobID, e.RemotePath, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// CleanupError is logged when local artifacts cannot be removed. It never
// changes a job's status.
type CleanupError struct {
	JobID string
	Path  string
	Err   error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup job %q path %q: %v", e.JobID, e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }
