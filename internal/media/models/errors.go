package models

import "errors"

var (
	// ErrNotFound means no status record exists for the job id.
	ErrNotFound = errors.New("video status not found")
	// ErrConflict means a status record already exists for the job id.
	ErrConflict        = errors.New("video status already exists")
	ErrInvalidArgument = errors.New("invalid argument")
)
