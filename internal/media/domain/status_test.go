package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/hls-pipeline/internal/media/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.Status
		want     bool
	}{
		{models.PendingStatus, models.ProcessingStatus, true},
		{models.PendingStatus, models.FailedStatus, true},
		{models.PendingStatus, models.SuccessStatus, false},
		{models.ProcessingStatus, models.SuccessStatus, true},
		{models.ProcessingStatus, models.FailedStatus, true},
		{models.ProcessingStatus, models.PendingStatus, false},
		{models.SuccessStatus, models.FailedStatus, false},
		{models.SuccessStatus, models.ProcessingStatus, false},
		{models.FailedStatus, models.ProcessingStatus, false},
		{models.FailedStatus, models.SuccessStatus, false},
		{models.Status("bogus"), models.FailedStatus, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidateTransition_TerminalIsFinal(t *testing.T) {
	err := ValidateTransition(models.SuccessStatus, models.SuccessStatus)
	require.ErrorIs(t, err, ErrInvalidTransition)

	err = ValidateTransition(models.FailedStatus, models.ProcessingStatus)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "failed -> processing")
}

func TestValidateTransition_SameTransientStatusIsNoop(t *testing.T) {
	require.NoError(t, ValidateTransition(models.ProcessingStatus, models.ProcessingStatus))
}

func TestTaxonomyErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")

	var admission error = &AdmissionError{JobID: "a", Err: cause}
	var transcode error = &TranscodeError{JobID: "a", Err: cause}
	var publish error = &PublishError{JobID: "a", RemotePath: "videos-hls/a/master.m3u8", Err: cause}
	var cleanup error = &CleanupError{JobID: "a", Path: "/tmp/a", Err: cause}

	for _, err := range []error{admission, transcode, publish, cleanup} {
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), `"a"`)
	}

	var pe *PublishError
	require.ErrorAs(t, publish, &pe)
	assert.Equal(t, "videos-hls/a/master.m3u8", pe.RemotePath)
}
