package domain

import (
	"fmt"

	"github.com/romariotrain/hls-pipeline/internal/media/models"
)

func CanTransition(from, to models.Status) bool {
	switch from {
	case models.PendingStatus:
		return to == models.ProcessingStatus || to == models.FailedStatus
	case models.ProcessingStatus:
		return to == models.SuccessStatus || to == models.FailedStatus
	case models.SuccessStatus:
		return false
	case models.FailedStatus:
		return false
	default:
		return false
	}
}

func ValidateTransition(from, to models.Status) error {
	if from == to && !from.Terminal() {
		return nil
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
