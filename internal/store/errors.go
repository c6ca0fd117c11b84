package store

import (
	"errors"
	"fmt"

	"github.com/bananalabs-oss/stocking/internal/models"
)

// ErrCodeTaken reports a room code collision on create.
var ErrCodeTaken = errors.New("room code already in use")

// Unavailable wraps a driver error as models.ErrUnavailable unless it already
// carries a domain error.
func Unavailable(op string, err error) error {
	if err == nil || IsDomain(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, models.ErrUnavailable, err)
}

// IsDomain reports whether err is one of the typed outcomes callers handle.
func IsDomain(err error) bool {
	for _, target := range []error{
		models.ErrRoomNotFound,
		models.ErrParticipantNotFound,
		models.ErrExclusionNotFound,
		models.ErrPhaseViolation,
		models.ErrDuplicateName,
		models.ErrAlreadyClaimed,
		models.ErrInsufficientParticipants,
		models.ErrConstraintUnsatisfiable,
		models.ErrNotAuthorized,
		models.ErrInvalidName,
		models.ErrInvalidCode,
		models.ErrUnavailable,
		ErrCodeTaken,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
