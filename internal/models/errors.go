package models

import "errors"

var (
	ErrRoomNotFound             = errors.New("room not found")
	ErrParticipantNotFound      = errors.New("participant not found")
	ErrExclusionNotFound        = errors.New("exclusion not found")
	ErrPhaseViolation           = errors.New("action not allowed in the current phase")
	ErrDuplicateName            = errors.New("a participant with that name already exists")
	ErrAlreadyClaimed           = errors.New("participant already claimed by another device")
	ErrInsufficientParticipants = errors.New("not enough participants to draw")
	ErrConstraintUnsatisfiable  = errors.New("exclusions too restrictive for a valid draw")
	ErrNotAuthorized            = errors.New("not authorized")
	ErrInvalidName              = errors.New("invalid name")
	ErrInvalidCode              = errors.New("invalid room code")

	// ErrUnavailable wraps storage and transport failures. Callers retry manually.
	ErrUnavailable = errors.New("collaborator unavailable")
)
