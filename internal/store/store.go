// Package store defines the persistence collaborator used by the identity
// registry and the session coordinator.
//
// Every mutating method is a single atomic unit: it either applies fully or
// leaves state unchanged. Guards and draw functions run inside the
// implementation's transaction against the freshly read room row.
package store

import (
	"context"

	"github.com/bananalabs-oss/stocking/internal/models"
	"github.com/google/uuid"
)

// Guard vets the locked room row before a mutation is applied.
type Guard func(r *models.Room) error

// DrawFunc builds the assignment batch from a consistent snapshot.
type DrawFunc func(r *models.Room, participants []models.Participant, exclusions []models.Exclusion) ([]models.Assignment, error)

type Store interface {
	// CreateRoom inserts the room and its admin together. A taken code
	// yields ErrCodeTaken.
	CreateRoom(ctx context.Context, r *models.Room, admin *models.Participant) error
	GetRoom(ctx context.Context, code string) (*models.Room, error)

	ListParticipants(ctx context.Context, code string) ([]models.Participant, error)
	GetParticipant(ctx context.Context, id uuid.UUID) (*models.Participant, error)
	// FindClaimant returns the participant of room code held by deviceID,
	// or nil when the device holds none.
	FindClaimant(ctx context.Context, code, deviceID string) (*models.Participant, error)
	// LatestClaim returns the most recently claimed participant for deviceID
	// across all rooms, or nil.
	LatestClaim(ctx context.Context, deviceID string) (*models.Participant, error)
	// InsertParticipant enforces case-insensitive name uniqueness per room.
	InsertParticipant(ctx context.Context, p *models.Participant, guard Guard) error
	// DeleteParticipant also removes exclusions that reference the participant.
	DeleteParticipant(ctx context.Context, id uuid.UUID, guard Guard) error
	// ClaimParticipant is a compare-and-set on claimant_device. It also
	// releases any other slot the device holds in the same room.
	ClaimParticipant(ctx context.Context, id uuid.UUID, deviceID string) (*models.Participant, error)
	ReleaseParticipant(ctx context.Context, id uuid.UUID) error

	ListExclusions(ctx context.Context, code string) ([]models.Exclusion, error)
	GetExclusion(ctx context.Context, id uuid.UUID) (*models.Exclusion, error)
	// InsertExclusion returns the existing row when the edge is already stored.
	InsertExclusion(ctx context.Context, x *models.Exclusion, guard Guard) (*models.Exclusion, error)
	DeleteExclusion(ctx context.Context, id uuid.UUID, guard Guard) error

	// CommitDraw writes the batch from fn and flips the room to REVEAL.
	CommitDraw(ctx context.Context, code string, fn DrawFunc) ([]models.Assignment, error)
	// ResetDraw deletes the batch and flips the room to LOBBY.
	ResetDraw(ctx context.Context, code string, guard Guard) error
	// FindAssignment returns nil when no batch exists for the giver.
	FindAssignment(ctx context.Context, code string, giverID uuid.UUID) (*models.Assignment, error)
	ListAssignments(ctx context.Context, code string) ([]models.Assignment, error)

	Close() error
}
