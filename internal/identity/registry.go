// Package identity manages participant slots and which device holds each one.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bananalabs-oss/stocking/internal/models"
	"github.com/bananalabs-oss/stocking/internal/store"
	"github.com/google/uuid"
)

// codeAttempts bounds retries on room code collisions.
const codeAttempts = 16

type Registry struct {
	store   store.Store
	newCode func() (string, error)
}

func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s, newCode: NewCode}
}

// CreateRoomWithAdmin opens a LOBBY room whose admin slot is already held
// by deviceID.
func (r *Registry) CreateRoomWithAdmin(ctx context.Context, deviceID, name string) (*models.Room, *models.Participant, error) {
	display, key, err := NormalizeName(name)
	if err != nil {
		return nil, nil, err
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := r.newCode()
		if err != nil {
			return nil, nil, err
		}

		now := time.Now().UTC()
		device := deviceID
		room := &models.Room{
			Code:      code,
			Phase:     models.PhaseLobby,
			CreatedAt: now,
			UpdatedAt: now,
		}
		admin := &models.Participant{
			ID:             uuid.New(),
			RoomCode:       code,
			Name:           display,
			NameKey:        key,
			IsAdmin:        true,
			ClaimantDevice: &device,
			ClaimedAt:      &now,
			CreatedAt:      now,
		}

		err = r.store.CreateRoom(ctx, room, admin)
		if errors.Is(err, store.ErrCodeTaken) {
			log.Printf("identity: room code %s taken, retrying", code)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return room, admin, nil
	}

	return nil, nil, fmt.Errorf("%w: no free room code after %d attempts", models.ErrUnavailable, codeAttempts)
}

// AddParticipant creates an unclaimed, non-admin slot.
func (r *Registry) AddParticipant(ctx context.Context, code, name string, guard store.Guard) (*models.Participant, error) {
	display, key, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	p := &models.Participant{
		ID:        uuid.New(),
		RoomCode:  code,
		Name:      display,
		NameKey:   key,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.InsertParticipant(ctx, p, guard); err != nil {
		return nil, err
	}
	return p, nil
}

// Claim binds deviceID to the slot. Re-claiming by the holder is a no-op
// success; any other holder yields models.ErrAlreadyClaimed.
func (r *Registry) Claim(ctx context.Context, id uuid.UUID, deviceID string) (*models.Participant, error) {
	if deviceID == "" {
		return nil, models.ErrNotAuthorized
	}
	return r.store.ClaimParticipant(ctx, id, deviceID)
}

// Release clears the slot's device regardless of who holds it.
func (r *Registry) Release(ctx context.Context, id uuid.UUID) error {
	return r.store.ReleaseParticipant(ctx, id)
}

func (r *Registry) Remove(ctx context.Context, id uuid.UUID, guard store.Guard) error {
	return r.store.DeleteParticipant(ctx, id, guard)
}

// ResolveSession finds the participant deviceID claimed most recently, or nil.
func (r *Registry) ResolveSession(ctx context.Context, deviceID string) (*models.Participant, error) {
	if deviceID == "" {
		return nil, nil
	}
	return r.store.LatestClaim(ctx, deviceID)
}
