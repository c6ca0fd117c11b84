package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bananalabs-oss/stocking/internal/identity"
	"github.com/bananalabs-oss/stocking/internal/models"
	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := New(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoomFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	reg := identity.NewRegistry(s)

	room, admin, err := reg.CreateRoomWithAdmin(ctx, "pg-admin", "Mom")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := reg.AddParticipant(ctx, room.Code, "Dad", nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := reg.AddParticipant(ctx, room.Code, "DAD", nil); !errors.Is(err, models.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	kid, err := reg.AddParticipant(ctx, room.Code, "Kid", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := reg.Claim(ctx, kid.ID, "pg-kid"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := reg.Claim(ctx, kid.ID, "pg-other"); !errors.Is(err, models.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}

	batch, err := s.CommitDraw(ctx, room.Code, func(r *models.Room, ps []models.Participant, _ []models.Exclusion) ([]models.Assignment, error) {
		now := time.Now().UTC()
		out := make([]models.Assignment, 0, len(ps))
		for i, p := range ps {
			out = append(out, models.Assignment{
				RoomCode:   r.Code,
				GiverID:    p.ID,
				ReceiverID: ps[(i+1)%len(ps)].ID,
				CreatedAt:  now,
			})
		}
		return out, nil
	})
	if err != nil {
		t.Fatalf("commit draw: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(batch))
	}

	got, err := s.GetRoom(ctx, room.Code)
	if err != nil || got.Phase != models.PhaseReveal {
		t.Fatalf("expected REVEAL, got %#v (%v)", got, err)
	}
	a, err := s.FindAssignment(ctx, room.Code, admin.ID)
	if err != nil || a == nil {
		t.Fatalf("expected an assignment for the admin, got %#v (%v)", a, err)
	}

	if err := s.ResetDraw(ctx, room.Code, nil); err != nil {
		t.Fatalf("reset: %v", err)
	}
	left, _ := s.ListAssignments(ctx, room.Code)
	if len(left) != 0 {
		t.Fatalf("expected assignments cleared, got %d", len(left))
	}

	if _, err := s.GetParticipant(ctx, uuid.New()); !errors.Is(err, models.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}
