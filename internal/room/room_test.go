package room

import (
	"errors"
	"testing"

	"github.com/bananalabs-oss/stocking/internal/models"
)

func TestNext(t *testing.T) {
	cases := []struct {
		from    models.Phase
		ev      Event
		want    models.Phase
		wantErr bool
	}{
		{models.PhaseLobby, EventDraw, models.PhaseReveal, false},
		{models.PhaseReveal, EventReset, models.PhaseLobby, false},
		{models.PhaseReveal, EventDraw, models.PhaseReveal, true},
		{models.PhaseLobby, EventReset, models.PhaseLobby, true},
		{models.Phase("BOGUS"), EventDraw, models.Phase("BOGUS"), true},
	}
	for _, tc := range cases {
		got, err := Next(tc.from, tc.ev)
		if tc.wantErr {
			if !errors.Is(err, models.ErrPhaseViolation) {
				t.Fatalf("%s/%s: expected phase violation, got %v", tc.from, tc.ev, err)
			}
		} else if err != nil {
			t.Fatalf("%s/%s: unexpected error %v", tc.from, tc.ev, err)
		}
		if got != tc.want {
			t.Fatalf("%s/%s: expected %s, got %s", tc.from, tc.ev, tc.want, got)
		}
	}
}

func TestRequireLobby(t *testing.T) {
	if err := RequireLobby(&models.Room{Code: "AB12", Phase: models.PhaseLobby}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	err := RequireLobby(&models.Room{Code: "AB12", Phase: models.PhaseReveal})
	if !errors.Is(err, models.ErrPhaseViolation) {
		t.Fatalf("expected phase violation, got %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	admin := &models.Participant{RoomCode: "AB12", IsAdmin: true}
	member := &models.Participant{RoomCode: "AB12"}

	if err := Authorize(admin, "AB12"); err != nil {
		t.Fatalf("expected admin to pass, got %v", err)
	}
	if err := Authorize(admin, "ZZ99"); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("expected admin of another room to fail, got %v", err)
	}
	if err := Authorize(member, "AB12"); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("expected member to fail, got %v", err)
	}
	if err := Authorize(nil, "AB12"); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("expected nil actor to fail, got %v", err)
	}
}

func TestCheckDrawable(t *testing.T) {
	if err := CheckDrawable(3, 3); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := CheckDrawable(2, 3); !errors.Is(err, models.ErrInsufficientParticipants) {
		t.Fatalf("expected insufficient participants, got %v", err)
	}
	if err := CheckDrawable(1, 0); !errors.Is(err, models.ErrInsufficientParticipants) {
		t.Fatalf("expected clamp to 2, got %v", err)
	}
	if err := CheckDrawable(2, 0); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
