// Package room holds the phase rules for a gift-exchange room.
//
// A room starts in LOBBY. A draw moves it to REVEAL and a reset moves it
// back. Structure (participants and exclusions) may only change in LOBBY,
// and only the admin participant may change it or trigger a transition.
package room

import (
	"fmt"

	"github.com/bananalabs-oss/stocking/internal/models"
)

type Event string

const (
	EventDraw  Event = "draw"
	EventReset Event = "reset"
)

var transitions = map[models.Phase]map[Event]models.Phase{
	models.PhaseLobby:  {EventDraw: models.PhaseReveal},
	models.PhaseReveal: {EventReset: models.PhaseLobby},
}

// Next returns the phase that ev leads to from the current phase.
func Next(from models.Phase, ev Event) (models.Phase, error) {
	to, ok := transitions[from][ev]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s in %s", models.ErrPhaseViolation, ev, from)
	}
	return to, nil
}

// RequireLobby rejects structural edits once assignments exist.
func RequireLobby(r *models.Room) error {
	if r.Phase != models.PhaseLobby {
		return fmt.Errorf("%w: room %s is in %s", models.ErrPhaseViolation, r.Code, r.Phase)
	}
	return nil
}

// Authorize checks that actor is the admin of the room identified by code.
func Authorize(actor *models.Participant, code string) error {
	if actor == nil || !actor.IsAdmin || actor.RoomCode != code {
		return models.ErrNotAuthorized
	}
	return nil
}

// CheckDrawable rejects draws below the minimum participant count.
// min is clamped to 2 since no derangement exists below that.
func CheckDrawable(count, min int) error {
	if min < 2 {
		min = 2
	}
	if count < min {
		return fmt.Errorf("%w: have %d, need %d", models.ErrInsufficientParticipants, count, min)
	}
	return nil
}
