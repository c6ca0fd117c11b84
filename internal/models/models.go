package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Phase string

const (
	PhaseLobby  Phase = "LOBBY"
	PhaseReveal Phase = "REVEAL"

	CodeLength         = 4
	MaxNameLength      = 64
	DefaultMinPlayers  = 3
	DefaultDrawRetries = 2000
)

func (p Phase) Valid() bool {
	return p == PhaseLobby || p == PhaseReveal
}

type Room struct {
	bun.BaseModel `bun:"table:rooms,alias:r"`

	Code      string    `bun:"code,pk"                     json:"code"`
	Phase     Phase     `bun:"phase,notnull"               json:"phase"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull" json:"updated_at"`
}

type Participant struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID             uuid.UUID  `bun:"id,pk,type:text"             json:"id"`
	RoomCode       string     `bun:"room_code,notnull"           json:"room_code"`
	Name           string     `bun:"name,notnull"                json:"name"`
	NameKey        string     `bun:"name_key,notnull"            json:"-"`
	IsAdmin        bool       `bun:"is_admin,notnull"            json:"is_admin"`
	ClaimantDevice *string    `bun:"claimant_device"             json:"-"`
	ClaimedAt      *time.Time `bun:"claimed_at"                  json:"-"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull" json:"created_at"`
}

// Claimed reports whether a device currently holds the slot.
func (p *Participant) Claimed() bool {
	return p.ClaimantDevice != nil
}

// HeldBy reports whether deviceID is the current claimant.
func (p *Participant) HeldBy(deviceID string) bool {
	return p.ClaimantDevice != nil && *p.ClaimantDevice == deviceID
}

type Exclusion struct {
	bun.BaseModel `bun:"table:exclusions,alias:x"`

	ID         uuid.UUID `bun:"id,pk,type:text"             json:"id"`
	RoomCode   string    `bun:"room_code,notnull"           json:"room_code"`
	GiverID    uuid.UUID `bun:"giver_id,notnull,type:text"  json:"giver_id"`
	ReceiverID uuid.UUID `bun:"receiver_id,notnull,type:text" json:"receiver_id"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull" json:"created_at"`
}

type Assignment struct {
	bun.BaseModel `bun:"table:assignments,alias:a"`

	RoomCode   string    `bun:"room_code,pk"                  json:"room_code"`
	GiverID    uuid.UUID `bun:"giver_id,pk,type:text"         json:"giver_id"`
	ReceiverID uuid.UUID `bun:"receiver_id,notnull,type:text" json:"receiver_id"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull"   json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
