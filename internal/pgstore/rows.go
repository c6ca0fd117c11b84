package pgstore

import (
	"time"

	"github.com/bananalabs-oss/stocking/internal/models"
	"github.com/google/uuid"
)

type roomRow struct {
	Code      string    `gorm:"primaryKey;size:8"`
	Phase     string    `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (roomRow) TableName() string { return "rooms" }

type participantRow struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RoomCode       string     `gorm:"size:8;not null;index;uniqueIndex:idx_participants_room_name"`
	Name           string     `gorm:"size:64;not null"`
	NameKey        string     `gorm:"size:64;not null;uniqueIndex:idx_participants_room_name"`
	IsAdmin        bool       `gorm:"not null;default:false"`
	ClaimantDevice *string    `gorm:"size:64;index:idx_participants_device"`
	ClaimedAt      *time.Time `gorm:"index:idx_participants_device"`
	CreatedAt      time.Time  `gorm:"not null"`
}

func (participantRow) TableName() string { return "participants" }

type exclusionRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomCode   string    `gorm:"size:8;not null;uniqueIndex:idx_exclusions_edge"`
	GiverID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_exclusions_edge"`
	ReceiverID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_exclusions_edge"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (exclusionRow) TableName() string { return "exclusions" }

type assignmentRow struct {
	RoomCode   string    `gorm:"primaryKey;size:8;uniqueIndex:idx_assignments_receiver"`
	GiverID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReceiverID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assignments_receiver"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (assignmentRow) TableName() string { return "assignments" }

func (r roomRow) model() *models.Room {
	return &models.Room{
		Code:      r.Code,
		Phase:     models.Phase(r.Phase),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromParticipant(p *models.Participant) participantRow {
	return participantRow{
		ID:             p.ID,
		RoomCode:       p.RoomCode,
		Name:           p.Name,
		NameKey:        p.NameKey,
		IsAdmin:        p.IsAdmin,
		ClaimantDevice: p.ClaimantDevice,
		ClaimedAt:      p.ClaimedAt,
		CreatedAt:      p.CreatedAt,
	}
}

func (r participantRow) model() models.Participant {
	return models.Participant{
		ID:             r.ID,
		RoomCode:       r.RoomCode,
		Name:           r.Name,
		NameKey:        r.NameKey,
		IsAdmin:        r.IsAdmin,
		ClaimantDevice: r.ClaimantDevice,
		ClaimedAt:      r.ClaimedAt,
		CreatedAt:      r.CreatedAt,
	}
}

func (r exclusionRow) model() models.Exclusion {
	return models.Exclusion{
		ID:         r.ID,
		RoomCode:   r.RoomCode,
		GiverID:    r.GiverID,
		ReceiverID: r.ReceiverID,
		CreatedAt:  r.CreatedAt,
	}
}

func (r assignmentRow) model() models.Assignment {
	return models.Assignment{
		RoomCode:   r.RoomCode,
		GiverID:    r.GiverID,
		ReceiverID: r.ReceiverID,
		CreatedAt:  r.CreatedAt,
	}
}
