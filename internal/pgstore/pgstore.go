// Package pgstore is the hosted Postgres implementation of store.Store.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bananalabs-oss/stocking/internal/models"
	"github.com/bananalabs-oss/stocking/internal/store"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to Postgres. TranslateError maps unique violations to
// gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	log.Println("database connected")
	return db, nil
}

// Migrate runs GORM auto-migrations for the room tables.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("db connection is nil")
	}
	if err := db.AutoMigrate(
		&roomRow{},
		&participantRow{},
		&exclusionRow{},
		&assignmentRow{},
	); err != nil {
		return err
	}
	log.Println("database migration complete")
	return nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func (s *Store) lockRoom(tx *gorm.DB, code string, guard store.Guard) (*models.Room, error) {
	var row roomRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&row).Error
	if notFound(err) {
		return nil, models.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	r := row.model()
	if guard != nil {
		if err := guard(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (s *Store) CreateRoom(ctx context.Context, r *models.Room, admin *models.Participant) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := roomRow{Code: r.Code, Phase: string(r.Phase), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return store.ErrCodeTaken
			}
			return err
		}
		p := fromParticipant(admin)
		return tx.Create(&p).Error
	})
	return store.Unavailable("create room", err)
}

func (s *Store) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	var row roomRow
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if notFound(err) {
		return nil, models.ErrRoomNotFound
	}
	if err != nil {
		return nil, store.Unavailable("get room", err)
	}
	return row.model(), nil
}

func (s *Store) ListParticipants(ctx context.Context, code string) ([]models.Participant, error) {
	var rows []participantRow
	err := s.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("created_at ASC").
		Order("name_key ASC").
		Find(&rows).Error
	if err != nil {
		return nil, store.Unavailable("list participants", err)
	}
	out := make([]models.Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

func (s *Store) GetParticipant(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	var row participantRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if notFound(err) {
		return nil, models.ErrParticipantNotFound
	}
	if err != nil {
		return nil, store.Unavailable("get participant", err)
	}
	p := row.model()
	return &p, nil
}

func (s *Store) FindClaimant(ctx context.Context, code, deviceID string) (*models.Participant, error) {
	var row participantRow
	err := s.db.WithContext(ctx).
		Where("room_code = ? AND claimant_device = ?", code, deviceID).
		Order("claimed_at DESC").
		First(&row).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Unavailable("find claimant", err)
	}
	p := row.model()
	return &p, nil
}

func (s *Store) LatestClaim(ctx context.Context, deviceID string) (*models.Participant, error) {
	var row participantRow
	err := s.db.WithContext(ctx).
		Where("claimant_device = ?", deviceID).
		Order("claimed_at DESC NULLS LAST").
		First(&row).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Unavailable("latest claim", err)
	}
	p := row.model()
	return &p, nil
}

func (s *Store) InsertParticipant(ctx context.Context, p *models.Participant, guard store.Guard) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockRoom(tx, p.RoomCode, guard); err != nil {
			return err
		}
		row := fromParticipant(p)
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %q", models.ErrDuplicateName, p.Name)
			}
			return err
		}
		return nil
	})
	return store.Unavailable("insert participant", err)
}

func (s *Store) DeleteParticipant(ctx context.Context, id uuid.UUID, guard store.Guard) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row participantRow
		err := tx.Where("id = ?", id).First(&row).Error
		if notFound(err) {
			return models.ErrParticipantNotFound
		}
		if err != nil {
			return err
		}
		if _, err := s.lockRoom(tx, row.RoomCode, guard); err != nil {
			return err
		}
		if err := tx.Where("room_code = ? AND (giver_id = ? OR receiver_id = ?)", row.RoomCode, id, id).
			Delete(&exclusionRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&participantRow{}).Error
	})
	return store.Unavailable("delete participant", err)
}

func (s *Store) ClaimParticipant(ctx context.Context, id uuid.UUID, deviceID string) (*models.Participant, error) {
	var claimed models.Participant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row participantRow
		err := tx.Where("id = ?", id).First(&row).Error
		if notFound(err) {
			return models.ErrParticipantNotFound
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		res := tx.Model(&participantRow{}).
			Where("id = ? AND (claimant_device IS NULL OR claimant_device = ?)", id, deviceID).
			Updates(map[string]any{"claimant_device": deviceID, "claimed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrAlreadyClaimed
		}

		err = tx.Model(&participantRow{}).
			Where("room_code = ? AND claimant_device = ? AND id <> ?", row.RoomCode, deviceID, id).
			Updates(map[string]any{"claimant_device": nil, "claimed_at": nil}).Error
		if err != nil {
			return err
		}

		row.ClaimantDevice = &deviceID
		row.ClaimedAt = &now
		claimed = row.model()
		return nil
	})
	if err != nil {
		return nil, store.Unavailable("claim participant", err)
	}
	return &claimed, nil
}

func (s *Store) ReleaseParticipant(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Model(&participantRow{}).
		Where("id = ?", id).
		Updates(map[string]any{"claimant_device": nil, "claimed_at": nil})
	if res.Error != nil {
		return store.Unavailable("release participant", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrParticipantNotFound
	}
	return nil
}

func (s *Store) ListExclusions(ctx context.Context, code string) ([]models.Exclusion, error) {
	var rows []exclusionRow
	err := s.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, store.Unavailable("list exclusions", err)
	}
	out := make([]models.Exclusion, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

func (s *Store) GetExclusion(ctx context.Context, id uuid.UUID) (*models.Exclusion, error) {
	var row exclusionRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if notFound(err) {
		return nil, models.ErrExclusionNotFound
	}
	if err != nil {
		return nil, store.Unavailable("get exclusion", err)
	}
	x := row.model()
	return &x, nil
}

func (s *Store) InsertExclusion(ctx context.Context, x *models.Exclusion, guard store.Guard) (*models.Exclusion, error) {
	var out models.Exclusion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockRoom(tx, x.RoomCode, guard); err != nil {
			return err
		}

		var members int64
		err := tx.Model(&participantRow{}).
			Where("room_code = ? AND id IN ?", x.RoomCode, []uuid.UUID{x.GiverID, x.ReceiverID}).
			Count(&members).Error
		if err != nil {
			return err
		}
		want := int64(2)
		if x.GiverID == x.ReceiverID {
			want = 1
		}
		if members != want {
			return models.ErrParticipantNotFound
		}

		var existing exclusionRow
		err = tx.Where("room_code = ? AND giver_id = ? AND receiver_id = ?", x.RoomCode, x.GiverID, x.ReceiverID).
			First(&existing).Error
		if err == nil {
			out = existing.model()
			return nil
		}
		if !notFound(err) {
			return err
		}

		row := exclusionRow{
			ID:         x.ID,
			RoomCode:   x.RoomCode,
			GiverID:    x.GiverID,
			ReceiverID: x.ReceiverID,
			CreatedAt:  x.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		out = row.model()
		return nil
	})
	if err != nil {
		return nil, store.Unavailable("insert exclusion", err)
	}
	return &out, nil
}

func (s *Store) DeleteExclusion(ctx context.Context, id uuid.UUID, guard store.Guard) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row exclusionRow
		err := tx.Where("id = ?", id).First(&row).Error
		if notFound(err) {
			return models.ErrExclusionNotFound
		}
		if err != nil {
			return err
		}
		if _, err := s.lockRoom(tx, row.RoomCode, guard); err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&exclusionRow{}).Error
	})
	return store.Unavailable("delete exclusion", err)
}

func (s *Store) CommitDraw(ctx context.Context, code string, fn store.DrawFunc) ([]models.Assignment, error) {
	var batch []models.Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.lockRoom(tx, code, nil)
		if err != nil {
			return err
		}

		var prow []participantRow
		if err := tx.Where("room_code = ?", code).Order("created_at ASC").Find(&prow).Error; err != nil {
			return err
		}
		var xrow []exclusionRow
		if err := tx.Where("room_code = ?", code).Find(&xrow).Error; err != nil {
			return err
		}

		participants := make([]models.Participant, 0, len(prow))
		for _, row := range prow {
			participants = append(participants, row.model())
		}
		exclusions := make([]models.Exclusion, 0, len(xrow))
		for _, row := range xrow {
			exclusions = append(exclusions, row.model())
		}

		batch, err = fn(r, participants, exclusions)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return fmt.Errorf("%w: empty assignment batch", models.ErrInsufficientParticipants)
		}

		rows := make([]assignmentRow, 0, len(batch))
		for _, a := range batch {
			rows = append(rows, assignmentRow{
				RoomCode:   a.RoomCode,
				GiverID:    a.GiverID,
				ReceiverID: a.ReceiverID,
				CreatedAt:  a.CreatedAt,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}

		res := tx.Model(&roomRow{}).
			Where("code = ? AND phase = ?", code, string(models.PhaseLobby)).
			Updates(map[string]any{"phase": string(models.PhaseReveal), "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrPhaseViolation
		}
		return nil
	})
	if err != nil {
		return nil, store.Unavailable("commit draw", err)
	}
	return batch, nil
}

func (s *Store) ResetDraw(ctx context.Context, code string, guard store.Guard) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockRoom(tx, code, guard); err != nil {
			return err
		}
		if err := tx.Where("room_code = ?", code).Delete(&assignmentRow{}).Error; err != nil {
			return err
		}
		return tx.Model(&roomRow{}).
			Where("code = ?", code).
			Updates(map[string]any{"phase": string(models.PhaseLobby), "updated_at": time.Now().UTC()}).Error
	})
	return store.Unavailable("reset draw", err)
}

func (s *Store) FindAssignment(ctx context.Context, code string, giverID uuid.UUID) (*models.Assignment, error) {
	var row assignmentRow
	err := s.db.WithContext(ctx).
		Where("room_code = ? AND giver_id = ?", code, giverID).
		First(&row).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Unavailable("find assignment", err)
	}
	a := row.model()
	return &a, nil
}

func (s *Store) ListAssignments(ctx context.Context, code string) ([]models.Assignment, error) {
	var rows []assignmentRow
	if err := s.db.WithContext(ctx).Where("room_code = ?", code).Find(&rows).Error; err != nil {
		return nil, store.Unavailable("list assignments", err)
	}
	out := make([]models.Assignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
