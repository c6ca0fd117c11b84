package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bananalabs-oss/stocking/internal/models"
	"github.com/bananalabs-oss/stocking/internal/store"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store is the local SQLite implementation of store.Store.
type Store struct {
	db *bun.DB
}

var _ store.Store = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func isUnique(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

func (s *Store) lockRoom(ctx context.Context, tx bun.Tx, code string, guard store.Guard) (*models.Room, error) {
	r := new(models.Room)
	err := tx.NewSelect().
		Model(r).
		Where("code = ?", code).
		Scan(ctx)
	if noRows(err) {
		return nil, models.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (s *Store) CreateRoom(ctx context.Context, r *models.Room, admin *models.Participant) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(r).Exec(ctx); err != nil {
			if isUnique(err) {
				return store.ErrCodeTaken
			}
			return err
		}
		if _, err := tx.NewInsert().Model(admin).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
	return store.Unavailable("create room", err)
}

func (s *Store) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	r := new(models.Room)
	err := s.db.NewSelect().
		Model(r).
		Where("code = ?", code).
		Scan(ctx)
	if noRows(err) {
		return nil, models.ErrRoomNotFound
	}
	if err != nil {
		return nil, store.Unavailable("get room", err)
	}
	return r, nil
}

func (s *Store) ListParticipants(ctx context.Context, code string) ([]models.Participant, error) {
	var out []models.Participant
	err := s.db.NewSelect().
		Model(&out).
		Where("room_code = ?", code).
		Order("created_at ASC", "name_key ASC").
		Scan(ctx)
	if err != nil && !noRows(err) {
		return nil, store.Unavailable("list participants", err)
	}
	return out, nil
}

func (s *Store) GetParticipant(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	p := new(models.Participant)
	err := s.db.NewSelect().
		Model(p).
		Where("id = ?", id).
		Scan(ctx)
	if noRows(err) {
		return nil, models.ErrParticipantNotFound
	}
	if err != nil {
		return nil, store.Unavailable("get participant", err)
	}
	return p, nil
}

func (s *Store) FindClaimant(ctx context.Context, code, deviceID string) (*models.Participant, error) {
	p := new(models.Participant)
	err := s.db.NewSelect().
		Model(p).
		Where("room_code = ?", code).
		Where("claimant_device = ?", deviceID).
		OrderExpr("claimed_at DESC").
		Limit(1).
		Scan(ctx)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Unavailable("find claimant", err)
	}
	return p, nil
}

func (s *Store) LatestClaim(ctx context.Context, deviceID string) (*models.Participant, error) {
	p := new(models.Participant)
	err := s.db.NewSelect().
		Model(p).
		Where("claimant_device = ?", deviceID).
		OrderExpr("claimed_at DESC").
		Limit(1).
		Scan(ctx)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Unavailable("latest claim", err)
	}
	return p, nil
}

func (s *Store) InsertParticipant(ctx context.Context, p *models.Participant, guard store.Guard) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.lockRoom(ctx, tx, p.RoomCode, guard); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(p).Exec(ctx); err != nil {
			if isUnique(err) {
				return fmt.Errorf("%w: %q", models.ErrDuplicateName, p.Name)
			}
			return err
		}
		return nil
	})
	return store.Unavailable("insert participant", err)
}

func (s *Store) DeleteParticipant(ctx context.Context, id uuid.UUID, guard store.Guard) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		p := new(models.Participant)
		err := tx.NewSelect().Model(p).Where("id = ?", id).Scan(ctx)
		if noRows(err) {
			return models.ErrParticipantNotFound
		}
		if err != nil {
			return err
		}
		if _, err := s.lockRoom(ctx, tx, p.RoomCode, guard); err != nil {
			return err
		}

		_, err = tx.NewDelete().
			Model((*models.Exclusion)(nil)).
			Where("room_code = ?", p.RoomCode).
			Where("(giver_id = ? OR receiver_id = ?)", id, id).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewDelete().
			Model((*models.Participant)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
	return store.Unavailable("delete participant", err)
}

func (s *Store) ClaimParticipant(ctx context.Context, id uuid.UUID, deviceID string) (*models.Participant, error) {
	claimed := new(models.Participant)
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(claimed).Where("id = ?", id).Scan(ctx)
		if noRows(err) {
			return models.ErrParticipantNotFound
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		res, err := tx.NewUpdate().
			Model((*models.Participant)(nil)).
			Set("claimant_device = ?", deviceID).
			Set("claimed_at = ?", now).
			Where("id = ?", id).
			Where("(claimant_device IS NULL OR claimant_device = ?)", deviceID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if rowsAffected(res) == 0 {
			return models.ErrAlreadyClaimed
		}

		_, err = tx.NewUpdate().
			Model((*models.Participant)(nil)).
			Set("claimant_device = NULL").
			Set("claimed_at = NULL").
			Where("room_code = ?", claimed.RoomCode).
			Where("claimant_device = ?", deviceID).
			Where("id <> ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}

		claimed.ClaimantDevice = &deviceID
		claimed.ClaimedAt = &now
		return nil
	})
	if err != nil {
		return nil, store.Unavailable("claim participant", err)
	}
	return claimed, nil
}

func (s *Store) ReleaseParticipant(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.NewUpdate().
		Model((*models.Participant)(nil)).
		Set("claimant_device = NULL").
		Set("claimed_at = NULL").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return store.Unavailable("release participant", err)
	}
	if rowsAffected(res) == 0 {
		return models.ErrParticipantNotFound
	}
	return nil
}

func (s *Store) ListExclusions(ctx context.Context, code string) ([]models.Exclusion, error) {
	var out []models.Exclusion
	err := s.db.NewSelect().
		Model(&out).
		Where("room_code = ?", code).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil && !noRows(err) {
		return nil, store.Unavailable("list exclusions", err)
	}
	return out, nil
}

func (s *Store) GetExclusion(ctx context.Context, id uuid.UUID) (*models.Exclusion, error) {
	x := new(models.Exclusion)
	err := s.db.NewSelect().
		Model(x).
		Where("id = ?", id).
		Scan(ctx)
	if noRows(err) {
		return nil, models.ErrExclusionNotFound
	}
	if err != nil {
		return nil, store.Unavailable("get exclusion", err)
	}
	return x, nil
}

func (s *Store) InsertExclusion(ctx context.Context, x *models.Exclusion, guard store.Guard) (*models.Exclusion, error) {
	out := x
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.lockRoom(ctx, tx, x.RoomCode, guard); err != nil {
			return err
		}

		members, err := tx.NewSelect().
			Model((*models.Participant)(nil)).
			Where("room_code = ?", x.RoomCode).
			Where("id IN (?)", bun.In([]uuid.UUID{x.GiverID, x.ReceiverID})).
			Count(ctx)
		if err != nil {
			return err
		}
		want := 2
		if x.GiverID == x.ReceiverID {
			want = 1
		}
		if members != want {
			return models.ErrParticipantNotFound
		}

		existing := new(models.Exclusion)
		err = tx.NewSelect().
			Model(existing).
			Where("room_code = ?", x.RoomCode).
			Where("giver_id = ?", x.GiverID).
			Where("receiver_id = ?", x.ReceiverID).
			Scan(ctx)
		if err == nil {
			out = existing
			return nil
		}
		if !noRows(err) {
			return err
		}

		_, err = tx.NewInsert().Model(x).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, store.Unavailable("insert exclusion", err)
	}
	return out, nil
}

func (s *Store) DeleteExclusion(ctx context.Context, id uuid.UUID, guard store.Guard) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		x := new(models.Exclusion)
		err := tx.NewSelect().Model(x).Where("id = ?", id).Scan(ctx)
		if noRows(err) {
			return models.ErrExclusionNotFound
		}
		if err != nil {
			return err
		}
		if _, err := s.lockRoom(ctx, tx, x.RoomCode, guard); err != nil {
			return err
		}
		_, err = tx.NewDelete().
			Model((*models.Exclusion)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
	return store.Unavailable("delete exclusion", err)
}

func (s *Store) CommitDraw(ctx context.Context, code string, fn store.DrawFunc) ([]models.Assignment, error) {
	var batch []models.Assignment
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		r, err := s.lockRoom(ctx, tx, code, nil)
		if err != nil {
			return err
		}

		var participants []models.Participant
		err = tx.NewSelect().
			Model(&participants).
			Where("room_code = ?", code).
			Order("created_at ASC").
			Scan(ctx)
		if err != nil && !noRows(err) {
			return err
		}

		var exclusions []models.Exclusion
		err = tx.NewSelect().
			Model(&exclusions).
			Where("room_code = ?", code).
			Scan(ctx)
		if err != nil && !noRows(err) {
			return err
		}

		batch, err = fn(r, participants, exclusions)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return fmt.Errorf("%w: empty assignment batch", models.ErrInsufficientParticipants)
		}

		if _, err := tx.NewInsert().Model(&batch).Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewUpdate().
			Model((*models.Room)(nil)).
			Set("phase = ?", models.PhaseReveal).
			Set("updated_at = ?", time.Now().UTC()).
			Where("code = ?", code).
			Where("phase = ?", models.PhaseLobby).
			Exec(ctx)
		if err != nil {
			return err
		}
		if rowsAffected(res) == 0 {
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
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.lockRoom(ctx, tx, code, guard); err != nil {
			return err
		}

		_, err := tx.NewDelete().
			Model((*models.Assignment)(nil)).
			Where("room_code = ?", code).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*models.Room)(nil)).
			Set("phase = ?", models.PhaseLobby).
			Set("updated_at = ?", time.Now().UTC()).
			Where("code = ?", code).
			Exec(ctx)
		return err
	})
	return store.Unavailable("reset draw", err)
}

func (s *Store) FindAssignment(ctx context.Context, code string, giverID uuid.UUID) (*models.Assignment, error) {
	a := new(models.Assignment)
	err := s.db.NewSelect().
		Model(a).
		Where("room_code = ?", code).
		Where("giver_id = ?", giverID).
		Scan(ctx)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Unavailable("find assignment", err)
	}
	return a, nil
}

func (s *Store) ListAssignments(ctx context.Context, code string) ([]models.Assignment, error) {
	var out []models.Assignment
	err := s.db.NewSelect().
		Model(&out).
		Where("room_code = ?", code).
		Scan(ctx)
	if err != nil && !noRows(err) {
		return nil, store.Unavailable("list assignments", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
