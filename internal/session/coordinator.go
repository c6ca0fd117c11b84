// Package session is the facade the HTTP handlers and the CLI drive. It
// composes the identity registry, the draw generator and the room phase
// rules over a store, and announces every successful mutation.
//
// The coordinator keeps no room state of its own. Callers re-read through
// Snapshot (or on a Watch event) after each mutation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bananalabs-oss/stocking/internal/draw"
	"github.com/bananalabs-oss/stocking/internal/identity"
	"github.com/bananalabs-oss/stocking/internal/metrics"
	"github.com/bananalabs-oss/stocking/internal/models"
	"github.com/bananalabs-oss/stocking/internal/notify"
	"github.com/bananalabs-oss/stocking/internal/room"
	"github.com/bananalabs-oss/stocking/internal/store"
	"github.com/google/uuid"
)

type Options struct {
	// MinParticipants defaults to models.DefaultMinPlayers and is never below 2.
	MinParticipants int
	// DrawAttempts defaults to draw.DefaultMaxAttempts.
	DrawAttempts int
	// Notifier defaults to notify.Nop.
	Notifier notify.Notifier
	// Generator overrides the draw generator, mainly for seeded tests.
	Generator *draw.Generator
}

type Coordinator struct {
	store           store.Store
	registry        *identity.Registry
	notifier        notify.Notifier
	minParticipants int

	genMu sync.Mutex
	gen   *draw.Generator
}

// Session is what a device resolves to: its room and the slot it holds.
type Session struct {
	Room        models.Room        `json:"room"`
	Participant models.Participant `json:"participant"`
}

// RoomState is one authoritative read of everything a lobby screen shows.
type RoomState struct {
	Room         models.Room          `json:"room"`
	Participants []models.Participant `json:"participants"`
	Exclusions   []models.Exclusion   `json:"exclusions"`
}

func New(s store.Store, opts Options) *Coordinator {
	minimum := opts.MinParticipants
	if minimum == 0 {
		minimum = models.DefaultMinPlayers
	}
	if minimum < 2 {
		minimum = 2
	}

	n := opts.Notifier
	if n == nil {
		n = notify.Nop{}
	}

	gen := opts.Generator
	if gen == nil {
		gen = &draw.Generator{MaxAttempts: opts.DrawAttempts}
	}

	return &Coordinator{
		store:           s,
		registry:        identity.NewRegistry(s),
		notifier:        n,
		minParticipants: minimum,
		gen:             gen,
	}
}

func (c *Coordinator) MinParticipants() int {
	return c.minParticipants
}

func (c *Coordinator) changed(ctx context.Context, code string) {
	if err := c.notifier.Publish(ctx, code); err != nil {
		log.Printf("session: failed to publish change for room %s: %v", code, err)
	}
}

func requireDevice(deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: missing device id", models.ErrNotAuthorized)
	}
	return nil
}

// loadRoom normalizes code and confirms the room exists.
func (c *Coordinator) loadRoom(ctx context.Context, code string) (*models.Room, error) {
	code, err := identity.NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	return c.store.GetRoom(ctx, code)
}

// authorize returns the admin participant deviceID holds in room code.
func (c *Coordinator) authorize(ctx context.Context, deviceID, code string) (*models.Participant, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	actor, err := c.store.FindClaimant(ctx, code, deviceID)
	if err != nil {
		return nil, err
	}
	if err := room.Authorize(actor, code); err != nil {
		return nil, err
	}
	return actor, nil
}

func (c *Coordinator) CreateRoom(ctx context.Context, deviceID, adminName string) (*Session, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	r, admin, err := c.registry.CreateRoomWithAdmin(ctx, deviceID, adminName)
	if err != nil {
		return nil, err
	}
	metrics.RecordRoomCreated()
	log.Printf("session: room %s created by %q", r.Code, admin.Name)
	c.changed(ctx, r.Code)
	return &Session{Room: *r, Participant: *admin}, nil
}

// JoinRoomCheck validates a typed code. It does not create a participant;
// the device then claims one of the room's available slots.
func (c *Coordinator) JoinRoomCheck(ctx context.Context, code string) (*models.Room, error) {
	return c.loadRoom(ctx, code)
}

func (c *Coordinator) RoomPhase(ctx context.Context, code string) (models.Phase, error) {
	r, err := c.loadRoom(ctx, code)
	if err != nil {
		return "", err
	}
	return r.Phase, nil
}

func (c *Coordinator) Snapshot(ctx context.Context, code string) (*RoomState, error) {
	r, err := c.loadRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	participants, err := c.store.ListParticipants(ctx, r.Code)
	if err != nil {
		return nil, err
	}
	exclusions, err := c.store.ListExclusions(ctx, r.Code)
	if err != nil {
		return nil, err
	}
	return &RoomState{Room: *r, Participants: participants, Exclusions: exclusions}, nil
}

func (c *Coordinator) ListParticipants(ctx context.Context, code string) ([]models.Participant, error) {
	r, err := c.loadRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.store.ListParticipants(ctx, r.Code)
}

func (c *Coordinator) ListExclusions(ctx context.Context, code string) ([]models.Exclusion, error) {
	r, err := c.loadRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.store.ListExclusions(ctx, r.Code)
}

func (c *Coordinator) AddParticipant(ctx context.Context, deviceID, code, name string) (*models.Participant, error) {
	r, err := c.loadRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if _, err := c.authorize(ctx, deviceID, r.Code); err != nil {
		return nil, err
	}
	p, err := c.registry.AddParticipant(ctx, r.Code, name, room.RequireLobby)
	if err != nil {
		return nil, err
	}
	c.changed(ctx, r.Code)
	return p, nil
}

func (c *Coordinator) Claim(ctx context.Context, deviceID string, participantID uuid.UUID) (*models.Participant, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	p, err := c.registry.Claim(ctx, participantID, deviceID)
	switch {
	case err == nil:
		metrics.RecordClaim("success")
	case errors.Is(err, models.ErrAlreadyClaimed):
		metrics.RecordClaim("already_claimed")
		return nil, err
	default:
		metrics.RecordClaim("error")
		return nil, err
	}
	c.changed(ctx, p.RoomCode)
	return p, nil
}

// Release frees the slot for any device. It is how a user says "this is not me".
func (c *Coordinator) Release(ctx context.Context, participantID uuid.UUID) error {
	p, err := c.store.GetParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if err := c.registry.Release(ctx, participantID); err != nil {
		return err
	}
	c.changed(ctx, p.RoomCode)
	return nil
}

func (c *Coordinator) RemoveParticipant(ctx context.Context, deviceID string, participantID uuid.UUID) error {
	p, err := c.store.GetParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if _, err := c.authorize(ctx, deviceID, p.RoomCode); err != nil {
		return err
	}
	if p.IsAdmin {
		return fmt.Errorf("%w: the admin slot cannot be removed", models.ErrNotAuthorized)
	}
	if err := c.registry.Remove(ctx, participantID, room.RequireLobby); err != nil {
		return err
	}
	c.changed(ctx, p.RoomCode)
	return nil
}

func (c *Coordinator) AddExclusion(ctx context.Context, deviceID, code string, giverID, receiverID uuid.UUID) (*models.Exclusion, error) {
	r, err := c.loadRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if _, err := c.authorize(ctx, deviceID, r.Code); err != nil {
		return nil, err
	}
	x, err := c.store.InsertExclusion(ctx, &models.Exclusion{
		ID:         uuid.New(),
		RoomCode:   r.Code,
		GiverID:    giverID,
		ReceiverID: receiverID,
		CreatedAt:  time.Now().UTC(),
	}, room.RequireLobby)
	if err != nil {
		return nil, err
	}
	c.changed(ctx, r.Code)
	return x, nil
}

func (c *Coordinator) RemoveExclusion(ctx context.Context, deviceID string, exclusionID uuid.UUID) error {
	x, err := c.store.GetExclusion(ctx, exclusionID)
	if err != nil {
		return err
	}
	if _, err := c.authorize(ctx, deviceID, x.RoomCode); err != nil {
		return err
	}
	if err := c.store.DeleteExclusion(ctx, exclusionID, room.RequireLobby); err != nil {
		return err
	}
	c.changed(ctx, x.RoomCode)
	return nil
}

// StartDraw generates and stores the assignment batch and moves the room to
// REVEAL in one store transaction. On any failure nothing is written.
func (c *Coordinator) StartDraw(ctx context.Context, deviceID, code string) error {
	r, err := c.loadRoom(ctx, code)
	if err != nil {
		return err
	}
	if _, err := c.authorize(ctx, deviceID, r.Code); err != nil {
		return err
	}

	start := time.Now()
	_, err = c.store.CommitDraw(ctx, r.Code, c.plan)
	metrics.RecordDraw(drawResult(err), time.Since(start))
	if err != nil {
		return err
	}

	log.Printf("session: room %s drawn", r.Code)
	c.changed(ctx, r.Code)
	return nil
}

func (c *Coordinator) plan(r *models.Room, participants []models.Participant, exclusions []models.Exclusion) ([]models.Assignment, error) {
	if _, err := room.Next(r.Phase, room.EventDraw); err != nil {
		return nil, err
	}
	if err := room.CheckDrawable(len(participants), c.minParticipants); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
	}
	forbidden := make([]draw.Pair, 0, len(exclusions))
	for _, x := range exclusions {
		forbidden = append(forbidden, draw.Pair{Giver: x.GiverID, Receiver: x.ReceiverID})
	}

	c.genMu.Lock()
	pairs, err := c.gen.Generate(ids, forbidden)
	c.genMu.Unlock()
	if errors.Is(err, draw.ErrUnsatisfiable) {
		return nil, fmt.Errorf("%w: %v", models.ErrConstraintUnsatisfiable, err)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := make([]models.Assignment, 0, len(pairs))
	for _, p := range pairs {
		batch = append(batch, models.Assignment{
			RoomCode:   r.Code,
			GiverID:    p.Giver,
			ReceiverID: p.Receiver,
			CreatedAt:  now,
		})
	}
	return batch, nil
}

func drawResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, models.ErrConstraintUnsatisfiable):
		return "unsatisfiable"
	case errors.Is(err, models.ErrInsufficientParticipants):
		return "insufficient_participants"
	case errors.Is(err, models.ErrPhaseViolation):
		return "phase_violation"
	}
	return "error"
}

// Reset deletes the batch and reopens the lobby in one store transaction.
func (c *Coordinator) Reset(ctx context.Context, deviceID, code string) error {
	r, err := c.loadRoom(ctx, code)
	if err != nil {
		return err
	}
	if _, err := c.authorize(ctx, deviceID, r.Code); err != nil {
		return err
	}
	err = c.store.ResetDraw(ctx, r.Code, func(locked *models.Room) error {
		_, err := room.Next(locked.Phase, room.EventReset)
		return err
	})
	if err != nil {
		return err
	}
	log.Printf("session: room %s reset", r.Code)
	c.changed(ctx, r.Code)
	return nil
}

// MyReceiver returns who participantID gives to, or nil before the draw.
// Only the device holding participantID may ask.
func (c *Coordinator) MyReceiver(ctx context.Context, deviceID, code string, participantID uuid.UUID) (*models.Participant, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	r, err := c.loadRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	me, err := c.store.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if me.RoomCode != r.Code {
		return nil, models.ErrParticipantNotFound
	}
	if !me.HeldBy(deviceID) {
		return nil, models.ErrNotAuthorized
	}

	a, err := c.store.FindAssignment(ctx, r.Code, participantID)
	if err != nil || a == nil {
		return nil, err
	}
	return c.store.GetParticipant(ctx, a.ReceiverID)
}

// ResolveSession restores "who am I" for a reconnecting device, or nil.
func (c *Coordinator) ResolveSession(ctx context.Context, deviceID string) (*Session, error) {
	p, err := c.registry.ResolveSession(ctx, deviceID)
	if err != nil || p == nil {
		return nil, err
	}
	r, err := c.store.GetRoom(ctx, p.RoomCode)
	if err != nil {
		return nil, err
	}
	return &Session{Room: *r, Participant: *p}, nil
}

// Assignments exposes the whole batch for service-to-service inspection.
func (c *Coordinator) Assignments(ctx context.Context, code string) ([]models.Assignment, error) {
	r, err := c.loadRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.store.ListAssignments(ctx, r.Code)
}

// Watch streams change events for the room until ctx is done.
func (c *Coordinator) Watch(ctx context.Context, code string) (<-chan notify.Event, error) {
	r, err := c.loadRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.notifier.Subscribe(ctx, r.Code)
}
