package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bananalabs-oss/stocking/internal/database"
	"github.com/bananalabs-oss/stocking/internal/device"
	"github.com/bananalabs-oss/stocking/internal/models"
	"github.com/bananalabs-oss/stocking/internal/rooms"
	"github.com/bananalabs-oss/stocking/internal/router"
	"github.com/bananalabs-oss/stocking/internal/session"
	"github.com/gin-gonic/gin"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect("sqlite://" + filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	coord := session.New(database.NewStore(db), session.Options{})
	h := rooms.NewHandler(coord, "http://santa.test")
	srv := httptest.NewServer(router.Setup(h, router.Options{ServiceToken: "svc", CORSOrigins: []string{"*"}}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestClientRoundTrip(t *testing.T) {
	base := newTestServer(t)
	ctx := context.Background()

	admin := New(base, device.New())
	kid := New(base, device.New())

	s, err := admin.CreateRoom(ctx, "Mom")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	code := s.Room.Code

	for _, name := range []string{"Dad", "Kid"} {
		if _, err := admin.AddParticipant(ctx, code, name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	if _, err := admin.AddParticipant(ctx, code, "KID"); !IsCode(err, "duplicate_name") {
		t.Fatalf("expected duplicate_name, got %v", err)
	}

	kidID, err := kid.ResolveParticipant(ctx, code, "  kid ")
	if err != nil {
		t.Fatalf("resolve by name: %v", err)
	}
	if _, err := kid.ResolveParticipant(ctx, code, "Nobody"); !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
	if same, err := kid.ResolveParticipant(ctx, "", kidID.String()); err != nil || same != kidID {
		t.Fatalf("expected id to pass through, got %s (%v)", same, err)
	}

	if _, err := kid.Claim(ctx, kidID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	whoami, err := kid.Session(ctx)
	if err != nil || whoami == nil || whoami.Participant.ID != kidID {
		t.Fatalf("expected session for kid, got %#v (%v)", whoami, err)
	}

	dadID, _ := admin.ResolveParticipant(ctx, code, "Dad")
	x, err := admin.AddExclusion(ctx, code, dadID, s.Participant.ID)
	if err != nil {
		t.Fatalf("exclude: %v", err)
	}
	room, err := admin.Room(ctx, code)
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if len(room.Exclusions) != 1 || room.NameOf(room.Exclusions[0].GiverID) != "Dad" {
		t.Fatalf("unexpected exclusions %#v", room.Exclusions)
	}
	if err := admin.RemoveExclusion(ctx, x.ID); err != nil {
		t.Fatalf("unexclude: %v", err)
	}

	if err := kid.Draw(ctx, code); !IsCode(err, "not_authorized") {
		t.Fatalf("expected not_authorized, got %v", err)
	}
	if err := admin.Draw(ctx, code); err != nil {
		t.Fatalf("draw: %v", err)
	}

	receiver, err := kid.Receiver(ctx, code, kidID)
	if err != nil || receiver == nil {
		t.Fatalf("expected receiver, got %#v (%v)", receiver, err)
	}

	if err := admin.Reset(ctx, code); err != nil {
		t.Fatalf("reset: %v", err)
	}
	room, _ = admin.Room(ctx, code)
	if room.Phase != models.PhaseLobby {
		t.Fatalf("expected LOBBY, got %s", room.Phase)
	}

	if err := kid.Release(ctx, kidID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := admin.RemoveParticipant(ctx, kidID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	none, err := kid.Session(ctx)
	if err != nil || none != nil {
		t.Fatalf("expected no session, got %#v (%v)", none, err)
	}
}

func TestAPIError(t *testing.T) {
	base := newTestServer(t)
	c := New(base, device.New())

	_, err := c.Room(context.Background(), "ZZZZ")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "room_not_found" {
		t.Fatalf("unexpected error %#v", apiErr)
	}
}
