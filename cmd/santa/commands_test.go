package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/bananalabs-oss/stocking/internal/database"
	"github.com/bananalabs-oss/stocking/internal/rooms"
	"github.com/bananalabs-oss/stocking/internal/router"
	"github.com/bananalabs-oss/stocking/internal/session"
	"github.com/gin-gonic/gin"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect("sqlite://" + filepath.Join(t.TempDir(), "santa.db"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	coord := session.New(database.NewStore(db), session.Options{})
	srv := httptest.NewServer(router.Setup(rooms.NewHandler(coord, "http://santa.test"), router.Options{
		ServiceToken: "svc",
		CORSOrigins:  []string{"*"},
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// santa runs one CLI invocation as the device stored in deviceFile.
func santa(t *testing.T, server, deviceFile string, args ...string) (string, error) {
	t.Helper()
	cmd := newCmd(&Config{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", server, "--device-file", deviceFile}, args...))
	err := cmd.Execute()
	return out.String(), err
}

var codePattern = regexp.MustCompile(`Room ([0-9A-Z]{4}) created`)

func TestSantaExchange(t *testing.T) {
	server := newTestServer(t)
	dir := t.TempDir()
	mom := filepath.Join(dir, "mom")
	kid := filepath.Join(dir, "kid")

	out, err := santa(t, server, mom, "create", "Mom")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m := codePattern.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no room code in %q", out)
	}
	code := m[1]

	for _, name := range []string{"Dad", "Kid"} {
		if _, err := santa(t, server, mom, "add", code, name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	if _, err := santa(t, server, mom, "exclude", code, "Dad", "Mom"); err != nil {
		t.Fatalf("exclude: %v", err)
	}

	out, err = santa(t, server, kid, "join", strings.ToLower(code))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !strings.Contains(out, "Dad never gives to Mom") {
		t.Fatalf("expected exclusion in listing, got %q", out)
	}

	if _, err := santa(t, server, kid, "--room", code, "claim", "kid"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := santa(t, server, mom, "--room", code, "claim", "Kid"); err == nil {
		t.Fatalf("expected a second device to be refused")
	}

	out, _ = santa(t, server, kid, "whoami")
	if !strings.Contains(out, "Kid (participant) in room "+code) {
		t.Fatalf("unexpected whoami %q", out)
	}

	out, _ = santa(t, server, kid, "reveal")
	if !strings.Contains(out, "not been drawn") {
		t.Fatalf("expected no receiver before draw, got %q", out)
	}

	if _, err := santa(t, server, kid, "draw", code); err == nil {
		t.Fatalf("expected non-admin draw to fail")
	}
	if _, err := santa(t, server, mom, "draw", code); err != nil {
		t.Fatalf("draw: %v", err)
	}

	out, err = santa(t, server, kid, "reveal")
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if !strings.Contains(out, "you are giving a gift to") || strings.Contains(out, "gift to Kid.") {
		t.Fatalf("unexpected reveal %q", out)
	}

	if _, err := santa(t, server, mom, "reset", code); err != nil {
		t.Fatalf("reset: %v", err)
	}
	out, _ = santa(t, server, mom, "list")
	if !strings.Contains(out, "(LOBBY)") {
		t.Fatalf("expected lobby after reset, got %q", out)
	}
}

func TestSantaRejectsBadServer(t *testing.T) {
	_, err := santa(t, "ftp://nowhere", filepath.Join(t.TempDir(), "device"), "whoami")
	if err == nil || !strings.Contains(err.Error(), "invalid server url") {
		t.Fatalf("expected invalid server url, got %v", err)
	}
}
