package device

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	id, err := Parse("  0E6B2C7A-3C47-4E4B-9C55-6A1F2B3C4D5E ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != "0e6b2c7a-3c47-4e4b-9c55-6a1f2b3c4d5e" {
		t.Fatalf("expected canonical form, got %q", id)
	}
	for _, bad := range []string{"", "phone", "1234"} {
		if _, err := Parse(bad); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%q: expected ErrInvalid, got %v", bad, err)
		}
	}
}

func TestFileStoreCreatesOnce(t *testing.T) {
	fs := FileStore{Path: filepath.Join(t.TempDir(), "nested", "device")}

	first, err := fs.Load()
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := fs.Load()
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if first != second {
		t.Fatalf("expected a stable id, got %s then %s", first, second)
	}

	raw, _ := os.ReadFile(fs.Path)
	if strings.TrimSpace(string(raw)) != first {
		t.Fatalf("file holds %q, want %q", raw, first)
	}
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device")
	if err := os.WriteFile(path, []byte("not-a-uuid"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := (FileStore{Path: path}).Load(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if err := (FileStore{Path: path}).Save("nope"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid on save, got %v", err)
	}
}
