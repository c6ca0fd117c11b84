package backend

import (
	"context"
	"path/filepath"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		url  string
		want Kind
	}{
		{"sqlite://stocking.db", KindSQLite},
		{"postgres://u:p@localhost/stocking", KindPostgres},
		{"postgresql://localhost/stocking?sslmode=disable", KindPostgres},
	}
	for _, tt := range tests {
		got, err := KindOf(tt.url)
		if err != nil || got != tt.want {
			t.Fatalf("%s: expected %s, got %s (%v)", tt.url, tt.want, got, err)
		}
	}
	if _, err := KindOf("mysql://localhost/stocking"); err == nil {
		t.Fatalf("expected an error for an unsupported scheme")
	}
}

func TestOpenSQLite(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "backend.db")
	st, kind, err := Open(context.Background(), url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	if kind != KindSQLite {
		t.Fatalf("expected sqlite, got %s", kind)
	}

	// Migrations are idempotent.
	again, _, err := Open(context.Background(), url)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again.Close()
}
