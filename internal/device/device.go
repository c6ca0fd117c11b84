// Package device handles the opaque identifier a client presents on every
// request. The server only checks its shape; the CLI persists one per user.
package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Header carries the device id on HTTP requests.
const Header = "X-Device-ID"

var ErrInvalid = errors.New("device id must be a UUID")

func New() string {
	return uuid.NewString()
}

// Parse validates id and returns its canonical lower-case form.
func Parse(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalid, id)
	}
	return u.String(), nil
}

// FileStore keeps a single device id in a file.
type FileStore struct {
	Path string
}

// DefaultPath is $XDG_CONFIG_HOME/stocking/device or the OS equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stocking", "device"), nil
}

// Load returns the stored id, creating and saving a new one on first use.
func (f FileStore) Load() (string, error) {
	raw, err := os.ReadFile(f.Path)
	if err == nil {
		return Parse(string(raw))
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	id := New()
	if err := f.Save(id); err != nil {
		return "", err
	}
	return id, nil
}

// Save writes id atomically so a crash never leaves a half-written file.
func (f FileStore) Save(id string) error {
	id, err := Parse(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".device-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(id + "\n"); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}
