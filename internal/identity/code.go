package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/bananalabs-oss/stocking/internal/models"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewCode returns a fresh base-36 room code of models.CodeLength characters.
func NewCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, models.CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// NormalizeCode upper-cases and validates a user-typed room code.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != models.CodeLength {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidCode, code)
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			return "", fmt.Errorf("%w: %q", models.ErrInvalidCode, code)
		}
	}
	return code, nil
}

// NormalizeName trims a display name and returns it with its uniqueness key.
func NormalizeName(name string) (display, key string, err error) {
	display = strings.Join(strings.Fields(name), " ")
	if display == "" {
		return "", "", fmt.Errorf("%w: name is empty", models.ErrInvalidName)
	}
	if utf8.RuneCountInString(display) > models.MaxNameLength {
		return "", "", fmt.Errorf("%w: name longer than %d characters", models.ErrInvalidName, models.MaxNameLength)
	}
	return display, strings.ToLower(display), nil
}
