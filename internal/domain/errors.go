package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrStore marks infrastructure failures. Callers may retry these.
	ErrStore = errors.New("store unavailable")
)

// StoreError wraps err so that errors.Is(err, ErrStore) holds.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
