// Package invite generates invite codes and checks them against their owner.
package invite

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// CodeLength is the fixed length of every invite code.
	CodeLength = 8
	// CodeAlphabet holds the characters a code is drawn from.
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator produces candidate invite codes. Candidates are not guaranteed
// to be unique; callers check them against the store.
type Generator func() (string, error)

// GenerateCandidate draws CodeLength characters uniformly from CodeAlphabet
// using crypto/rand.
func GenerateCandidate() (string, error) {
	code, err := gonanoid.Generate(CodeAlphabet, CodeLength)
	if err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	return code, nil
}

// WellFormed reports whether code could have been produced by GenerateCandidate.
func WellFormed(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
