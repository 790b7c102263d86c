package service

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet excludes visually ambiguous characters (I, L, O, 0, 1) so
// applicants can reliably read their code back over voice chat.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// codeLength is the number of characters in an application code.
const codeLength = 6

// NewApplicationCode generates a random 6-character application code from
// the restricted alphabet.
func NewApplicationCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate application code: %w", err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
