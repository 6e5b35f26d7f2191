package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// codeAlphabet omits characters that are easy to misread when typed from an email (0/O, 1/I/L).
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// MinCodeLength keeps codes long enough that they are unguessable as a lookup key.
const MinCodeLength = 8

// NewCode generates a cryptographically random code of n characters drawn from codeAlphabet.
func NewCode(n int) (string, error) {
	if n < MinCodeLength {
		n = MinCodeLength
	}
	limit := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b), nil
}

// NormalizeCode maps a code as typed by a user onto the stored form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
