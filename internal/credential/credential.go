// Package credential hashes and verifies user passwords.
//
// Stored hashes have the form "<salt>$<hex digest>", where the digest is
// PBKDF2-HMAC-SHA256 over the password with the salt text as the PBKDF2 salt.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	Iterations = 200_000
	KeyLength  = 32
	saltBytes  = 16
	separator  = "$"
)

func Hash(password string) (string, error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return HashWithSalt(password, hex.EncodeToString(raw)), nil
}

func HashWithSalt(password, salt string) string {
	return salt + separator + digest(password, salt)
}

// Verify reports whether password matches stored. Malformed stored values
// never match.
func Verify(password, stored string) bool {
	salt, want, ok := strings.Cut(stored, separator)
	if !ok {
		return false
	}
	got := digest(password, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func digest(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), Iterations, KeyLength, sha256.New)
	return hex.EncodeToString(key)
}
