package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters for stored admin credentials.
const (
	PasswordIterations = 100_000
	PasswordSaltBytes  = 32
	PasswordKeyBytes   = 32
)

// HashPassword derives a credential from password using PBKDF2-HMAC-SHA256
// with a fresh random salt. The result has the form
// base64(salt):base64(key).
func HashPassword(password string) (string, error) {
	salt := make([]byte, PasswordSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, PasswordIterations, PasswordKeyBytes, sha256.New)
	return base64.StdEncoding.EncodeToString(salt) + ":" + base64.StdEncoding.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches credential. A malformed
// credential never matches.
func VerifyPassword(password, credential string) bool {
	saltB64, keyB64, ok := strings.Cut(credential, ":")
	if !ok {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, PasswordIterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
