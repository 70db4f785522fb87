package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor used when none is configured.
	DefaultIterations = 10_000
	// DefaultSaltLength is the number of letters in a generated salt.
	DefaultSaltLength = 10

	keyLength = sha256.Size
)

const saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Hasher derives salted password digests. The zero value is not usable;
// construct it with NewHasher.
type Hasher struct {
	iterations int
	saltLength int
}

// NewHasher returns a Hasher. Non-positive arguments fall back to the defaults.
func NewHasher(iterations, saltLength int) *Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if saltLength <= 0 {
		saltLength = DefaultSaltLength
	}
	return &Hasher{iterations: iterations, saltLength: saltLength}
}

// Hash returns the hex-encoded PBKDF2-HMAC-SHA256 digest of password keyed by salt.
func (h *Hasher) Hash(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), h.iterations, keyLength, sha256.New)
	return hex.EncodeToString(key)
}

// Verify recomputes the digest of candidate and compares it to expected in
// constant time.
func (h *Hasher) Verify(candidate, salt, expected string) bool {
	actual := h.Hash(candidate, salt)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}

// GenerateSalt returns a fresh salt of the configured length.
func (h *Hasher) GenerateSalt() (string, error) {
	return GenerateSalt(h.saltLength)
}

// GenerateSalt returns length letters drawn from crypto/rand.
func GenerateSalt(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("salt length must be positive, got %d", length)
	}
	alphabetSize := big.NewInt(int64(len(saltAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf[i] = saltAlphabet[n.Int64()]
	}
	return string(buf), nil
}
