package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters
const (
	memory      = 64 * 1024
	iterations  = 1
	parallelism = 4
	saltLength  = 16
	keyLength   = 32
)

// ErrInvalidHash indicates a stored hash that is not in the expected
// format. This is a configuration/data problem, not a wrong password.
var ErrInvalidHash = errors.New("invalid password hash format")

// Hash hashes a password using Argon2id with a random per-hash salt.
// The salt and parameters are embedded in the PHC-formatted output.
func Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// Verify compares a password with a PHC-encoded Argon2id hash.
// The comparison is constant-time. A malformed stored hash returns
// ErrInvalidHash instead of false so callers can treat it as a
// configuration failure rather than a credential mismatch.
func Verify(password, encodedHash string) (bool, error) {
	salt, hash, m, t, p, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	comparison := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, comparison) == 1, nil
}

func decodeHash(encodedHash string) (salt, hash []byte, m, t uint32, p uint8, err error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, ErrInvalidHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return nil, nil, 0, 0, 0, ErrInvalidHash
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, ErrInvalidHash
	}

	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, ErrInvalidHash
	}

	return salt, hash, m, t, p, nil
}

// GenerateToken generates a cryptographically random token for
// sessions and CSRF. 32 bytes, hex-encoded.
func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// HashToken hashes a token using SHA256 for at-rest storage.
// The raw token is never stored.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// CompareTokenHash compares a presented raw token against a stored
// token hash in constant time.
func CompareTokenHash(presented, storedHash string) bool {
	presentedHash := HashToken(presented)
	return subtle.ConstantTimeCompare([]byte(presentedHash), []byte(storedHash)) == 1
}

// ErrPasswordTooShort indicates a password below the minimum length
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// ValidatePassword checks if password meets requirements
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}
