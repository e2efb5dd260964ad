package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// DefaultCost is the bcrypt cost used when none is configured.
const DefaultCost = bcrypt.DefaultCost

// PINLength is the number of digits in an account PIN.
const PINLength = 4

const (
	pinIterations = 100_000
	pinKeyLen     = 32
	pinSaltLen    = 16
)

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	return HashPasswordCost(password, DefaultCost)
}

// HashPasswordCost hashes a password with the given bcrypt cost.
func HashPasswordCost(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewToken mints an opaque bearer token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidPIN reports whether pin is exactly PINLength ASCII digits.
func ValidPIN(pin string) bool {
	if len(pin) != PINLength {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// HashPIN derives a salted PBKDF2-SHA256 hash in "salt$hash" form.
func HashPIN(pin string) (string, error) {
	salt := make([]byte, pinSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(pin), salt, pinIterations, pinKeyLen, sha256.New)
	return base64.RawStdEncoding.EncodeToString(salt) + "$" + base64.RawStdEncoding.EncodeToString(key), nil
}

// CheckPIN compares pin against a HashPIN value in constant time.
func CheckPIN(pin, stored string) bool {
	saltStr, hashStr, ok := strings.Cut(stored, "$")
	if !ok {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(saltStr)
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(hashStr)
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(pin), salt, pinIterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
