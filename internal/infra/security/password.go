package security

import (
	"errors"
	"fmt"
	"strings"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = bcrypt.DefaultCost

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword reports whether the plaintext matches the stored hash.
// A mismatch is (false, nil); only malformed hashes yield an error.
func VerifyPassword(password, encoded string) (bool, error) {
	if encoded == "" {
		return false, errors.New("stored hash must not be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("bcrypt compare: %w", err)
}

// PasswordPolicy gates registration on length and estimated strength.
type PasswordPolicy struct {
	minLength int
	minScore  int
}

// NewPasswordPolicy returns the default policy: 8+ characters, zxcvbn
// score of at least 2.
func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{minLength: 8, minScore: 2}
}

// Validate returns a descriptive error when the password is too weak.
// userInputs (username, email) lower the score when the password derives
// from them.
func (p *PasswordPolicy) Validate(password string, userInputs ...string) error {
	if len(password) < p.minLength {
		return fmt.Errorf("password must be at least %d characters", p.minLength)
	}

	inputs := make([]string, 0, len(userInputs))
	for _, input := range userInputs {
		if trimmed := strings.TrimSpace(input); trimmed != "" {
			inputs = append(inputs, trimmed)
		}
	}

	result := zxcvbn.PasswordStrength(password, inputs)
	if result.Score < p.minScore {
		return errors.New("password is too weak")
	}

	return nil
}
