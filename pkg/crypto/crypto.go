package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used for dev inbox credentials
const DefaultCost = 12

// HashPassword returns the bcrypt hash of password at cost, or DefaultCost when cost is 0
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	pwd, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("HashPassword error: %w", err)
	}
	return string(pwd), nil
}

// CheckPasswordHash reports whether password matches the bcrypt hash
func CheckPasswordHash(password string, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// RandomBytes reads n bytes from crypto/rand
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// GenerateShareSecret returns a hex secret for signing share links
func GenerateShareSecret() (string, error) {
	b, err := RandomBytes(32)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateWebhookSecret returns a "whsec_" prefixed base64 secret for signed webhooks
func GenerateWebhookSecret() (string, error) {
	b, err := RandomBytes(24)
	if err != nil {
		return "", err
	}
	return "whsec_" + base64.StdEncoding.EncodeToString(b), nil
}
