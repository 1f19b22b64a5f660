package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
)

// HashSecret digests a PIN or one-time code for storage. Plaintext secrets
// never reach the database.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// SecretMatches compares a supplied secret against a stored digest in
// constant time.
func SecretMatches(hash string, secret string) bool {
	supplied := HashSecret(secret)
	return subtle.ConstantTimeCompare([]byte(hash), []byte(supplied)) == 1
}

// GenerateNumericCode returns a uniformly random code of the given number of
// decimal digits, zero-padded.
func GenerateNumericCode(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// MaskEmail hides a delivery address down to its first character and domain,
// e.g. "jdoe@corp.example" -> "j***@corp.example".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
