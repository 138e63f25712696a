package reports

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CanonicalJSON re-encodes raw JSON into a canonical form with object
// keys sorted recursively. Round-tripping through a Go map gives the
// sorted-key encoding, since encoding/json marshals map keys in sorted
// order at every level.
func CanonicalJSON(raw json.RawMessage) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("canonicalize report data: %w", err)
	}
	return json.Marshal(v)
}

// Fingerprint returns the hex SHA-256 of the canonical encoding of raw.
func Fingerprint(raw json.RawMessage) (string, error) {
	canonical, err := CanonicalJSON(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// NewViewKey returns an unguessable URL-safe key (43 characters from
// 32 random bytes).
func NewViewKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("draw view key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
