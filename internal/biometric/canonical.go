// Package biometric turns raw fingerprint template payloads into a canonical
// encoding and a content digest, and defines how a captured sample is checked
// against a stored template.
package biometric

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidTemplate is returned when a canonical payload is not valid base64.
var ErrInvalidTemplate = errors.New("biometric template is not valid base64")

// Normalize maps base64, base64url and data-URI payloads onto one standard
// base64 form. Empty input yields the empty string. Normalize is idempotent.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = raw[i+1:]
	}

	var b strings.Builder
	b.Grow(len(raw) + 3)
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			continue
		case r == '-':
			b.WriteByte('+')
		case r == '_':
			b.WriteByte('/')
		default:
			b.WriteRune(r)
		}
	}
	for b.Len()%4 != 0 {
		b.WriteByte('=')
	}
	return b.String()
}

// Decode returns the raw template bytes of a canonical payload.
func Decode(canonical string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return data, nil
}

// Digest decodes a canonical payload and returns the hex SHA-256 of its bytes.
func Digest(canonical string) (string, error) {
	data, err := Decode(canonical)
	if err != nil {
		return "", err
	}
	return Sum(data), nil
}

// Sum is the hex SHA-256 of already decoded template bytes.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Template is a decoded payload together with its identity key.
type Template struct {
	Canonical string
	Raw       []byte
	Digest    string
}

// Fingerprint normalizes, decodes and hashes a raw payload in one step.
// An empty payload is rejected.
func Fingerprint(raw string) (Template, error) {
	canonical := Normalize(raw)
	if canonical == "" {
		return Template{}, fmt.Errorf("%w: empty payload", ErrInvalidTemplate)
	}
	data, err := Decode(canonical)
	if err != nil {
		return Template{}, err
	}
	if len(data) == 0 {
		return Template{}, fmt.Errorf("%w: empty payload", ErrInvalidTemplate)
	}
	return Template{Canonical: canonical, Raw: data, Digest: Sum(data)}, nil
}
