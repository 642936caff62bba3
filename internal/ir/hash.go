package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainPlan prefixes plan fingerprints. The version suffix allows the
// encoding to change without colliding with older fingerprints.
const DomainPlan = "gplan/plan/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint canonically encodes v and hashes it under domain.
func Fingerprint(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the value is known to be encodable.
func MustFingerprint(domain string, v any) string {
	fp, err := Fingerprint(domain, v)
	if err != nil {
		panic(err)
	}
	return fp
}
