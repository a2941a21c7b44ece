package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainFields  = "clubsync/fields/v1"
	DomainRequest = "clubsync/request/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FieldsFingerprint returns a stable digest of a field map as it would be
// sent on the wire. Two objects with the same pairs in the same order share
// a fingerprint; reordering keys changes it, because it changes the bytes.
func FieldsFingerprint(fields *Object) (string, error) {
	data, err := Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("FieldsFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFields, data), nil
}

// RequestFingerprint identifies a logical request by method, path and body.
func RequestFingerprint(method, path string, fields *Object) (string, error) {
	body, err := Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("RequestFingerprint: failed to marshal: %w", err)
	}
	obj := NewObject(
		O("method", String(method)),
		O("path", String(path)),
		O("body", String(body)),
	)
	data, err := Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("RequestFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRequest, data), nil
}
