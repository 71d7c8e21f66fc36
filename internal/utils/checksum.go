package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Sign computes the hex HMAC-SHA256 of payload under secret. Returns the
// empty string when no secret is configured.
func Sign(payload []byte, secret string) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a webhook signature against the exact payload bytes using a
// constant-time comparison. Returns false on a missing secret, missing
// signature, or any mismatch; it never panics.
func Verify(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// PayloadChecksum computes the checksum field for an outbound request
// payload: compact JSON with sorted keys, then HMAC-SHA256.
func PayloadChecksum(fields map[string]any, secret string) (string, error) {
	if secret == "" {
		return "", nil
	}
	// json.Marshal emits map keys in sorted order
	canonical, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return Sign(canonical, secret), nil
}
