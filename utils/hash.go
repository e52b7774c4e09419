package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// ComputeHMACSHA256 computes an HMAC-SHA256 signature and returns the
// hex-encoded digest (64 characters).
func ComputeHMACSHA256(secretKey, message string) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

// HashPassword derives the stored digest for a super-user password, keyed
// with the server private key.
func HashPassword(privateKey, password string) string {
	return ComputeHMACSHA256(privateKey, password)
}

// SecureCompare performs constant-time string comparison to prevent timing
// attacks. This MUST be used when comparing credential digests.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
