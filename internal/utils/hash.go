package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// CalculateHash returns the hex encoded HMAC-SHA256 of body keyed with key.
func CalculateHash(body []byte, key string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// ValidHash compares a received hash against the expected one in constant time.
func ValidHash(body []byte, key, got string) bool {
	want := CalculateHash(body, key)
	return hmac.Equal([]byte(want), []byte(got))
}
