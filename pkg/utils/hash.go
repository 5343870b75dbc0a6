package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// SumSHA256 returns the SHA-256 checksum of the provided data.
func SumSHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// SumSHA256Hex is SumSHA256 as a lowercase hex string.
func SumSHA256Hex(data []byte) string {
	sum := SumSHA256(data)
	return hex.EncodeToString(sum[:])
}
