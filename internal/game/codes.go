// internal/game/codes.go
package game

import (
	"math/rand"
	"strings"
)

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateRoomCode returns a random code not present in used.
func GenerateRoomCode(used func(code string) bool) string {
	for {
		b := make([]byte, roomCodeLength)
		for i := range b {
			b[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
		}
		code := string(b)
		if !used(code) {
			return code
		}
	}
}

// NormalizeRoomCode makes user-entered codes case-insensitive.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateRoomCode checks the shape of a normalized code.
func ValidateRoomCode(code string) error {
	if len(code) != roomCodeLength {
		return reject(KindInvalidRequest, "Room code must be exactly 6 characters")
	}
	for _, ch := range code {
		if !strings.ContainsRune(roomCodeAlphabet, ch) {
			return reject(KindInvalidRequest, "Room code must contain only letters and digits")
		}
	}
	return nil
}
