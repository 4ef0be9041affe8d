package session

import (
	"crypto/rand"
	"encoding/hex"
)

// tokenBytes is the amount of CSPRNG-grade randomness behind a reconnection
// token (16 bytes = 128 bits, hex-encoded to 32 chars), the same
// crypto/rand + hex.EncodeToString pattern a room ID generator would use,
// scaled up for a session token's larger entropy requirement.
const tokenBytes = 16

// generateToken returns a fresh, cryptographically random reconnection
// token. Panics only if the system CSPRNG itself is broken — there is no
// sane fallback for rand.Read failing.
func generateToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic("session: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
