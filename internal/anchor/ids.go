package anchor

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// newTransferID returns a 16-octet random id, hex-encoded to 32 characters
// (§3 "Transfer").
func newTransferID() (string, error) {
	return randomHex(16)
}

// newInteractiveToken returns a 32-octet random token, hex-encoded to 64
// characters (§4.3 "Identifier and URL construction").
func newInteractiveToken() (string, error) {
	return randomHex(32)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
