package access

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ShareTokenBytes is the entropy of a share token; the hex form is twice as long.
const ShareTokenBytes = 6

// NewShareToken returns a random lowercase hex token. Hex never contains an
// underscore, so tokens are always the last segment of a payload.
func NewShareToken() (string, error) {
	buf := make([]byte, ShareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("access: generate share token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
