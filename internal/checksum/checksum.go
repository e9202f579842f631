package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Content digests a note as it would be published. Line endings and
// trailing whitespace do not change the result.
func Content(title, markdown string) string {
	body := strings.ReplaceAll(markdown, "\r\n", "\n")
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	body = strings.TrimSpace(strings.Join(lines, "\n"))
	return Sum([]byte(strings.TrimSpace(title) + "\x00" + body))
}
