package consolidate

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// contentHash is the hex BLAKE3 digest of normalized page texts joined by
// form feeds.
func contentHash(texts []string) string {
	sum := blake3.Sum256([]byte(strings.Join(texts, "\f")))
	return hex.EncodeToString(sum[:])
}
