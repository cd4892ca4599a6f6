package mediacache

import (
	"fmt"
	"strings"
	"time"
)

// recordSuffix marks persistent-tier files as cache records.
const recordSuffix = ".mediacache"

// reservedKeyChars are characters that cannot appear in a persistent-tier
// filename. Cache keys are often derived from remote object keys, which
// carry path separators and the like.
const reservedKeyChars = `:/\?%*|"<>`

// Record is one persisted cache entry. The original, unsanitized key is
// stored inside the record so enumeration can reverse the filename
// mapping.
type Record struct {
	Key      string    `json:"key"`
	StoredAt time.Time `json:"stored_at"`
	Data     []byte    `json:"data"`
}

// Expired reports whether the record is older than ttl. Age is measured
// from the original write, never from last access.
func (r Record) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(r.StoredAt) > ttl
}

// sanitizeKey maps a logical key to a filesystem-safe name. The mapping
// is injective: reserved characters become "_" plus their hex code and a
// literal underscore is doubled, so two distinct keys can never collide
// on the same filename.
func sanitizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r == '_':
			b.WriteString("__")
		case strings.ContainsRune(reservedKeyChars, r):
			fmt.Fprintf(&b, "_%02x", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
