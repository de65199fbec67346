// Package storage persists rendered feeds and returns URLs platforms can fetch them from.
package storage

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FeedKey builds the object key for a rendered feed:
// feeds/<merchant>/<catalog>/<timestamp>-<short id>-<file name>.
// Every upload gets a new key, so earlier feed versions are never overwritten.
func FeedKey(merchantID, catalogID uuid.UUID, fileName string, now time.Time) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return path.Join(
		"feeds",
		merchantID.String(),
		catalogID.String(),
		fmt.Sprintf("%s-%s-%s", now.UTC().Format("20060102T150405Z"), short, sanitizeFileName(fileName)),
	)
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "feed"
	}
	// fold accented letters to their base form before the ASCII filter
	if folded, _, err := transform.String(accentFolder(), name); err == nil {
		name = folded
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
