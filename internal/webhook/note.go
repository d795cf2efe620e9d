package webhook

import (
	"regexp"
	"strings"
)

var noteKVRe = regexp.MustCompile(`(?i)(?:^|[\s,;])([a-zA-Z0-9_]+)=([a-zA-Z0-9-]+)`)

// ParseKeyFromNote extracts a key=value token from a free-text note.
//
// Example note:
//   "cuota 2: payment_id=abc-123 event_id=def-456"
func ParseKeyFromNote(note string, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}

	for _, m := range noteKVRe.FindAllStringSubmatch(note, -1) {
		if len(m) == 3 && strings.EqualFold(m[1], key) {
			return m[2]
		}
	}
	return ""
}
