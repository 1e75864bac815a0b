package csvimport

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey canonicalizes a field name: NFC, trimmed, lowercased, with
// runs of spaces and dashes replaced by a single underscore.
func NormalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(norm.NFC.String(k)))
	return strings.Join(strings.FieldsFunc(k, func(r rune) bool {
		return r == ' ' || r == '-' || r == '\t'
	}), "_")
}

// NormalizeRecord returns a copy of rec with normalized keys and NFC,
// trimmed string values. Non-string values are kept as they are. When two
// keys collide after normalization the later one in key order wins.
func NormalizeRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for _, k := range slices.Sorted(maps.Keys(rec)) {
		v := rec[k]
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(norm.NFC.String(s))
		}
		out[NormalizeKey(k)] = v
	}
	return out
}
