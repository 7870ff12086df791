// Package voice describes synthetic voices and picks one for a piece of text.
package voice

import "strings"

// Voice is one entry of a host voice catalog.
type Voice struct {
	ID           string `json:"id"` // engine-specific identifier passed back to the engine
	Name         string `json:"name"`
	Locale       string `json:"locale"`
	LocalService bool   `json:"local_service"`
}

// Utterance is a single speak request with its resolved voice and prosody.
// It is a value type: build a new one instead of modifying an existing one.
type Utterance struct {
	Text   string
	Voice  Voice
	Rate   float64
	Pitch  float64
	Volume float64
	Locale string
}

// NormalizeLocale canonicalizes a locale tag to "ll-RR" form: "en_us" and
// "EN-us" both become "en-US". Extra subtags are kept as given.
func NormalizeLocale(tag string) string {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	parts := strings.Split(tag, "-")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	parts[0] = strings.ToLower(parts[0])
	if len(parts) > 1 && len(parts[1]) == 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// MatchesPrefix reports whether locale belongs to the language prefix:
// "en" matches "en", "en-US" and "en_GB" but not "eng".
func MatchesPrefix(locale, prefix string) bool {
	locale = NormalizeLocale(locale)
	prefix = strings.ToLower(prefix)
	if prefix == "" {
		return false
	}
	return locale == prefix || strings.HasPrefix(locale, prefix+"-")
}
