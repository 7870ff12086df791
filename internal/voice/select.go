package voice

import "strings"

// Fixed prosody applied to every utterance unless configured otherwise.
const (
	DefaultRate   = 0.9
	DefaultPitch  = 1.0
	DefaultVolume = 1.0
)

// Language is one side of the binary language classification.
type Language struct {
	Name    string   `json:"name"`
	Locale  string   `json:"locale"`            // locale stamped on the utterance
	Prefix  string   `json:"prefix"`            // catalog filter, e.g. "en"
	Markers []string `json:"markers,omitempty"` // substrings that classify text as this language
	// Preferred locales, tried in catalog order before any other match.
	Preferred   []string `json:"preferred,omitempty"`
	PreferLocal bool     `json:"prefer_local,omitempty"`
}

// English is the default primary language.
func English() Language {
	return Language{
		Name:      "english",
		Locale:    "en-US",
		Prefix:    "en",
		Markers:   []string{"the ", " is ", " are ", "i am ", "welcome ", "please "},
		Preferred: []string{"en-US", "en-GB"},
	}
}

// French is the default fallback language.
func French() Language {
	return Language{
		Name:        "french",
		Locale:      "fr-FR",
		Prefix:      "fr",
		PreferLocal: true,
	}
}

// Selector classifies text and resolves a voice from a catalog.
type Selector struct {
	Primary  Language
	Fallback Language
	Rate     float64
	Pitch    float64
	Volume   float64
}

// NewSelector returns the English/French selector with default prosody.
func NewSelector() *Selector {
	return &Selector{
		Primary:  English(),
		Fallback: French(),
		Rate:     DefaultRate,
		Pitch:    DefaultPitch,
		Volume:   DefaultVolume,
	}
}

// Classify returns the primary language if text contains any of its
// markers (case-insensitive), otherwise the fallback language.
func (s *Selector) Classify(text string) *Language {
	lower := strings.ToLower(text)
	for _, m := range s.Primary.Markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return &s.Primary
		}
	}
	return &s.Fallback
}

// Select builds the utterance for text. It returns false when the catalog
// is empty: the caller should retry once the catalog has been populated.
func (s *Selector) Select(text string, catalog []Voice) (Utterance, bool) {
	if len(catalog) == 0 {
		return Utterance{}, false
	}
	lang := s.Classify(text)
	v, ok := pick(lang, catalog)
	if !ok {
		v = catalog[0]
	}
	return Utterance{
		Text:   text,
		Voice:  v,
		Rate:   s.Rate,
		Pitch:  s.Pitch,
		Volume: s.Volume,
		Locale: lang.Locale,
	}, true
}

func pick(lang *Language, catalog []Voice) (Voice, bool) {
	var matches []Voice
	for _, v := range catalog {
		if MatchesPrefix(v.Locale, lang.Prefix) {
			matches = append(matches, v)
		}
	}
	if len(matches) == 0 {
		return Voice{}, false
	}

	if len(lang.Preferred) > 0 {
		for _, v := range matches {
			for _, p := range lang.Preferred {
				if NormalizeLocale(v.Locale) == NormalizeLocale(p) {
					return v, true
				}
			}
		}
	}
	if lang.PreferLocal {
		for _, v := range matches {
			if v.LocalService {
				return v, true
			}
		}
	}
	return matches[0], true
}
