package voice

import "testing"

func TestClassifyEnglish(t *testing.T) {
	s := NewSelector()
	for _, text := range []string{
		"the cat is happy",
		"Welcome to the test",
		"Please choose an answer",
		"I AM READY",
	} {
		if got := s.Classify(text); got.Name != "english" {
			t.Errorf("Classify(%q) = %s, want english", text, got.Name)
		}
	}
}

func TestClassifyFallback(t *testing.T) {
	s := NewSelector()
	for _, text := range []string{
		"Bonjour, comment allez-vous?",
		"",
		"theatre", // "the" without trailing space
	} {
		if got := s.Classify(text); got.Name != "french" {
			t.Errorf("Classify(%q) = %s, want french", text, got.Name)
		}
	}
}

func TestSelectEnglishPrefersUSorGB(t *testing.T) {
	s := NewSelector()
	catalog := []Voice{
		{ID: "fr", Locale: "fr-FR"},
		{ID: "au", Locale: "en-AU"},
		{ID: "gb", Locale: "en-GB"},
		{ID: "us", Locale: "en-US"},
	}
	u, ok := s.Select("the cat is happy", catalog)
	if !ok {
		t.Fatal("Select returned false with a non-empty catalog")
	}
	// Catalog order decides between the preferred locales.
	if u.Voice.ID != "gb" {
		t.Errorf("voice = %q, want gb", u.Voice.ID)
	}
	if u.Locale != "en-US" {
		t.Errorf("locale = %q, want en-US", u.Locale)
	}
}

func TestSelectEnglishFirstMatchWithoutPreferred(t *testing.T) {
	s := NewSelector()
	catalog := []Voice{
		{ID: "fr", Locale: "fr-FR"},
		{ID: "au", Locale: "en-AU"},
		{ID: "in", Locale: "en-IN"},
	}
	u, _ := s.Select("the cat is happy", catalog)
	if u.Voice.ID != "au" {
		t.Errorf("voice = %q, want au", u.Voice.ID)
	}
}

func TestSelectBareLanguageLocale(t *testing.T) {
	s := NewSelector()
	catalog := []Voice{{ID: "de", Locale: "de-DE"}, {ID: "en", Locale: "en"}}
	u, _ := s.Select("the cat is happy", catalog)
	if u.Voice.ID != "en" {
		t.Errorf("voice = %q, want en", u.Voice.ID)
	}
}

func TestSelectFallsBackToFirstCatalogVoice(t *testing.T) {
	s := NewSelector()
	catalog := []Voice{{ID: "de", Locale: "de-DE"}, {ID: "es", Locale: "es-ES"}}
	u, ok := s.Select("the cat is happy", catalog)
	if !ok || u.Voice.ID != "de" {
		t.Errorf("voice = %q (ok=%v), want de", u.Voice.ID, ok)
	}
	// Locale follows the classification, not the voice.
	if u.Locale != "en-US" {
		t.Errorf("locale = %q, want en-US", u.Locale)
	}
}

func TestSelectFrenchPrefersLocalService(t *testing.T) {
	s := NewSelector()
	catalog := []Voice{
		{ID: "remote", Locale: "fr-FR"},
		{ID: "local", Locale: "fr-CA", LocalService: true},
	}
	u, ok := s.Select("Bonjour, comment allez-vous?", catalog)
	if !ok {
		t.Fatal("Select returned false")
	}
	if u.Voice.ID != "local" {
		t.Errorf("voice = %q, want local", u.Voice.ID)
	}
	if u.Locale != "fr-FR" {
		t.Errorf("locale = %q, want fr-FR", u.Locale)
	}
}

func TestSelectFrenchFirstMatchWithoutLocal(t *testing.T) {
	s := NewSelector()
	catalog := []Voice{
		{ID: "en", Locale: "en-US", LocalService: true},
		{ID: "a", Locale: "fr_FR"},
		{ID: "b", Locale: "fr-BE"},
	}
	u, _ := s.Select("Bonjour", catalog)
	if u.Voice.ID != "a" {
		t.Errorf("voice = %q, want a", u.Voice.ID)
	}
}

func TestSelectEmptyCatalogDefers(t *testing.T) {
	s := NewSelector()
	if _, ok := s.Select("the cat is happy", nil); ok {
		t.Error("Select should return false for an empty catalog")
	}
}

func TestSelectProsody(t *testing.T) {
	s := NewSelector()
	u, _ := s.Select("Bonjour", []Voice{{ID: "x", Locale: "fr-FR"}})
	if u.Rate != 0.9 || u.Pitch != 1.0 || u.Volume != 1.0 {
		t.Errorf("prosody = %v/%v/%v, want 0.9/1/1", u.Rate, u.Pitch, u.Volume)
	}
	if u.Text != "Bonjour" {
		t.Errorf("text = %q", u.Text)
	}
}

func TestSelectConfigurableLanguages(t *testing.T) {
	s := NewSelector()
	s.Primary = Language{Name: "german", Locale: "de-DE", Prefix: "de", Markers: []string{"der ", "und "}}
	s.Fallback = Language{Name: "spanish", Locale: "es-ES", Prefix: "es"}
	catalog := []Voice{{ID: "es", Locale: "es-ES"}, {ID: "de", Locale: "de-AT"}}

	u, _ := s.Select("der Hund und die Katze", catalog)
	if u.Voice.ID != "de" || u.Locale != "de-DE" {
		t.Errorf("got %q/%q, want de/de-DE", u.Voice.ID, u.Locale)
	}
	u, _ = s.Select("hola amigos", catalog)
	if u.Voice.ID != "es" || u.Locale != "es-ES" {
		t.Errorf("got %q/%q, want es/es-ES", u.Voice.ID, u.Locale)
	}
}

func TestNormalizeLocale(t *testing.T) {
	tests := []struct{ in, want string }{
		{"en_us", "en-US"},
		{"EN-gb", "en-GB"},
		{"fr", "fr"},
		{" fr-fr ", "fr-FR"},
		{"cmn-hans-cn", "cmn-hans-cn"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeLocale(tt.in); got != tt.want {
			t.Errorf("NormalizeLocale(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchesPrefix(t *testing.T) {
	tests := []struct {
		locale, prefix string
		want           bool
	}{
		{"en-US", "en", true},
		{"en", "en", true},
		{"en_GB", "en", true},
		{"eng", "en", false},
		{"fr-CA", "fr", true},
		{"en-US", "", false},
	}
	for _, tt := range tests {
		if got := MatchesPrefix(tt.locale, tt.prefix); got != tt.want {
			t.Errorf("MatchesPrefix(%q, %q) = %v, want %v", tt.locale, tt.prefix, got, tt.want)
		}
	}
}
