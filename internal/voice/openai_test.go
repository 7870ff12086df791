package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateSendsRequest(t *testing.T) {
	var got generateRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("RIFFwav"))
	}))
	defer srv.Close()

	u := Utterance{Text: "the cat", Voice: Voice{ID: "nova"}, Rate: 0.9}
	data, err := Generate(context.Background(), srv.URL, "sk-test", "tts-1", u)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(data) != "RIFFwav" {
		t.Errorf("data = %q", data)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Model != "tts-1" || got.Voice != "nova" || got.Input != "the cat" || got.ResponseFormat != "wav" {
		t.Errorf("request = %+v", got)
	}
	if got.Speed != 0.9 {
		t.Errorf("speed = %v, want 0.9", got.Speed)
	}
}

func TestGenerateOmitsDefaultSpeed(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
	}))
	defer srv.Close()

	u := Utterance{Text: "x", Voice: Voice{ID: "nova"}, Rate: 1.0}
	if _, err := Generate(context.Background(), srv.URL, "k", "tts-1", u); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["speed"]; ok {
		t.Error("speed should be omitted at rate 1.0")
	}
}

func TestGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := Generate(context.Background(), srv.URL, "k", "tts-1", Utterance{Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "bad key") {
		t.Errorf("error = %v", err)
	}
}
