package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Mavwarf/quizspeak/internal/httputil"
)

// SpeechEndpoint is the OpenAI text-to-speech API.
const SpeechEndpoint = "https://api.openai.com/v1/audio/speech"

// OpenAIVoices lists the hosted voices. They are multilingual, so the
// catalog offers each of them under every configured locale.
var OpenAIVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// generateRequest is the JSON body for the OpenAI TTS API.
type generateRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

// Generate calls the OpenAI TTS API for u and returns raw WAV bytes.
func Generate(ctx context.Context, endpoint, apiKey, model string, u Utterance) ([]byte, error) {
	body := generateRequest{
		Model:          model,
		Input:          u.Text,
		Voice:          u.Voice.ID,
		ResponseFormat: "wav",
	}
	if u.Rate != 0 && u.Rate != 1.0 {
		body.Speed = u.Rate
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httputil.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai tts request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp, "openai tts"); err != nil {
		return nil, err
	}

	wavData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return wavData, nil
}
