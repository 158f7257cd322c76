// Package realtime brokers ephemeral tokens for the realtime speech API
// that conducts the spoken interview.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultSessionsURL = "https://api.openai.com/v1/realtime/sessions"
	requestTimeout     = 20 * time.Second
)

// SessionClient creates realtime speech sessions and returns the
// ephemeral client token the device uses to connect directly.
type SessionClient struct {
	apiKey      string
	model       string
	sessionsURL string
	httpClient  *http.Client
}

// NewSessionClient returns a client for the given API key and realtime
// model (e.g. "gpt-4o-realtime-preview").
func NewSessionClient(apiKey, model string) *SessionClient {
	return &SessionClient{
		apiKey:      apiKey,
		model:       model,
		sessionsURL: defaultSessionsURL,
		httpClient:  &http.Client{Timeout: requestTimeout},
	}
}

type sessionRequest struct {
	Model         string         `json:"model"`
	Voice         string         `json:"voice"`
	Modalities    []string       `json:"modalities"`
	TurnDetection turnDetection  `json:"turn_detection"`
	Instructions  string         `json:"instructions"`
	InputFormat   string         `json:"input_audio_format"`
	Transcription *transcription `json:"input_audio_transcription,omitempty"`
}

type turnDetection struct {
	Type              string `json:"type"`
	SilenceDurationMS int    `json:"silence_duration_ms"`
}

type transcription struct {
	Model    string `json:"model"`
	Language string `json:"language"`
}

// CreateSession provisions a realtime session carrying the interviewer
// instructions and returns the ephemeral token. The token may arrive
// under client_secret.value or, on older API revisions, as a bare value.
func (c *SessionClient) CreateSession(ctx context.Context, instructions string) (string, error) {
	body, err := json.Marshal(sessionRequest{
		Model:      c.model,
		Voice:      "alloy",
		Modalities: []string{"audio", "text"},
		TurnDetection: turnDetection{
			Type:              "server_vad",
			SilenceDurationMS: 800,
		},
		Instructions:  instructions,
		InputFormat:   "pcm16",
		Transcription: &transcription{Model: "whisper-1", Language: "en"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sessionsURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "realtime=v1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create realtime session: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read session response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("realtime session: status %d", resp.StatusCode)
	}

	var parsed struct {
		ClientSecret json.RawMessage `json:"client_secret"`
		Value        string          `json:"value"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse session response: %w", err)
	}

	if len(parsed.ClientSecret) > 0 {
		var secret struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(parsed.ClientSecret, &secret); err == nil && secret.Value != "" {
			return secret.Value, nil
		}
		var bare string
		if err := json.Unmarshal(parsed.ClientSecret, &bare); err == nil && bare != "" {
			return bare, nil
		}
	}
	if parsed.Value != "" {
		return parsed.Value, nil
	}
	return "", fmt.Errorf("realtime session: ephemeral token missing")
}
