package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
	"github.com/oryx-ai/conductor/internal/httpclient"
)

const (
	defaultTranscribeModel = "whisper-1"
	defaultSpeechModel     = "tts-1"
	defaultVoice           = "alloy"
	defaultFormat          = "mp3"
)

// Service implements speech over the OpenAI audio endpoints. Transcripts
// come back as plain text so callers can hand them straight to the Router.
type Service struct {
	baseURL    string
	credential string
	client     httpclient.HTTPClient
}

func NewService(cfg domain.ProviderConfig) *Service {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Service{
		baseURL:    strings.TrimRight(baseURL, "/"),
		credential: cfg.Credential,
		client:     &http.Client{Timeout: 120 * time.Second},
	}
}

var _ ports.SpeechService = (*Service)(nil)

func (s *Service) SpeechToText(ctx context.Context, audio []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", "audio.webm")
	if err != nil {
		return "", domain.InternalError("failed to build transcription request", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", domain.InternalError("failed to build transcription request", err)
	}
	if err := mw.WriteField("model", defaultTranscribeModel); err != nil {
		return "", domain.InternalError("failed to build transcription request", err)
	}
	if err := mw.Close(); err != nil {
		return "", domain.InternalError("failed to build transcription request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", domain.InternalError("failed to build transcription request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.credential)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", domain.ProviderError("transcription request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", domain.ProviderError("transcription request rejected",
			&httpclient.UpstreamError{StatusCode: resp.StatusCode, Body: body, URL: req.URL.String()})
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.ProviderError("failed to decode transcription response", err)
	}
	return out.Text, nil
}

func (s *Service) TextToSpeech(ctx context.Context, text string, cfg ports.SpeechConfig) ([]byte, error) {
	voice := cfg.Voice
	if voice == "" {
		voice = defaultVoice
	}
	format := cfg.Format
	if format == "" {
		format = defaultFormat
	}

	payload := map[string]interface{}{
		"model":           defaultSpeechModel,
		"input":           text,
		"voice":           voice,
		"response_format": format,
	}
	if cfg.Speed != 0 {
		payload["speed"] = cfg.Speed
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.InternalError("failed to build speech request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, domain.InternalError("failed to build speech request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.credential)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.ProviderError("speech request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, domain.ProviderError(fmt.Sprintf("speech request rejected with status %d", resp.StatusCode),
			&httpclient.UpstreamError{StatusCode: resp.StatusCode, Body: respBody, URL: req.URL.String()})
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ProviderError("failed to read audio response", err)
	}
	return audio, nil
}
