package ports

import "context"

// SpeechConfig shapes synthesized audio.
type SpeechConfig struct {
	Voice  string
	Format string
	Speed  float64
}

// SpeechService is the external speech collaborator. Transcripts feed the
// Router as ordinary prompts.
type SpeechService interface {
	SpeechToText(ctx context.Context, audio []byte) (string, error)
	TextToSpeech(ctx context.Context, text string, cfg SpeechConfig) ([]byte, error)
}
