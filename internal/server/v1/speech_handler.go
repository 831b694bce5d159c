package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
	"github.com/oryx-ai/conductor/internal/core/services"
	"github.com/oryx-ai/conductor/internal/server/validator"
	"github.com/oryx-ai/conductor/pkg/api"
)

// maxAudioBytes caps uploaded audio at 25MB, matching upstream limits.
const maxAudioBytes = 25 << 20

type SpeechHandler struct {
	speech    ports.SpeechService
	router    *services.Router
	scopes    *services.ScopeManager
	validator *validator.Validator
}

func NewSpeechHandler(speech ports.SpeechService, router *services.Router, scopes *services.ScopeManager, v *validator.Validator) *SpeechHandler {
	return &SpeechHandler{speech: speech, router: router, scopes: scopes, validator: v}
}

func (h *SpeechHandler) readAudio(c *gin.Context) ([]byte, bool) {
	file, _, err := c.Request.FormFile("audio")
	if err != nil {
		_ = c.Error(domain.BadRequestError("missing audio file in form field 'audio'"))
		return nil, false
	}
	defer func() {
		_ = file.Close()
	}()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes+1))
	if err != nil {
		_ = c.Error(domain.BadRequestError("failed to read audio upload"))
		return nil, false
	}
	if len(audio) > maxAudioBytes {
		_ = c.Error(domain.BadRequestError("audio upload exceeds 25MB limit"))
		return nil, false
	}
	return audio, true
}

// Transcribe converts uploaded audio to text.
func (h *SpeechHandler) Transcribe(c *gin.Context) {
	audio, ok := h.readAudio(c)
	if !ok {
		return
	}

	text, err := h.speech.SpeechToText(c.Request.Context(), audio)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.TranscriptResponse{Text: text})
}

// TranscribeAndRoute transcribes uploaded audio and routes the transcript as
// an ordinary prompt. An optional scope_id form field applies a scope.
func (h *SpeechHandler) TranscribeAndRoute(c *gin.Context) {
	audio, ok := h.readAudio(c)
	if !ok {
		return
	}

	text, err := h.speech.SpeechToText(c.Request.Context(), audio)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var scope *domain.Scope
	if scopeID := c.PostForm("scope_id"); scopeID != "" {
		scope = h.scopes.Get(scopeID)
		if scope == nil {
			_ = c.Error(domain.NotFoundError("scope " + scopeID + " not found"))
			return
		}
	}

	result := h.router.Route(c.Request.Context(), domain.RouteRequest{
		Prompt: text,
		Scope:  scope,
	})
	c.JSON(http.StatusOK, api.RouteResponseFrom(result))
}

// Synthesize turns text into audio and streams the bytes back.
func (h *SpeechHandler) Synthesize(c *gin.Context) {
	var req api.SynthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	audio, err := h.speech.TextToSpeech(c.Request.Context(), req.Text, ports.SpeechConfig{
		Voice:  req.Voice,
		Format: req.Format,
		Speed:  req.Speed,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	contentType := "audio/mpeg"
	if req.Format != "" && req.Format != "mp3" {
		contentType = "audio/" + req.Format
	}
	c.Data(http.StatusOK, contentType, audio)
}
