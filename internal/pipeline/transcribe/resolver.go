// internal/pipeline/transcribe/resolver.go
package transcribe

import (
	"context"
	"strings"

	apperrors "smartbuilding-workers/internal/common/errors"
	"smartbuilding-workers/internal/common/logger"
	"smartbuilding-workers/internal/models"
	"smartbuilding-workers/internal/transcription"
)

// placeholderText keeps the pipeline exercisable when no speech provider
// is configured (offline development, integration tests).
const placeholderText = "trascrizione non disponibile: aiuto"

// Resolver obtains the text to interpret for a command: pre-transcribed,
// delegated to the speech provider, or a deterministic fallback.
type Resolver struct {
	provider transcription.Provider // nil when transcription is disabled
	language string
	logger   logger.Logger
}

func NewResolver(provider transcription.Provider, language string, log logger.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		language: language,
		logger:   log.With(map[string]interface{}{"component": "transcribe"}),
	}
}

// Resolve returns the text for the envelope. An empty string with a nil
// error means no text is available; the caller fails the record without
// invoking the intent analyzer.
func (r *Resolver) Resolve(ctx context.Context, env *models.CommandEnvelope) (string, error) {
	if env.Kind == models.KindAudio && env.AudioRef != "" {
		return r.resolveAudio(ctx, env)
	}
	return strings.TrimSpace(env.Text), nil
}

func (r *Resolver) resolveAudio(ctx context.Context, env *models.CommandEnvelope) (string, error) {
	if r.provider == nil {
		r.logger.Warn("speech provider disabled, using placeholder", map[string]interface{}{
			"recordId": env.RecordID,
		})
		return placeholderText, nil
	}

	result, err := r.provider.Recognize(ctx, env.AudioRef, r.language)
	if err != nil {
		return "", apperrors.NewTranscriptionFailedError(err)
	}

	r.logger.Info("transcription resolved", map[string]interface{}{
		"recordId":   env.RecordID,
		"confidence": result.Confidence,
	})
	return strings.TrimSpace(result.Text), nil
}
