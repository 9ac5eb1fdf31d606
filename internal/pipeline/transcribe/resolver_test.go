// internal/pipeline/transcribe/resolver_test.go
package transcribe

import (
	"context"
	"errors"
	"testing"

	apperrors "smartbuilding-workers/internal/common/errors"
	"smartbuilding-workers/internal/common/logger"
	"smartbuilding-workers/internal/models"
	"smartbuilding-workers/internal/transcription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	result transcription.Result
	err    error
	calls  int
}

func (f *fakeProvider) Recognize(_ context.Context, _, _ string) (transcription.Result, error) {
	f.calls++
	return f.result, f.err
}

func textEnvelope(text string) *models.CommandEnvelope {
	return &models.CommandEnvelope{RecordID: "rec-1", Kind: models.KindText, Text: text}
}

func audioEnvelope(audioRef string) *models.CommandEnvelope {
	return &models.CommandEnvelope{RecordID: "rec-1", Kind: models.KindAudio, AudioRef: audioRef}
}

func TestResolver_TextCommandsBypassTheProvider(t *testing.T) {
	provider := &fakeProvider{}
	r := NewResolver(provider, "it-IT", logger.Nop())

	text, err := r.Resolve(context.Background(), textEnvelope("  accendi le luci  "))

	require.NoError(t, err)
	assert.Equal(t, "accendi le luci", text)
	assert.Equal(t, 0, provider.calls)
}

func TestResolver_AudioDelegatesToProvider(t *testing.T) {
	provider := &fakeProvider{result: transcription.Result{Text: "qual è la temperatura", Confidence: 0.9}}
	r := NewResolver(provider, "it-IT", logger.Nop())

	text, err := r.Resolve(context.Background(), audioEnvelope("s3://clips/rec-1.wav"))

	require.NoError(t, err)
	assert.Equal(t, "qual è la temperatura", text)
	assert.Equal(t, 1, provider.calls)
}

func TestResolver_ProviderErrorIsRetryable(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream timeout")}
	r := NewResolver(provider, "it-IT", logger.Nop())

	_, err := r.Resolve(context.Background(), audioEnvelope("s3://clips/rec-1.wav"))

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTranscriptionFailed, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestResolver_EmptyTranscriptionYieldsNoText(t *testing.T) {
	provider := &fakeProvider{result: transcription.Result{Text: "   "}}
	r := NewResolver(provider, "it-IT", logger.Nop())

	text, err := r.Resolve(context.Background(), audioEnvelope("s3://clips/rec-1.wav"))

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestResolver_DisabledProviderFallsBackToPlaceholder(t *testing.T) {
	r := NewResolver(nil, "it-IT", logger.Nop())

	text, err := r.Resolve(context.Background(), audioEnvelope("s3://clips/rec-1.wav"))

	require.NoError(t, err)
	assert.Equal(t, placeholderText, text)
}

func TestResolver_AudioKindWithoutRefUsesInlineText(t *testing.T) {
	provider := &fakeProvider{}
	r := NewResolver(provider, "it-IT", logger.Nop())

	env := &models.CommandEnvelope{RecordID: "rec-1", Kind: models.KindAudio, Text: "aiuto"}
	text, err := r.Resolve(context.Background(), env)

	require.NoError(t, err)
	assert.Equal(t, "aiuto", text)
	assert.Equal(t, 0, provider.calls)
}
