package narration_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/explain"
	"github.com/book-expert/narration-service/internal/narration"
	"github.com/book-expert/narration-service/internal/normalize"
	"github.com/book-expert/narration-service/internal/session"
	"github.com/book-expert/narration-service/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockSynthesize = errors.New("mock synthesize error")

// mockChat answers voice classification and explanation requests.
type mockChat struct {
	classification string
	explanation    string
	explainErr     error
}

func (m *mockChat) Complete(_ context.Context, _ string, messages []core.Message) (string, error) {
	if len(messages) > 0 && messages[0].Content == voice.Messages("")[0].Content {
		return m.classification, nil
	}

	if m.explainErr != nil {
		return "", m.explainErr
	}

	return m.explanation, nil
}

// mockSynthesizer records the last synthesis request.
type mockSynthesizer struct {
	audio []byte
	fail  bool
	text  string
	voice core.Voice
	model string
	calls int
}

func (m *mockSynthesizer) Synthesize(_ context.Context, text string, v core.Voice, model string) ([]byte, error) {
	m.calls++
	m.text = text
	m.voice = v
	m.model = model

	if m.fail {
		return nil, &core.UpstreamError{Op: "speech synthesis", Err: errMockSynthesize}
	}

	return m.audio, nil
}

func setupNarrator(t *testing.T, chat *mockChat, synth *mockSynthesizer) *narration.Narrator {
	t.Helper()

	log, err := logger.New(t.TempDir(), "narration-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return narration.New(
		voice.NewSelector(chat, "", log),
		explain.New(chat, "", 0),
		synth,
		"tts-1",
		log,
	)
}

func TestSpeak_PersistsExactBytes(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{audio: []byte{0x00, 0x01}}
	narrator := setupNarrator(t, &mockChat{}, synth)
	path := filepath.Join(t.TempDir(), "audio_output", "temp_audio.mp3")

	result, err := narrator.Speak(context.Background(), narration.SpeechRequest{
		Text:       "Today we look at some everyday tips.",
		Mode:       voice.Fixed(core.VoiceEcho),
		OutputPath: path,
	})
	require.NoError(t, err)

	assert.Equal(t, core.VoiceEcho, result.Voice)
	assert.Equal(t, "tts-1", synth.model)
	assert.Equal(t, core.VoiceEcho, synth.voice)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01}, data)
}

func TestSpeak_RecommendedVoiceFallsBack(t *testing.T) {
	t.Parallel()

	cases := map[string]core.Voice{
		"SAGE \n":       core.VoiceSage,
		"robot-voice-9": core.VoiceAlloy,
	}

	for classification, want := range cases {
		synth := &mockSynthesizer{audio: []byte("mp3")}
		narrator := setupNarrator(t, &mockChat{classification: classification}, synth)

		result, err := narrator.Speak(context.Background(), narration.SpeechRequest{
			Text: "Notice: the office is closed on Friday.",
			Mode: voice.Recommended(),
		})
		require.NoError(t, err)

		assert.Equal(t, want, result.Voice)
		assert.Equal(t, want, synth.voice)
		assert.Empty(t, result.OutputPath)
	}
}

func TestSpeak_Errors(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{fail: true}
	narrator := setupNarrator(t, &mockChat{}, synth)

	_, err := narrator.Speak(context.Background(), narration.SpeechRequest{Mode: voice.Recommended()})
	require.ErrorIs(t, err, narration.ErrTextEmpty)
	assert.Zero(t, synth.calls)

	_, err = narrator.Speak(context.Background(), narration.SpeechRequest{
		Text: "hello",
		Mode: voice.Fixed(core.VoiceNova),
	})

	var upstreamErr *core.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)

	_, err = narrator.Speak(context.Background(), narration.SpeechRequest{
		Text: "hello",
		Mode: voice.Fixed("robot"),
	})
	require.ErrorIs(t, err, voice.ErrUnknownVoice)
}

func TestExplainArtifact_StoresExplanation(t *testing.T) {
	t.Parallel()

	chat := &mockChat{explanation: "  1) Prints a greeting.  "}
	narrator := setupNarrator(t, chat, &mockSynthesizer{audio: []byte("mp3")})
	sess := session.New("s")

	notebook := `{"cells": [{"cell_type": "code", "source": ["print('hi')"]}]}`

	result, err := narrator.ExplainArtifact(context.Background(), sess, "hello.ipynb", []byte(notebook))
	require.NoError(t, err)

	assert.Equal(t, "```python\nprint('hi')\n```", result.Source)
	assert.Equal(t, "1) Prints a greeting.", result.Explanation)

	stored, ok := sess.LastExplanation()
	require.True(t, ok)
	assert.Equal(t, "1) Prints a greeting.", stored)
}

func TestExplainArtifact_FailureKeepsPreviousExplanation(t *testing.T) {
	t.Parallel()

	chat := &mockChat{explanation: "first explanation"}
	narrator := setupNarrator(t, chat, &mockSynthesizer{audio: []byte("mp3")})
	sess := session.New("s")

	_, err := narrator.ExplainArtifact(context.Background(), sess, "a.py", []byte("x = 1"))
	require.NoError(t, err)

	_, err = narrator.ExplainArtifact(context.Background(), sess, "notes.txt", []byte("x"))

	var formatErr *normalize.UnsupportedFormatError
	require.ErrorAs(t, err, &formatErr)

	chat.explainErr = errors.New("network down")

	_, err = narrator.ExplainArtifact(context.Background(), sess, "b.py", []byte("y = 2"))

	var upstreamErr *core.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)

	stored, ok := sess.LastExplanation()
	require.True(t, ok)
	assert.Equal(t, "first explanation", stored)
}

func TestSpeakExplanation(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{audio: []byte{0x00, 0x01}}
	narrator := setupNarrator(t, &mockChat{}, synth)
	sess := session.New("s")

	_, err := narrator.SpeakExplanation(context.Background(), sess, voice.Fixed(core.VoiceNova), "")
	require.ErrorIs(t, err, narration.ErrNoExplanation)

	sess.SetExplanation("This notebook prints hi.")
	path := filepath.Join(t.TempDir(), "ai_explanation.mp3")

	result, err := narrator.SpeakExplanation(context.Background(), sess, voice.Fixed(core.VoiceNova), path)
	require.NoError(t, err)

	assert.Equal(t, "This notebook prints hi.", synth.text)
	assert.Equal(t, path, result.OutputPath)
	assert.FileExists(t, path)
}
