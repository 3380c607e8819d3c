// Package narration runs the read input, call remote API, write output
// pipeline: normalize an artifact, explain it, pick a voice, synthesize and
// persist the audio.
package narration

import (
	"context"
	"errors"
	"fmt"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/audiostore"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/explain"
	"github.com/book-expert/narration-service/internal/normalize"
	"github.com/book-expert/narration-service/internal/session"
	"github.com/book-expert/narration-service/internal/voice"
)

// Static errors.
var (
	ErrTextEmpty     = errors.New("text cannot be empty")
	ErrNoExplanation = errors.New("no explanation has been generated yet")
)

const (
	logFmtVoiceSelected    = "Selected voice %s (mode %s) for %d characters"
	logFmtGeneratedAudio   = "Generated audio: %s (%d bytes)"
	logFmtExplained        = "Explained %s: %d characters of input, %d of explanation"
	errFmtSynthesizeFailed = "failed to synthesize speech: %w"
	errFmtPersistFailed    = "failed to persist audio: %w"
)

// Narrator composes the voice selector, explanation generator and speech
// synthesizer.
type Narrator struct {
	selector    *voice.Selector
	explainer   *explain.Generator
	synthesizer core.SpeechSynthesizer
	speechModel string
	log         *logger.Logger
}

// New creates a Narrator. An empty speechModel is passed through and left to
// the synthesizer's default.
func New(
	selector *voice.Selector,
	explainer *explain.Generator,
	synthesizer core.SpeechSynthesizer,
	speechModel string,
	log *logger.Logger,
) *Narrator {
	return &Narrator{
		selector:    selector,
		explainer:   explainer,
		synthesizer: synthesizer,
		speechModel: speechModel,
		log:         log,
	}
}

// SpeechRequest describes one text to speech action.
type SpeechRequest struct {
	Text string
	Mode voice.Mode
	// OutputPath is where the audio is written. Empty skips persistence.
	OutputPath string
}

// SpeechResult is the outcome of a speech action.
type SpeechResult struct {
	Voice      core.Voice
	Audio      []byte
	OutputPath string
}

// Explanation is the outcome of explaining an artifact.
type Explanation struct {
	Source      string
	Explanation string
}

// Speak selects a voice for the text, synthesizes it and persists the audio.
func (n *Narrator) Speak(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	if req.Text == "" {
		return nil, ErrTextEmpty
	}

	selected, err := n.selector.Select(ctx, req.Text, req.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to select voice: %w", err)
	}

	n.log.Info(logFmtVoiceSelected, selected, req.Mode, len(req.Text))

	audio, err := n.synthesizer.Synthesize(ctx, req.Text, selected, n.speechModel)
	if err != nil {
		return nil, fmt.Errorf(errFmtSynthesizeFailed, err)
	}

	if req.OutputPath != "" {
		err = audiostore.Save(req.OutputPath, audio)
		if err != nil {
			return nil, fmt.Errorf(errFmtPersistFailed, err)
		}

		n.log.Info(logFmtGeneratedAudio, req.OutputPath, len(audio))
	}

	return &SpeechResult{
		Voice:      selected,
		Audio:      audio,
		OutputPath: req.OutputPath,
	}, nil
}

// Normalize turns an uploaded file into text.
func (n *Narrator) Normalize(name string, data []byte) (string, error) {
	text, err := normalize.File(name, data)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}

	return text, nil
}

// ExplainArtifact normalizes the file, explains it and stores the
// explanation in sess. On failure the session keeps its previous explanation.
func (n *Narrator) ExplainArtifact(
	ctx context.Context,
	sess *session.Session,
	name string,
	data []byte,
) (*Explanation, error) {
	text, err := n.Normalize(name, data)
	if err != nil {
		return nil, err
	}

	explanation, err := n.explainer.Explain(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to explain %s: %w", name, err)
	}

	sess.SetExplanation(explanation)
	n.log.Info(logFmtExplained, name, len(text), len(explanation))

	return &Explanation{Source: text, Explanation: explanation}, nil
}

// SpeakExplanation speaks the last explanation stored in sess.
func (n *Narrator) SpeakExplanation(
	ctx context.Context,
	sess *session.Session,
	mode voice.Mode,
	outputPath string,
) (*SpeechResult, error) {
	explanation, ok := sess.LastExplanation()
	if !ok {
		return nil, ErrNoExplanation
	}

	return n.Speak(ctx, SpeechRequest{
		Text:       explanation,
		Mode:       mode,
		OutputPath: outputPath,
	})
}
