// Package voice picks the synthesis voice for a piece of text, either as
// given by the caller or as recommended by a remote chat model.
package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/core"
)

// Default is the voice used whenever a recommendation is unusable.
const Default = core.VoiceAlloy

// DefaultModel is the chat model used for recommendations.
const DefaultModel = "gpt-4o"

// AutoName is the user facing name of the recommended mode.
const AutoName = "auto"

// ErrUnknownVoice is returned for voice names outside the allowed set.
var ErrUnknownVoice = errors.New("unknown voice")

const systemPrompt = "You pick the voice that reads a text best.\n" +
	"Answer with exactly one name from this list, in lowercase.\n" +
	"List: alloy, ash, coral, echo, fable, onyx, nova, sage, shimmer.\n" +
	"Explanations, notices, announcements, manuals, company notices -> sage or alloy\n" +
	"Education, learning, tutorials -> nova\n" +
	"Children, stories, fairy tales, warm tone -> fable\n" +
	"Bright and upbeat -> coral\n" +
	"Anything else -> alloy\n" +
	"Say nothing else. Give no reason. One word only."

const userPromptPrefix = "Pick the voice that suits this text:\n"

// Mode selects between a caller supplied voice and a recommendation.
type Mode struct {
	voice       core.Voice
	recommended bool
}

// Fixed returns a mode that always yields v.
func Fixed(v core.Voice) Mode {
	return Mode{voice: v}
}

// Recommended returns a mode that asks the chat model for a voice.
func Recommended() Mode {
	return Mode{recommended: true}
}

// IsRecommended reports whether the mode asks the chat model.
func (m Mode) IsRecommended() bool {
	return m.recommended
}

func (m Mode) String() string {
	if m.recommended {
		return AutoName
	}

	return string(m.voice)
}

// Parse maps a raw classification answer to a voice. The answer is trimmed
// and lowercased; anything outside the allowed set yields Default.
func Parse(raw string) core.Voice {
	candidate := core.Voice(strings.ToLower(strings.TrimSpace(raw)))
	if !candidate.Valid() {
		return Default
	}

	return candidate
}

// Lookup validates a caller supplied voice name. Unlike Parse it does not
// fall back.
func Lookup(name string) (core.Voice, error) {
	v := core.Voice(strings.ToLower(strings.TrimSpace(name)))
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownVoice, name)
	}

	return v, nil
}

// ParseMode maps a user facing voice name to a Mode. An empty name or "auto"
// selects the recommended mode.
func ParseMode(name string) (Mode, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, AutoName) {
		return Recommended(), nil
	}

	v, err := Lookup(trimmed)
	if err != nil {
		return Mode{}, err
	}

	return Fixed(v), nil
}

// Selector resolves a Mode to a voice.
type Selector struct {
	chat  core.ChatCompleter
	model string
	log   *logger.Logger
}

// NewSelector creates a Selector that classifies with the given chat model.
// An empty model selects DefaultModel.
func NewSelector(chat core.ChatCompleter, model string, log *logger.Logger) *Selector {
	if model == "" {
		model = DefaultModel
	}

	return &Selector{
		chat:  chat,
		model: model,
		log:   log,
	}
}

// Select returns the voice for text. In fixed mode the configured voice is
// returned without a network call. In recommended mode one classification call
// is made; a failed call or an unusable answer yields Default, so the only
// error is an invalid fixed voice.
func (s *Selector) Select(ctx context.Context, text string, mode Mode) (core.Voice, error) {
	if !mode.recommended {
		if !mode.voice.Valid() {
			return "", fmt.Errorf("%w: %q", ErrUnknownVoice, mode.voice)
		}

		return mode.voice, nil
	}

	raw, err := s.chat.Complete(ctx, s.model, Messages(text))
	if err != nil {
		s.log.Warn("Voice recommendation failed, using %s: %v", Default, err)

		return Default, nil
	}

	selected := Parse(raw)
	if string(selected) != strings.ToLower(strings.TrimSpace(raw)) {
		s.log.Warn("Voice recommendation %q is not an allowed voice, using %s", raw, Default)
	}

	return selected, nil
}

// Messages builds the classification request for text.
func Messages(text string) []core.Message {
	return []core.Message{
		{Role: core.RoleSystem, Content: systemPrompt},
		{Role: core.RoleUser, Content: userPromptPrefix + text},
	}
}

// ParseModeOr is ParseMode except that an empty name yields empty instead of
// the recommended mode. "auto" always selects the recommended mode.
func ParseModeOr(name string, empty Mode) (Mode, error) {
	if strings.TrimSpace(name) == "" {
		return empty, nil
	}

	return ParseMode(name)
}

// DefaultMode builds the mode used when a caller names no voice. modeName is
// "auto" or "fixed"; a fixed mode uses defaultVoice.
func DefaultMode(modeName, defaultVoice string) (Mode, error) {
	if strings.EqualFold(strings.TrimSpace(modeName), "fixed") {
		v, err := Lookup(defaultVoice)
		if err != nil {
			return Mode{}, err
		}

		return Fixed(v), nil
	}

	return Recommended(), nil
}
