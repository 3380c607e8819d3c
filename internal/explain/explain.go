// Package explain asks a remote chat model to describe a script or notebook
// in a few structured sections.
package explain

import (
	"context"
	"errors"
	"strings"

	"github.com/book-expert/narration-service/internal/core"
)

// MaxInputChars is the default character budget for text sent to the model.
// Longer input is cut to its prefix.
const MaxInputChars = 6000

// DefaultModel is the chat model used for explanations.
const DefaultModel = "gpt-4o"

const upstreamOp = "explanation"

const systemPrompt = "You explain uploaded Python scripts and Jupyter notebooks to people.\n" +
	"Keep it short and use this format:\n" +
	"1) A one-line summary of what the code or notebook does\n" +
	"2) The main steps or function names and what each does\n" +
	"3) Values, keys or environment variables that must be configured externally\n" +
	"4) How to run it, if that is apparent\n" +
	"Do not be verbose."

const userPromptPrefix = "Explain the following code:\n\n"

// Generator produces explanations through a ChatCompleter.
type Generator struct {
	chat     core.ChatCompleter
	model    string
	maxChars int
}

// New creates a Generator. Zero values select DefaultModel and MaxInputChars.
func New(chat core.ChatCompleter, model string, maxChars int) *Generator {
	if model == "" {
		model = DefaultModel
	}

	if maxChars <= 0 {
		maxChars = MaxInputChars
	}

	return &Generator{
		chat:     chat,
		model:    model,
		maxChars: maxChars,
	}
}

// Explain returns the trimmed explanation for text. The text is truncated to
// the character budget before it is sent.
func (g *Generator) Explain(ctx context.Context, text string) (string, error) {
	messages := []core.Message{
		{Role: core.RoleSystem, Content: systemPrompt},
		{Role: core.RoleUser, Content: userPromptPrefix + Truncate(text, g.maxChars)},
	}

	response, err := g.chat.Complete(ctx, g.model, messages)
	if err != nil {
		var upstreamErr *core.UpstreamError
		if errors.As(err, &upstreamErr) {
			return "", err
		}

		return "", &core.UpstreamError{Op: upstreamOp, Err: err}
	}

	explanation := strings.TrimSpace(response)
	if explanation == "" {
		return "", &core.UpstreamError{Op: upstreamOp, Err: core.ErrEmptyResponse}
	}

	return explanation, nil
}

// Truncate returns the first limit characters of text. Text at or below the
// limit is returned unchanged.
func Truncate(text string, limit int) string {
	if limit < 0 {
		limit = 0
	}

	count := 0
	for index := range text {
		if count == limit {
			return text[:index]
		}

		count++
	}

	return text
}
