// Package llm implements the chat and speech collaborators on top of an
// OpenAI compatible API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/narration-service/internal/core"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// DefaultSpeechModel is the speech model used when none is configured.
const DefaultSpeechModel = "tts-1"

// Upstream operation names used in errors.
const (
	opChatCompletion = "chat completion"
	opSpeech         = "speech synthesis"
	opRateLimit      = "rate limit wait"
)

// ErrAPIKeyEmpty is returned when the client is created without credentials.
var ErrAPIKeyEmpty = errors.New("api key cannot be empty")

// ErrNoChoices is wrapped by core.UpstreamError when a chat response carries
// no generated message.
var ErrNoChoices = errors.New("response contains no choices")

// Config holds the connection settings for the remote API.
type Config struct {
	APIKey string
	// BaseURL overrides the API root, e.g. "https://api.openai.com/v1".
	BaseURL string
	// Timeout bounds every HTTP request. Zero keeps the transport default.
	Timeout time.Duration
	// RequestsPerSecond limits outbound calls. Zero or less disables the limit.
	RequestsPerSecond float64
}

// Client implements core.ChatCompleter and core.SpeechSynthesizer.
type Client struct {
	api     *openai.Client
	limiter *rate.Limiter
}

// NewClient creates a Client for the configured API.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyEmpty
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		api:     openai.NewClientWithConfig(clientConfig),
		limiter: limiter,
	}, nil
}

// Complete sends messages to the chat model and returns the content of the
// first choice.
func (c *Client) Complete(ctx context.Context, model string, messages []core.Message) (string, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return "", &core.UpstreamError{Op: opRateLimit, Err: err}
	}

	request := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toChatMessages(messages),
	}

	response, err := c.api.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", &core.UpstreamError{Op: opChatCompletion, Err: err}
	}

	if len(response.Choices) == 0 {
		return "", &core.UpstreamError{Op: opChatCompletion, Err: ErrNoChoices}
	}

	return response.Choices[0].Message.Content, nil
}

// Synthesize converts text to MP3 audio. It makes a single attempt.
func (c *Client) Synthesize(ctx context.Context, text string, voice core.Voice, model string) ([]byte, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, &core.UpstreamError{Op: opRateLimit, Err: err}
	}

	if model == "" {
		model = DefaultSpeechModel
	}

	request := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}

	response, err := c.api.CreateSpeech(ctx, request)
	if err != nil {
		return nil, &core.UpstreamError{Op: opSpeech, Err: err}
	}
	defer response.Close()

	audio, err := io.ReadAll(response)
	if err != nil {
		return nil, &core.UpstreamError{Op: opSpeech, Err: fmt.Errorf("failed to read audio data: %w", err)}
	}

	if len(audio) == 0 {
		return nil, &core.UpstreamError{Op: opSpeech, Err: core.ErrEmptyResponse}
	}

	return audio, nil
}

func toChatMessages(messages []core.Message) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, message := range messages {
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    string(message.Role),
			Content: message.Content,
		})
	}

	return converted
}
