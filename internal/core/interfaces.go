// Package core defines the core types and interfaces for the narration service.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// Role identifies the author of a chat message.
type Role string

// Chat roles accepted by the remote model.
const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single entry of the ordered message list sent to the chat model.
type Message struct {
	Role    Role
	Content string
}

// ChatCompleter sends an ordered list of messages to a remote chat model and
// returns the text of the first generated message.
type ChatCompleter interface {
	Complete(ctx context.Context, model string, messages []Message) (string, error)
}

// SpeechSynthesizer turns text into audio bytes with the given voice and model.
// The returned bytes are MP3 encoded.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice, model string) ([]byte, error)
}
