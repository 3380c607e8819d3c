// Package worker provides a NATS worker that turns stored text into narrated audio.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/narration"
	"github.com/book-expert/narration-service/internal/voice"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	handleMessageTimeout = 2 * time.Minute
	audioKeyExtension    = ".mp3"
)

// ErrTextKeyEmpty indicates an event without a text object key.
var ErrTextKeyEmpty = errors.New("text key cannot be empty")

// Speaker is the part of the narration pipeline the worker drives.
type Speaker interface {
	Speak(ctx context.Context, req narration.SpeechRequest) (*narration.SpeechResult, error)
}

// NatsWorker listens for narration jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	speaker        Speaker
	defaultMode    voice.Mode
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker. defaultMode applies
// to events that name no voice.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	speaker Speaker,
	defaultMode voice.Mode,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		speaker:        speaker,
		defaultMode:    defaultMode,
		log:            log,
	}
}

// Run subscribes to the subject and blocks until ctx is done.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Listening for narration jobs on subject: %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

// JobFailedReply answers a job the worker could not narrate.
type JobFailedReply struct {
	Header  events.EventHeader `json:"header"`
	TextKey string             `json:"text_key,omitempty"`
	Error   string             `json:"error"`
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := w.parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Rejected narration job on %s: %v", msg.Subject, err)
		w.reply(msg, &JobFailedReply{Error: err.Error()})

		return
	}

	audioKey, err := w.processJob(ctx, event)
	if err != nil {
		w.log.Error("Narration job for workflow %s failed: %v", event.Header.WorkflowID, err)
		w.reply(msg, &JobFailedReply{Header: event.Header, TextKey: event.TextKey, Error: err.Error()})

		return
	}

	w.reply(msg, &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	})
}

// processJob downloads the text, narrates it and uploads the audio.
func (w *NatsWorker) processJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	mode, err := voice.ParseModeOr(event.Voice, w.defaultMode)
	if err != nil {
		return "", fmt.Errorf("invalid voice for workflow %s: %w", event.Header.WorkflowID, err)
	}

	textData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download text data for key '%s': %w", event.TextKey, err)
	}

	result, err := w.speaker.Speak(ctx, narration.SpeechRequest{
		Text: string(textData),
		Mode: mode,
	})
	if err != nil {
		return "", fmt.Errorf("failed to narrate text for key '%s': %w", event.TextKey, err)
	}

	audioKey := uuid.NewString() + audioKeyExtension

	err = w.store.Upload(ctx, audioKey, result.Audio)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio data for key '%s': %w", audioKey, err)
	}

	w.log.Info("Narrated %s with voice %s into %s", event.TextKey, result.Voice, audioKey)

	return audioKey, nil
}

// reply answers a request. Published events without a reply subject get none.
func (w *NatsWorker) reply(msg *nats.Msg, payload any) {
	if msg.Reply == "" {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		w.log.Error("Failed to marshal reply on %s: %v", msg.Subject, err)

		return
	}

	err = msg.Respond(data)
	if err != nil {
		w.log.Error("Failed to send reply on %s: %v", msg.Subject, err)
	}
}

func (w *NatsWorker) parseAndValidateEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.TextKey == "" {
		return nil, ErrTextKeyEmpty
	}

	return &event, nil
}
