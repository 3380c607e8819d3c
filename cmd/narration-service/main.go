// main package for the narration-service
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/config"
	"github.com/book-expert/narration-service/internal/explain"
	"github.com/book-expert/narration-service/internal/httpapi"
	"github.com/book-expert/narration-service/internal/llm"
	"github.com/book-expert/narration-service/internal/narration"
	"github.com/book-expert/narration-service/internal/objectstore"
	"github.com/book-expert/narration-service/internal/session"
	"github.com/book-expert/narration-service/internal/voice"
	"github.com/book-expert/narration-service/internal/worker"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
)

const (
	bootstrapLogFile = "narration-service-bootstrap.log"
	serviceLogFile   = "narration-service.log"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// buildNarrator wires the remote API client into the narration pipeline.
func buildNarrator(cfg *config.Config, log *logger.Logger) (*narration.Narrator, error) {
	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(llm.Config{
		APIKey:            apiKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		Timeout:           cfg.OpenAI.Timeout(),
		RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return narration.New(
		voice.NewSelector(client, cfg.OpenAI.ClassifyModel, log),
		explain.New(client, cfg.OpenAI.ExplainModel, cfg.Explain.MaxInputChars),
		client,
		cfg.OpenAI.SpeechModel,
		log,
	), nil
}

// startWorker connects to NATS and runs the narration worker until ctx is done.
func startWorker(
	ctx context.Context,
	cfg *config.Config,
	narrator *narration.Narrator,
	defaultMode voice.Mode,
	log *logger.Logger,
) (func(), <-chan error, error) {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to open object store: %w", err)
	}

	natsWorker := worker.NewNatsWorker(
		natsConnection, cfg.NATS.NarrationSubject, store, narrator, defaultMode, log,
	)

	errChan := make(chan error, 1)

	go func() {
		errChan <- natsWorker.Run(ctx)
	}()

	return natsConnection.Close, errChan, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() { _ = bootstrapLog.Close() }()

	// 2. Load credentials from .env, if present
	envErr := godotenv.Load()
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		bootstrapLog.Warn("Failed to load .env file: %v", envErr)
	}

	// 3. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 4. Initialize the final logger based on the loaded configuration
	log, err := setupLogger(cfg.Paths.BaseLogsDir, serviceLogFile)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	defaultMode, err := voice.DefaultMode(cfg.Voice.Mode, cfg.Voice.Default)
	if err != nil {
		return fmt.Errorf("invalid default voice: %w", err)
	}

	narrator, err := buildNarrator(cfg, log)
	if err != nil {
		log.Error("Failed to build narrator: %v", err)

		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var workerErrs <-chan error

	if cfg.NATS.URL != "" {
		closeNATS, errChan, workerErr := startWorker(ctx, cfg, narrator, defaultMode, log)
		if workerErr != nil {
			log.Error("Failed to start NATS worker: %v", workerErr)

			return workerErr
		}

		defer closeNATS()

		workerErrs = errChan
	}

	sessions := session.NewStore(session.Options{
		MaxSessions: cfg.Server.MaxSessions,
		IdleTTL:     cfg.Server.SessionIdleTTL(),
		OnEnd:       httpapi.RemoveSessionAudio(cfg.Paths.AudioOutputDir, log),
	})
	server := httpapi.New(narrator, sessions, defaultMode, cfg.Paths.AudioOutputDir, log)
	serverErrs := make(chan error, 1)

	go func() {
		serverErrs <- server.Listen(cfg.Server.ListenAddr)
	}()

	log.System("Narration service listening on %s (default voice mode: %s)", cfg.Server.ListenAddr, defaultMode)

	select {
	case <-ctx.Done():
		log.Info("Shutdown requested.")
	case err = <-serverErrs:
		log.Error("HTTP server stopped: %v", err)
		stop()
	case err = <-workerErrs:
		log.Error("NATS worker stopped: %v", err)
		stop()
	}

	shutdownErr := server.Shutdown()
	if shutdownErr != nil {
		log.Error("Failed to shut down HTTP server: %v", shutdownErr)
	}

	return err
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
