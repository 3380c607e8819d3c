package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/audiostore"
	"github.com/book-expert/narration-service/internal/config"
	"github.com/book-expert/narration-service/internal/explain"
	"github.com/book-expert/narration-service/internal/llm"
	"github.com/book-expert/narration-service/internal/narration"
	"github.com/book-expert/narration-service/internal/session"
	"github.com/book-expert/narration-service/internal/voice"
	"github.com/joho/godotenv"
)

// Flag descriptions.
const (
	flagTextDesc    = "Text to convert to speech"
	flagFileDesc    = "Script (.py) or notebook (.ipynb) to read aloud or explain"
	flagVoiceDesc   = "Voice name, or \"auto\" to let the model pick one"
	flagOutputDesc  = "Output file path (.mp3)"
	flagExplainDesc = "Explain --file with the chat model and read the explanation aloud"
	flagVerboseDesc = "Enable verbose logging"
)

// Flag names.
const (
	flagText    = "text"
	flagFile    = "file"
	flagVoice   = "voice"
	flagOutput  = "output"
	flagExplain = "explain"
	flagVerbose = "verbose"
)

// Error messages.
const (
	errEitherTextOrFile   = "either --text or --file must be provided"
	errCannotSpecifyBoth  = "cannot specify both --text and --file"
	errExplainNeedsFile   = "--explain requires --file"
	errOutputNotAudio     = "--output must name an audio file (.mp3)"
	errFmtFailedToLoadCfg = "failed to load configuration: %w"
	errFmtFailedToInitLog = "failed to initialize logger: %w"
	errFmtFailedToRead    = "failed to read %s: %w"
)

// Log and output messages.
const (
	logClientInitialized = "Narrator initialized (speech model: %s)"
	logExplained         = "Explanation of %s:\n\n%s\n\n"
	logGenerated         = "Generated %s with voice %s\n"
)

// File names and paths.
const (
	bootstrapLogFile   = "narrator-bootstrap.log"
	logFileNameDefault = "narrator.log"
	logFileNameVerbose = "narrator-verbose.log"
	defaultOutputFile  = "temp_audio.mp3"
	explanationFile    = "ai_explanation.mp3"
)

var (
	errMissingInput = errors.New(errEitherTextOrFile)
	errBothInputs   = errors.New(errCannotSpecifyBoth)
	errExplainFile  = errors.New(errExplainNeedsFile)
	errOutputFormat = errors.New(errOutputNotAudio)
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text    string
	file    string
	voice   string
	output  string
	explain bool
	verbose bool
}

func main() {
	err := run()
	if err != nil {
		// A logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

// run is the main application entry point, returning an error on failure.
func run() error {
	flags := parseFlags(flag.CommandLine, os.Args[1:])

	err := validateFlags(flags)
	if err != nil {
		flag.Usage()

		return err
	}

	_ = godotenv.Load()

	cfg, appLog, err := setup(flags.verbose)
	if err != nil {
		return err
	}

	defer func() { _ = appLog.Close() }()

	narrator, err := buildNarrator(cfg, appLog)
	if err != nil {
		return err
	}

	appLog.Info(logClientInitialized, cfg.OpenAI.SpeechModel)

	defaultMode, err := voice.DefaultMode(cfg.Voice.Mode, cfg.Voice.Default)
	if err != nil {
		return err
	}

	mode, err := voice.ParseModeOr(flags.voice, defaultMode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	output := outputPath(flags, cfg.Paths.AudioOutputDir)

	if flags.explain {
		return explainFile(ctx, narrator, flags.file, mode, output)
	}

	text, err := inputText(narrator, flags)
	if err != nil {
		return err
	}

	result, err := narrator.Speak(ctx, narration.SpeechRequest{Text: text, Mode: mode, OutputPath: output})
	if err != nil {
		return err
	}

	fmt.Printf(logGenerated, result.OutputPath, result.Voice)

	return nil
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags(flagSet *flag.FlagSet, args []string) appFlags {
	var flags appFlags
	flagSet.StringVar(&flags.text, flagText, "", flagTextDesc)
	flagSet.StringVar(&flags.file, flagFile, "", flagFileDesc)
	flagSet.StringVar(&flags.voice, flagVoice, "", flagVoiceDesc)
	flagSet.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flagSet.BoolVar(&flags.explain, flagExplain, false, flagExplainDesc)
	flagSet.BoolVar(&flags.verbose, flagVerbose, false, flagVerboseDesc)
	_ = flagSet.Parse(args)

	return flags
}

// validateFlags checks for required and conflicting arguments.
func validateFlags(flags appFlags) error {
	if flags.text == "" && flags.file == "" {
		return errMissingInput
	}

	if flags.text != "" && flags.file != "" {
		return errBothInputs
	}

	if flags.explain && flags.file == "" {
		return errExplainFile
	}

	if flags.output != "" && !audiostore.IsAudioFile(flags.output) {
		return errOutputFormat
	}

	return nil
}

// outputPath picks the destination: --output, else a name derived from the
// input file, else the default file, inside the configured audio directory.
func outputPath(flags appFlags, audioDir string) string {
	switch {
	case flags.output != "":
		return flags.output
	case flags.explain:
		return filepath.Join(audioDir, explanationFile)
	case flags.file != "":
		return filepath.Join(audioDir, audiostore.AudioFileName(flags.file))
	default:
		return filepath.Join(audioDir, defaultOutputFile)
	}
}

// setup loads config and initializes the logger.
func setup(verbose bool) (*config.Config, *logger.Logger, error) {
	bootstrapLog, err := logger.New(os.TempDir(), bootstrapLogFile)
	if err != nil {
		return nil, nil, fmt.Errorf(errFmtFailedToInitLog, err)
	}

	defer func() { _ = bootstrapLog.Close() }()

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		return nil, nil, fmt.Errorf(errFmtFailedToLoadCfg, err)
	}

	logFileName := logFileNameDefault
	if verbose {
		logFileName = logFileNameVerbose
	}

	appLog, err := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		return nil, nil, fmt.Errorf(errFmtFailedToInitLog, err)
	}

	return cfg, appLog, nil
}

func buildNarrator(cfg *config.Config, appLog *logger.Logger) (*narration.Narrator, error) {
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
		return nil, err
	}

	return narration.New(
		voice.NewSelector(client, cfg.OpenAI.ClassifyModel, appLog),
		explain.New(client, cfg.OpenAI.ExplainModel, cfg.Explain.MaxInputChars),
		client,
		cfg.OpenAI.SpeechModel,
		appLog,
	), nil
}

// inputText returns the text to speak: --text verbatim, or the normalized file.
func inputText(narrator *narration.Narrator, flags appFlags) (string, error) {
	if flags.text != "" {
		return flags.text, nil
	}

	data, err := os.ReadFile(flags.file)
	if err != nil {
		return "", fmt.Errorf(errFmtFailedToRead, flags.file, err)
	}

	return narrator.Normalize(filepath.Base(flags.file), data)
}

// explainFile explains the file, prints the explanation and reads it aloud.
func explainFile(
	ctx context.Context,
	narrator *narration.Narrator,
	path string,
	mode voice.Mode,
	output string,
) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf(errFmtFailedToRead, path, err)
	}

	sess := session.New(path)

	explained, err := narrator.ExplainArtifact(ctx, sess, filepath.Base(path), data)
	if err != nil {
		return err
	}

	fmt.Printf(logExplained, path, explained.Explanation)

	result, err := narrator.SpeakExplanation(ctx, sess, mode, output)
	if err != nil {
		return err
	}

	fmt.Printf(logGenerated, result.OutputPath, result.Voice)

	return nil
}
