// Package httpapi exposes the narration pipeline over HTTP. It takes the place
// of the interactive UI: it accepts text and uploads, and returns explanations
// and MP3 audio.
package httpapi

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/narration"
	"github.com/book-expert/narration-service/internal/normalize"
	"github.com/book-expert/narration-service/internal/session"
	"github.com/book-expert/narration-service/internal/voice"
	"github.com/gofiber/fiber/v2"
)

// Routes.
const (
	routeHealth            = "/health"
	routeVoices            = "/voices"
	routeSpeech            = "/speech"
	routeExplanations      = "/explanations"
	routeLastExplanation   = "/explanations/last"
	routeExplanationSpeech = "/explanations/speech"
)

// Header, cookie and form names.
const (
	SessionCookie   = "narration_session"
	HeaderVoice     = "X-Voice"
	formFieldFile   = "file"
	contentTypeMP3  = "audio/mpeg"
	speechFileName  = "speech.mp3"
	explainFileName = "explanation.mp3"
	bodyLimitBytes  = 16 << 20
)

// Server serves the HTTP API.
type Server struct {
	app         *fiber.App
	narrator    *narration.Narrator
	sessions    *session.Store
	defaultMode voice.Mode
	audioDir    string
	log         *logger.Logger
}

// New creates a Server. Audio is persisted per session below audioDir;
// defaultMode applies to requests that name no voice.
func New(
	narrator *narration.Narrator,
	sessions *session.Store,
	defaultMode voice.Mode,
	audioDir string,
	log *logger.Logger,
) *Server {
	s := &Server{
		narrator:    narrator,
		sessions:    sessions,
		defaultMode: defaultMode,
		audioDir:    audioDir,
		log:         log,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "narration-service",
		BodyLimit:             bodyLimitBytes,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Get(routeHealth, s.health)
	s.app.Get(routeVoices, s.voices)
	s.app.Post(routeSpeech, s.speech)
	s.app.Post(routeExplanations, s.explain)
	s.app.Get(routeLastExplanation, s.lastExplanation)
	s.app.Post(routeExplanationSpeech, s.explanationSpeech)

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

type speechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type voiceRequest struct {
	Voice string `json:"voice"`
}

type explanationResponse struct {
	Name        string `json:"name,omitempty"`
	Source      string `json:"source,omitempty"`
	Explanation string `json:"explanation"`
}

type voicesResponse struct {
	Voices  []core.Voice `json:"voices"`
	Default string       `json:"default"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) voices(c *fiber.Ctx) error {
	return c.JSON(voicesResponse{
		Voices:  core.AllowedVoices(),
		Default: s.defaultMode.String(),
	})
}

func (s *Server) speech(c *fiber.Ctx) error {
	var req speechRequest

	err := c.BodyParser(&req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}

	mode, err := voice.ParseModeOr(req.Voice, s.defaultMode)
	if err != nil {
		return err
	}

	sess := s.session(c)

	result, err := s.narrator.Speak(c.UserContext(), narration.SpeechRequest{
		Text:       req.Text,
		Mode:       mode,
		OutputPath: s.outputPath(sess, speechFileName),
	})
	if err != nil {
		return err
	}

	return sendAudio(c, result)
}

func (s *Server) explain(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile(formFieldFile)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing upload field \"file\"")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to open upload: "+err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to read upload: "+err.Error())
	}

	sess := s.session(c)

	result, err := s.narrator.ExplainArtifact(c.UserContext(), sess, fileHeader.Filename, data)
	if err != nil {
		return err
	}

	return c.JSON(explanationResponse{
		Name:        fileHeader.Filename,
		Source:      result.Source,
		Explanation: result.Explanation,
	})
}

func (s *Server) lastExplanation(c *fiber.Ctx) error {
	sess, ok := s.existingSession(c)
	if !ok {
		return narration.ErrNoExplanation
	}

	explanation, ok := sess.LastExplanation()
	if !ok {
		return narration.ErrNoExplanation
	}

	return c.JSON(explanationResponse{Explanation: explanation})
}

func (s *Server) explanationSpeech(c *fiber.Ctx) error {
	var req voiceRequest

	if len(c.Body()) > 0 {
		err := c.BodyParser(&req)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}
	}

	mode, err := voice.ParseModeOr(req.Voice, s.defaultMode)
	if err != nil {
		return err
	}

	sess, ok := s.existingSession(c)
	if !ok {
		return narration.ErrNoExplanation
	}

	result, err := s.narrator.SpeakExplanation(c.UserContext(), sess, mode, s.outputPath(sess, explainFileName))
	if err != nil {
		return err
	}

	return sendAudio(c, result)
}

// session returns the caller's session, issuing a cookie for new ones.
func (s *Server) session(c *fiber.Ctx) *session.Session {
	sess, created := s.sessions.GetOrCreate(c.Cookies(SessionCookie))
	if created {
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	return sess
}

// existingSession returns the caller's live session without creating one.
func (s *Server) existingSession(c *fiber.Ctx) (*session.Session, bool) {
	return s.sessions.Get(c.Cookies(SessionCookie))
}

// RemoveSessionAudio returns a session.Options.OnEnd hook that deletes the
// audio persisted for an ended session below audioDir.
func RemoveSessionAudio(audioDir string, log *logger.Logger) func(id string) {
	return func(id string) {
		if audioDir == "" {
			return
		}

		err := os.RemoveAll(filepath.Join(audioDir, id))
		if err != nil {
			log.Warn("Failed to remove audio of ended session %s: %v", id, err)
		}
	}
}

func (s *Server) outputPath(sess *session.Session, name string) string {
	if s.audioDir == "" {
		return ""
	}

	return filepath.Join(s.audioDir, sess.ID(), name)
}

func sendAudio(c *fiber.Ctx, result *narration.SpeechResult) error {
	c.Set(fiber.HeaderContentType, contentTypeMP3)
	c.Set(HeaderVoice, result.Voice.String())

	return c.Send(result.Audio)
}

// handleError maps pipeline errors to status codes and a JSON body.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.log.Error("%s %s failed: %v", c.Method(), c.Path(), err)
	} else {
		s.log.Warn("%s %s rejected: %v", c.Method(), c.Path(), err)
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		fiberErr    *fiber.Error
		decodeErr   *normalize.DecodeError
		parseErr    *normalize.ParseError
		formatErr   *normalize.UnsupportedFormatError
		upstreamErr *core.UpstreamError
	)

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &decodeErr), errors.As(err, &parseErr):
		return fiber.StatusBadRequest
	case errors.As(err, &formatErr):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, voice.ErrUnknownVoice), errors.Is(err, narration.ErrTextEmpty):
		return fiber.StatusBadRequest
	case errors.Is(err, narration.ErrNoExplanation):
		return fiber.StatusNotFound
	case errors.As(err, &upstreamErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
