// Package chat runs the emotion-aware companion conversation: it tracks
// per-session state, builds the system prompt and asks an llm.Provider for
// the reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/paranroman/bisimo/internal/emotion"
	"github.com/paranroman/bisimo/internal/llm"
	"github.com/paranroman/bisimo/internal/logging"
)

// MaxAttempts bounds how often a repetitive or failed completion is retried.
const MaxAttempts = 3

// ErrEmptyMessage is returned for a message that is blank after trimming.
var ErrEmptyMessage = errors.New("chat: empty message")

var (
	boldMarkup   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicMarkup = regexp.MustCompile(`\*([^*]+)\*`)
)

// Reply is the answer to one user message.
type Reply struct {
	Message         string  `json:"message"`
	Emotion         string  `json:"emotion"`
	Emoji           string  `json:"emoji"`
	Confidence      float64 `json:"confidence"`
	DetectionMethod string  `json:"detection_method"`
	SessionID       string  `json:"session_id"`
	TurnCount       int     `json:"turn_count"`
	UserName        *string `json:"user_name"`
	ModelActive     bool    `json:"indobert_active"`
}

// Service answers chat messages.
type Service struct {
	provider llm.Provider
	analyzer *emotion.Analyzer
	sessions *SessionManager
	logger   *slog.Logger
	tag      func() int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithPromptTag overrides the random prompt tag generator.
func WithPromptTag(f func() int) Option {
	return func(s *Service) { s.tag = f }
}

// WithSessions shares an existing session registry.
func WithSessions(m *SessionManager) Option {
	return func(s *Service) { s.sessions = m }
}

// NewService creates a Service. analyzer may be nil for keyword-only
// emotion detection.
func NewService(provider llm.Provider, analyzer *emotion.Analyzer, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		analyzer: analyzer,
		sessions: NewSessionManager(),
		logger:   logging.Discard(),
		tag:      func() int { return 1000 + rand.IntN(9000) },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.analyzer == nil {
		s.analyzer = emotion.NewAnalyzer(nil, s.logger)
	}
	return s
}

// Provider returns the completion provider.
func (s *Service) Provider() llm.Provider { return s.provider }

// Analyzer returns the emotion analyzer.
func (s *Service) Analyzer() *emotion.Analyzer { return s.analyzer }

// Sessions returns the session registry.
func (s *Service) Sessions() *SessionManager { return s.sessions }

// Reset discards a session's state.
func (s *Service) Reset(sessionID string) {
	s.sessions.Reset(sessionOrDefault(sessionID))
}

// Reply answers message in the given session.
func (s *Service) Reply(ctx context.Context, sessionID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	sessionID = sessionOrDefault(sessionID)

	sess := s.sessions.Get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if name := ExtractUserName(message); name != "" {
		sess.SetUserName(name)
		s.logger.Debug("user name detected", "session", sessionID, "name", sess.UserName)
	}

	detected := s.analyzer.Detect(ctx, message)
	analysis := emotion.Analyze(message)

	s.logger.Info("chat message",
		"session", sessionID,
		"emotion", detected.Emotion,
		"confidence", detected.Confidence,
		"method", detected.Method,
		"length", analysis.Length,
		"mode", SelectMode(analysis),
	)

	sess.AddMessage(llm.RoleUser, message)

	req := llm.Request{
		System: BuildSystemPrompt(PromptInput{
			UserName:             sess.UserName,
			Emotion:              detected.Emotion,
			Analysis:             analysis,
			ConsecutiveQuestions: sess.ConsecutiveQuestions,
			Tag:                  s.tag(),
		}),
		Messages:  append([]llm.Message(nil), sess.History...),
		MaxTokens: MaxTokens(analysis, detected.Emotion),
	}

	text, err := s.complete(ctx, sess, req)
	if err != nil {
		return nil, err
	}

	asked := strings.Contains(text, "?")
	if analysis.WantsNoQuestion && asked {
		text = strings.ReplaceAll(text, "?", ".")
		asked = false
	}

	sess.Record(detected.Emotion, detected.Confidence, text, asked)
	sess.AddMessage(llm.RoleAssistant, text)

	reply := &Reply{
		Message:         text,
		Emotion:         detected.Emotion,
		Emoji:           emotion.Emoji(detected.Emotion),
		Confidence:      round(detected.Confidence, 2),
		DetectionMethod: detected.Method,
		SessionID:       sessionID,
		TurnCount:       sess.TurnCount,
		ModelActive:     s.analyzer.HasModel(),
	}
	if sess.UserName != "" {
		name := sess.UserName
		reply.UserName = &name
	}
	return reply, nil
}

// complete asks the provider for a reply, retrying while the answer repeats
// a recent one or the call fails. When every attempt repeats, the last
// answer is used.
func (s *Service) complete(ctx context.Context, sess *Session, req llm.Request) (string, error) {
	var text string
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		out, err := s.provider.Complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil || (attempt == MaxAttempts && text == "") {
				return "", fmt.Errorf("%s completion: %w", s.provider.Name(), err)
			}
			s.logger.Warn("completion failed, retrying", "attempt", attempt, logging.Err(err))
			continue
		}

		text = CleanReply(out)
		if !sess.IsRepetitive(text) {
			return text, nil
		}
		s.logger.Debug("repetitive reply, retrying", "attempt", attempt)
	}
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// CleanReply trims whitespace and strips markdown bold and italic markers.
func CleanReply(s string) string {
	s = strings.TrimSpace(s)
	s = boldMarkup.ReplaceAllString(s, "$1")
	return italicMarkup.ReplaceAllString(s, "$1")
}

func sessionOrDefault(id string) string {
	if strings.TrimSpace(id) == "" {
		return DefaultSessionID
	}
	return id
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// ActiveSessions returns the number of live sessions.
func (s *Service) ActiveSessions() int { return s.sessions.Len() }
