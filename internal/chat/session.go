package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/paranroman/bisimo/internal/llm"
)

// Session history limits.
const (
	MaxHistory        = 12
	MaxRecentReplies  = 5
	MaxEmotionHistory = 10
	replySnippetLen   = 100
)

// DefaultSessionID is used when a request does not name a session.
const DefaultSessionID = "default"

// EmotionSample is one detected emotion in a session's history.
type EmotionSample struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// Session is the conversation state of one user.
type Session struct {
	mu sync.Mutex

	ID                   string
	History              []llm.Message
	RecentReplies        []string
	Emotions             []EmotionSample
	TurnCount            int
	ConsecutiveQuestions int
	LastEmotion          string
	UserName             string
	LastActive           time.Time
}

func newSession(id string) *Session {
	return &Session{ID: id, LastEmotion: "neutral", LastActive: time.Now()}
}

// AddMessage appends to the history, keeping the most recent MaxHistory
// messages.
func (s *Session) AddMessage(role, content string) {
	s.History = append(s.History, llm.Message{Role: role, Content: content})
	if n := len(s.History); n > MaxHistory {
		s.History = append([]llm.Message(nil), s.History[n-MaxHistory:]...)
	}
}

// Record updates the counters after a completed exchange.
func (s *Session) Record(emotion string, confidence float64, reply string, botAsked bool) {
	s.TurnCount++
	s.LastEmotion = emotion
	s.LastActive = time.Now()

	s.Emotions = append(s.Emotions, EmotionSample{emotion, confidence})
	if n := len(s.Emotions); n > MaxEmotionHistory {
		s.Emotions = append([]EmotionSample(nil), s.Emotions[n-MaxEmotionHistory:]...)
	}

	s.RecentReplies = append(s.RecentReplies, prefix(reply, replySnippetLen))
	if n := len(s.RecentReplies); n > MaxRecentReplies {
		s.RecentReplies = append([]string(nil), s.RecentReplies[n-MaxRecentReplies:]...)
	}

	if botAsked {
		s.ConsecutiveQuestions++
	} else {
		s.ConsecutiveQuestions = 0
	}
}

// SetUserName stores name unless one is already known.
func (s *Session) SetUserName(name string) {
	if name != "" && s.UserName == "" {
		s.UserName = name
	}
}

// IsRepetitive reports whether reply is too close to one of the last three
// replies: the same opening, or mostly the same characters in place.
func (s *Session) IsRepetitive(reply string) bool {
	if len(s.RecentReplies) == 0 {
		return false
	}
	recent := s.RecentReplies
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	lower := strings.ToLower(reply)
	head := prefix(lower, 30)
	window := []rune(prefix(lower, 50))
	for _, old := range recent {
		oldLower := strings.ToLower(old)
		if head == prefix(oldLower, 30) {
			return true
		}
		if samePositions(window, []rune(prefix(oldLower, 50))) > 35 {
			return true
		}
	}
	return false
}

func samePositions(a, b []rune) int {
	n := min(len(a), len(b))
	same := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			same++
		}
	}
	return same
}

// prefix returns at most n runes of s.
func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// SessionManager is a concurrency-safe registry of sessions keyed by ID.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates an empty registry.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Get returns the session with id, creating it on first use.
func (m *SessionManager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		s = newSession(id)
		m.sessions[id] = s
	}
	return s
}

// Reset discards the session with id. Resetting an unknown session is a no-op.
func (m *SessionManager) Reset(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Prune drops sessions idle for longer than maxIdle and returns how many
// were removed. Sessions in the middle of a reply are skipped.
func (m *SessionManager) Prune(maxIdle time.Duration) int {
	m.mu.Lock()
	snapshot := make(map[string]*Session, len(m.sessions))
	for id, s := range m.sessions {
		snapshot[id] = s
	}
	m.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	var idle []string
	for id, s := range snapshot {
		if !s.mu.TryLock() {
			continue
		}
		if s.LastActive.Before(cutoff) {
			idle = append(idle, id)
		}
		s.mu.Unlock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for _, id := range idle {
		if m.sessions[id] == snapshot[id] {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
