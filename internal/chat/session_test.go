package chat

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestSession_HistoryCap(t *testing.T) {
	s := newSession("a")
	for i := 0; i < MaxHistory+5; i++ {
		s.AddMessage("user", fmt.Sprintf("m%d", i))
	}
	if len(s.History) != MaxHistory {
		t.Fatalf("len(History) = %d, want %d", len(s.History), MaxHistory)
	}
	if s.History[0].Content != "m5" {
		t.Errorf("oldest kept = %q, want m5", s.History[0].Content)
	}
}

func TestSession_Record(t *testing.T) {
	s := newSession("a")
	long := strings.Repeat("x", 150)

	for i := 0; i < MaxEmotionHistory+2; i++ {
		s.Record("sadness", 0.8, long, true)
	}
	if s.TurnCount != MaxEmotionHistory+2 {
		t.Errorf("TurnCount = %d", s.TurnCount)
	}
	if len(s.Emotions) != MaxEmotionHistory {
		t.Errorf("len(Emotions) = %d, want %d", len(s.Emotions), MaxEmotionHistory)
	}
	if len(s.RecentReplies) != MaxRecentReplies {
		t.Errorf("len(RecentReplies) = %d, want %d", len(s.RecentReplies), MaxRecentReplies)
	}
	if got := len([]rune(s.RecentReplies[0])); got != replySnippetLen {
		t.Errorf("reply snippet length = %d, want %d", got, replySnippetLen)
	}
	if s.ConsecutiveQuestions != MaxEmotionHistory+2 {
		t.Errorf("ConsecutiveQuestions = %d", s.ConsecutiveQuestions)
	}

	s.Record("neutral", 0.5, "oke", false)
	if s.ConsecutiveQuestions != 0 {
		t.Errorf("ConsecutiveQuestions = %d after a statement, want 0", s.ConsecutiveQuestions)
	}
	if s.LastEmotion != "neutral" {
		t.Errorf("LastEmotion = %q", s.LastEmotion)
	}
}

func TestSession_UserNameSetOnce(t *testing.T) {
	s := newSession("a")
	s.SetUserName("Budi")
	s.SetUserName("Sari")
	if s.UserName != "Budi" {
		t.Errorf("UserName = %q, want Budi", s.UserName)
	}
}

func TestSession_IsRepetitive(t *testing.T) {
	s := newSession("a")
	s.Record("neutral", 0.5, "Hai juga! Senang bisa ngobrol sama kamu hari ini", false)

	tests := []struct {
		name  string
		reply string
		want  bool
	}{
		{"same opening", "HAI JUGA! Senang bisa ngobrol sama kamu, ada cerita apa?", true},
		{"mostly same characters", "Hai juga! Senang bisa ngobrol sama kamu hari itu", true},
		{"different", "Wah, seru banget ceritanya!", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.IsRepetitive(tt.reply); got != tt.want {
				t.Errorf("IsRepetitive(%q) = %v, want %v", tt.reply, got, tt.want)
			}
		})
	}
}

func TestSession_IsRepetitiveOnlyLastThree(t *testing.T) {
	s := newSession("a")
	s.Record("neutral", 0.5, "Balasan pertama yang cukup panjang sekali", false)
	s.Record("neutral", 0.5, "Kedua", false)
	s.Record("neutral", 0.5, "Ketiga", false)
	s.Record("neutral", 0.5, "Keempat", false)

	if s.IsRepetitive("Balasan pertama yang cukup panjang sekali") {
		t.Error("reply older than the last three should not count")
	}
}

func TestSessionManager(t *testing.T) {
	m := NewSessionManager()
	a := m.Get("a")
	if m.Get("a") != a {
		t.Fatal("Get should return the same session")
	}
	m.Get("b")
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}

	m.Reset("a")
	m.Reset("missing")
	if m.Len() != 1 {
		t.Fatalf("Len() after reset = %d, want 1", m.Len())
	}
	if m.Get("a") == a {
		t.Error("reset session should be recreated fresh")
	}
}

func TestSessionManager_Prune(t *testing.T) {
	m := NewSessionManager()
	old := m.Get("old")
	old.LastActive = time.Now().Add(-2 * time.Hour)
	m.Get("fresh")

	if n := m.Prune(time.Hour); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}
