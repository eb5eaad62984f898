package emotion

import (
	"strings"
	"unicode/utf8"
)

var (
	adviceMarkers = []string{
		"gimana cara", "bagaimana cara", "cara ", "tips ", "gimana biar",
		"bagaimana agar", "gimana supaya", "apa yang harus", "harus gimana",
		"minta saran", "butuh saran", "kasih saran", "beri saran",
		"tolong jelaskan", "jelaskan", "apa itu", "apakah", "mengapa",
		"kenapa bisa", "how to", "gimana sih", "caranya gimana",
		"langkah", "step", "tutorial", "guide", "panduan",
	}
	questionMarkers = []string{"?", "gimana", "bagaimana", "kenapa", "mengapa", "apa ", "siapa", "kapan", "dimana", "berapa", "boleh gak", "bisa gak", "apakah", "mana ", "yang mana"}
	sharingMarkers  = []string{"jadi", "terus", "tadi", "kemarin", "waktu", "pas", "pokoknya", "ceritanya", "soalnya", "gara-gara", "karena", "aku lagi", "gue lagi", "lagi ", "curhat", "cerita"}
	noQuestionMarks = []string{"jangan tanya", "stop tanya", "berhenti tanya", "gak usah tanya", "udah jangan", "iss", "ish", "hentikan"}
)

// Message length thresholds, in runes.
const (
	sharingLength = 40
	shortLength   = 15
)

// MessageAnalysis describes the shape of a user message.
type MessageAnalysis struct {
	NeedsDetailedAnswer bool `json:"needs_detailed_answer"`
	IsQuestion          bool `json:"is_question"`
	IsSharing           bool `json:"is_sharing"`
	IsShort             bool `json:"is_short"`
	WantsNoQuestion     bool `json:"wants_no_question"`
	Length              int  `json:"length"`
}

// Analyze classifies a message by marker phrases and length.
func Analyze(text string) MessageAnalysis {
	lower := strings.ToLower(text)
	n := utf8.RuneCountInString(text)

	return MessageAnalysis{
		NeedsDetailedAnswer: containsAny(lower, adviceMarkers),
		IsQuestion:          containsAny(lower, questionMarkers),
		IsSharing:           n > sharingLength || containsAny(lower, sharingMarkers),
		IsShort:             n < shortLength,
		WantsNoQuestion:     containsAny(lower, noQuestionMarks),
		Length:              n,
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
