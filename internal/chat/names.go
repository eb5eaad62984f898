package chat

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`nama\s+(?:saya|aku|gue|gw)\s+(?:adalah\s+)?(\w+)`),
	regexp.MustCompile(`(?:saya|aku|gue|gw)\s+(?:adalah\s+)?(\w+)(?:\s+ya|\s+nih|\s+btw)?$`),
	regexp.MustCompile(`panggil\s+(?:aja\s+)?(?:saya|aku)\s+(\w+)`),
	regexp.MustCompile(`(?:call me|im|i am|i'm)\s+(\w+)`),
	regexp.MustCompile(`perkenalkan\s+(?:nama\s+)?(?:saya|aku)\s+(\w+)`),
}

// notNames are words the patterns above capture in ordinary sentences.
var notNames = toSet(
	"adalah", "ini", "itu", "mau", "lagi", "sedang", "akan", "bisa", "tidak",
	"gak", "ga", "nggak", "udah", "sudah", "belum", "juga", "saja", "aja",
	"dong", "deh", "sih", "nih", "kan", "ya", "yah", "tau", "tahu",
	"jelek", "bagus", "baik", "buruk", "senang", "sedih", "marah", "takut",
	"bosan", "capek", "lelah", "stress", "galau", "bingung", "males",
	"orang", "manusia", "cewek", "cowok", "teman", "temen", "sahabat",
	"kamu", "kau", "dia", "mereka", "kita", "kami", "saya", "aku", "gue", "gw",
	"yang", "di", "ke", "dari", "untuk", "dengan", "pada", "oleh",
	"halo", "hai", "hey", "hi", "hello",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// ExtractUserName finds a self-introduction such as "nama aku Budi" or
// "panggil aja aku Sari" and returns the capitalized name, or "".
func ExtractUserName(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, re := range namePatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if name := m[1]; plausibleName(name) {
			return capitalize(name)
		}
	}
	return ""
}

func plausibleName(s string) bool {
	if _, stop := notNames[s]; stop {
		return false
	}
	n := utf8.RuneCountInString(s)
	if n < 2 || n > 15 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
