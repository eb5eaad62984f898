package emotion

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type keywordGroup struct {
	emotion  string
	keywords []string
}

// Groups are checked in order and the first matching keyword wins, so the
// negated phrases ("gak suka", "tidak bahagia") must come before the plain
// words they contain.
var keywordTable = []keywordGroup{
	{Anger, []string{"gasuka", "ga suka", "gak suka", "tidak suka", "nggak suka", "ngga suka", "gak senang", "tidak senang", "ga seneng", "gak seneng"}},
	{Sadness, []string{"tidak bahagia", "gak bahagia", "ga bahagia", "tidak happy", "gak happy"}},
	{Disgust, []string{"gak suka banget", "benci banget", "males banget", "ogah banget"}},
	{Anger, []string{"marah", "kesel", "sebel", "jengkel", "benci", "geram", "dongkol", "ngamuk", "emosi", "kesal", "annoying", "menyebalkan", "sewot", "nyebelin", "bikin panas", "gak adil", "unfair", "jahat", "kejam", "tega", "curang", "dibohongi", "dikhianati", "disakiti", "muak", "sebal", "gondok", "gregetan", "gemes", "sialan", "bangsat", "anjir"}},
	{Sadness, []string{"sedih", "nangis", "galau", "kecewa", "bete", "down", "murung", "duka", "kehilangan", "rindu", "sepi", "sendiri", "kesepian", "susah", "sulit", "menangis", "patah hati", "sakit hati", "hancur", "gagal", "menyesal", "nyesel", "hopeless", "putus asa", "lelah", "capek", "cape", "exhausted", "overwhelmed", "huhu", "hiks", "kangen", "merana", "pilu", "nestapa", "lara"}},
	{Fear, []string{"takut", "ngeri", "seram", "cemas", "khawatir", "was-was", "panik", "deg-degan", "nervous", "gelisah", "tegang", "anxiety", "anxious", "overthinking", "kepikiran", "gak tenang", "ragu", "bimbang", "worried", "stress", "stres", "tertekan", "pressure", "trauma", "fobia", "paranoid", "insecure"}},
	{Disgust, []string{"jijik", "mual", "eneg", "geli", "eww", "jorok", "kotor", "najis", "ilfeel", "risih", "ogah", "males", "muak"}},
	{Surprise, []string{"kaget", "terkejut", "surprise", "waduh", "astaga", "shock", "tiba-tiba", "mendadak", "gak nyangka", "unexpected", "ternyata", "gak percaya", "serius", "beneran", "masa sih", "anjay", "gila", "demi apa"}},
	{Happiness, []string{"senang", "seneng", "bahagia", "gembira", "suka", "asik", "seru", "asyik", "girang", "riang", "ceria", "tertawa", "ketawa", "lucu", "haha", "yeay", "yey", "yeyy", "yes", "yess", "wow", "keren", "amazing", "excited", "mantap", "bangga", "berhasil", "sukses", "lega", "syukur", "alhamdulillah", "akhirnya", "finally", "hehe", "hihi", "wkwk", "wkwkwk", "hahaha", "happy", "hepi"}},
}

// happinessIndicators override a disagreeing model prediction.
var happinessIndicators = []string{"senang", "seneng", "happy", "hepi", "yeay", "yey", "yeyy", "hore", "asik", "seru", "mantap", "keren", "alhamdulillah", "syukur", "haha", "wkwk", "hehe"}

// shortKeywordLen is the rune length at or below which keywords must match
// as whole words.
const shortKeywordLen = 3

type matcher struct {
	emotion string
	keyword string
	word    *regexp.Regexp
}

var matchers = compileMatchers(keywordTable)

func compileMatchers(table []keywordGroup) []matcher {
	var out []matcher
	for _, g := range table {
		for _, kw := range g.keywords {
			m := matcher{emotion: g.emotion, keyword: kw}
			if utf8.RuneCountInString(kw) <= shortKeywordLen {
				m.word = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			}
			out = append(out, m)
		}
	}
	return out
}

// DetectKeyword returns the emotion of the first keyword found in text, or
// "" when none matches.
func DetectKeyword(text string) string {
	lower := strings.ToLower(text)
	for _, m := range matchers {
		if m.word != nil {
			if m.word.MatchString(lower) {
				return m.emotion
			}
			continue
		}
		if strings.Contains(lower, m.keyword) {
			return m.emotion
		}
	}
	return ""
}

func hasHappinessIndicator(lower string) bool {
	for _, ind := range happinessIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}
