package emotion

import "testing"

func TestDetectKeyword(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain happiness", "Aku seneng banget hari ini", Happiness},
		{"negated liking is anger", "aku gak suka sama dia", Anger},
		{"negated happiness is sadness", "aku tidak bahagia", Sadness},
		{"sadness", "lagi galau nih", Sadness},
		{"fear", "aku takut ujian besok", Fear},
		{"disgust", "ih jijik", Disgust},
		{"surprise", "astaga beneran?", Surprise},
		{"upper case", "AKU MARAH", Anger},
		{"short keyword as word", "yes akhirnya", Happiness},
		{"short keyword inside word ignored", "yesterday was fine", ""},
		{"no keyword", "halo apa kabar", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectKeyword(tt.text); got != tt.want {
				t.Errorf("DetectKeyword(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectKeyword_FirstGroupWins(t *testing.T) {
	// "sedih" (sadness) appears before "senang" in the table.
	if got := DetectKeyword("senang tapi juga sedih"); got != Sadness {
		t.Errorf("DetectKeyword() = %q, want %q", got, Sadness)
	}
}

func TestCompileMatchers_WordBoundaryOnlyForShortKeywords(t *testing.T) {
	for _, m := range matchers {
		short := len([]rune(m.keyword)) <= shortKeywordLen
		if short != (m.word != nil) {
			t.Errorf("keyword %q: word regexp = %v, want %v", m.keyword, m.word != nil, short)
		}
	}
}
