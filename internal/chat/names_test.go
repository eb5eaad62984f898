package chat

import "testing"

func TestExtractUserName(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Nama aku Budi", "Budi"},
		{"nama saya adalah sari", "Sari"},
		{"halo, aku rina nih", "Rina"},
		{"panggil aja aku Tono", "Tono"},
		{"call me alex", "Alex"},
		{"perkenalkan saya Dewi", "Dewi"},
		{"aku lagi sedih", ""},
		{"aku capek", ""},
		{"aku x", ""},
		{"nama aku budi123", ""},
		{"hari ini cerah", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ExtractUserName(tt.text); got != tt.want {
				t.Errorf("ExtractUserName(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
