package chat

import (
	"fmt"
	"strings"

	"github.com/paranroman/bisimo/internal/emotion"
)

// Persona is the character description every system prompt starts with.
const Persona = `Kamu adalah CIMO, teman ngobrol yang hangat di aplikasi Bisimo.
Pakai bahasa Indonesia santai seperti teman sebaya, boleh sesekali pakai emoji.
Jawab dengan jujur dan singkat kecuali user butuh penjelasan panjang.
Jangan mengaku sebagai manusia dan jangan menghakimi perasaan user.`

// Reply modes selected from the message analysis.
const (
	ModeTips   = "tips"
	ModeListen = "listen"
	ModeShort  = "short"
	ModeCasual = "casual"
)

const (
	noQuestionRule     = "Jangan tanya balik kali ini."
	maxQuestionsInARow = 3
	listenLengthCutoff = 50
	shortLengthCutoff  = 20
)

// PromptInput carries what the system prompt depends on.
type PromptInput struct {
	UserName             string
	Emotion              string
	Analysis             emotion.MessageAnalysis
	ConsecutiveQuestions int
	// Tag is a random number embedded in the prompt so repeated prompts
	// differ.
	Tag int
}

// SelectMode picks the reply mode for an analyzed message.
func SelectMode(a emotion.MessageAnalysis) string {
	switch {
	case a.NeedsDetailedAnswer:
		return ModeTips
	case a.IsSharing || a.Length > listenLengthCutoff:
		return ModeListen
	case a.IsShort || a.Length < shortLengthCutoff:
		return ModeShort
	default:
		return ModeCasual
	}
}

// BuildSystemPrompt assembles the persona, user context, mode instructions
// and emotion guidance.
func BuildSystemPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString(Persona)

	if in.UserName != "" {
		fmt.Fprintf(&b, "\nNama user: %s (sebut sesekali saja)", in.UserName)
	}
	if in.Emotion != "" && in.Emotion != emotion.Neutral {
		fmt.Fprintf(&b, "\nEmosi user: %s", emotion.Label(in.Emotion))
	}

	noQuestions := in.Analysis.WantsNoQuestion || in.ConsecutiveQuestions >= maxQuestionsInARow

	switch SelectMode(in.Analysis) {
	case ModeTips:
		b.WriteString("\n\nMODE: TIPS\n")
		b.WriteString("User minta saran atau penjelasan. Jawab lengkap dan runtut.\n")
		b.WriteString("- Pakai emoji (✨💡🌟) sebagai penanda poin, bukan angka\n")
		b.WriteString("- Tetap santai dan tutup dengan kalimat penyemangat")
	case ModeListen:
		if noQuestions {
			b.WriteString("\n" + noQuestionRule)
		}
		b.WriteString("\n\nMODE: DENGERIN CURHAT\n")
		b.WriteString("User sedang bercerita. Tunjukkan kamu mendengarkan.\n")
		b.WriteString("- Akui perasaannya sebelum memberi saran\n")
		b.WriteString("- Empati dulu, solusi belakangan")
	case ModeShort:
		b.WriteString("\n\nMODE: CHAT SINGKAT\n")
		b.WriteString("Pesan user pendek. Balas pendek dan ramah juga, satu atau dua kalimat.")
	default:
		if noQuestions {
			b.WriteString("\n" + noQuestionRule)
		}
		b.WriteString("\n\nMODE: NGOBROL\n")
		b.WriteString("Samakan panjang balasan dengan panjang pesan user.")
	}
	fmt.Fprintf(&b, "\n[%d]", in.Tag)

	if guide, ok := emotionGuidance[in.Emotion]; ok {
		b.WriteString("\n\n" + guide)
	}
	return b.String()
}

var emotionGuidance = map[string]string{
	emotion.Happiness: "😊 User sedang senang. Ikut senang dan beri dukungan.",
	emotion.Sadness:   "💙 User sedang sedih. Tunjukkan empati dan jadilah tempat bersandar.",
	emotion.Anger:     "🧡 User sedang kesal. Validasi perasaannya tanpa menghakimi.",
	emotion.Fear:      "💜 User sedang cemas. Tenangkan dan cari tahu apa yang dikhawatirkan.",
}

// MaxTokens returns the completion budget for a reply.
func MaxTokens(a emotion.MessageAnalysis, detected string) int {
	switch {
	case a.NeedsDetailedAnswer:
		return 600
	case a.IsSharing || a.Length > listenLengthCutoff:
		return 300
	case detected == emotion.Sadness || detected == emotion.Anger || detected == emotion.Fear:
		return 250
	case a.IsShort || a.Length < shortLengthCutoff:
		return 100
	default:
		return 180
	}
}
