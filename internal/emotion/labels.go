// Package emotion classifies the emotional tone of a chat message using a
// keyword table, optionally combined with an external sentiment model.
package emotion

import (
	"sort"
	"strings"
)

// Canonical emotion labels.
const (
	Anger     = "anger"
	Fear      = "fear"
	Happiness = "happiness"
	Sadness   = "sadness"
	Surprise  = "surprise"
	Disgust   = "disgust"
	Neutral   = "neutral"
	Love      = "love"
)

// DefaultEmoji is shown for labels without a display entry.
const DefaultEmoji = "💭"

var labelAliases = map[string]string{
	"anger":     Anger,
	"angry":     Anger,
	"marah":     Anger,
	"fear":      Fear,
	"takut":     Fear,
	"afraid":    Fear,
	"happiness": Happiness,
	"happy":     Happiness,
	"senang":    Happiness,
	"joy":       Happiness,
	"love":      Happiness,
	"cinta":     Happiness,
	"sadness":   Sadness,
	"sad":       Sadness,
	"sedih":     Sadness,
	"surprise":  Surprise,
	"surprised": Surprise,
	"kaget":     Surprise,
	"disgust":   Disgust,
	"disgusted": Disgust,
	"jijik":     Disgust,
	"neutral":   Neutral,
	"netral":    Neutral,
}

// Normalize maps a raw model or user label onto a canonical label.
// Unknown labels are returned lower-cased and trimmed; empty input yields "".
func Normalize(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return ""
	}
	if canon, ok := labelAliases[l]; ok {
		return canon
	}
	return l
}

// Aliases returns a copy of the normalization table.
func Aliases() map[string]string {
	out := make(map[string]string, len(labelAliases))
	for k, v := range labelAliases {
		out[k] = v
	}
	return out
}

// Display holds how an emotion is presented to the user.
type Display struct {
	Emoji string `json:"emoji"`
	Label string `json:"label"`
}

var displays = map[string]Display{
	Happiness: {"😊", "senang"},
	Sadness:   {"😢", "sedih"},
	Anger:     {"😤", "kesal"},
	Fear:      {"😰", "cemas"},
	Surprise:  {"😮", "kaget"},
	Disgust:   {"🤢", "risih"},
	Neutral:   {"😐", "netral"},
	Love:      {"🥰", "sayang"},
}

// DisplayFor returns the display entry of an emotion.
func DisplayFor(emotion string) (Display, bool) {
	d, ok := displays[emotion]
	return d, ok
}

// Emoji returns the emoji of an emotion, or DefaultEmoji.
func Emoji(emotion string) string {
	if d, ok := displays[emotion]; ok {
		return d.Emoji
	}
	return DefaultEmoji
}

// Label returns the Indonesian label of an emotion, or the emotion itself.
func Label(emotion string) string {
	if d, ok := displays[emotion]; ok {
		return d.Label
	}
	return emotion
}

// Supported lists the emotions that have a display entry, sorted.
func Supported() []string {
	out := make([]string, 0, len(displays))
	for k := range displays {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultLabels is the class index mapping used when the model does not
// publish its own.
func DefaultLabels() map[int]string {
	return map[int]string{
		0: Anger,
		1: Fear,
		2: Happiness,
		3: Sadness,
		4: Surprise,
		5: Disgust,
		6: Neutral,
	}
}
