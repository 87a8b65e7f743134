// Package prompt turns user text into the prompt sent to the text-generation model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/hf-quote-tgbot-go/internal/models"
)

// Mode selects between freeform chat and quote generation
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeQuote Mode = "quote"
)

// Style is a named persona applied to chat prompts
type Style string

const (
	StyleNone        Style = ""
	StyleKid         Style = "kid"
	StyleTeacher     Style = "teacher"
	StylePirate      Style = "pirate"
	StylePoet        Style = "poet"
	StyleScientist   Style = "scientist"
	StyleRobot       Style = "robot"
	StyleStoryteller Style = "storyteller"
	StyleProgrammer  Style = "programmer"
	StylePhilosopher Style = "philosopher"
	StyleJournalist  Style = "journalist"
	StyleComedian    Style = "comedian"
)

var stylePrefixes = map[Style]string{
	StyleKid:         "Imagine you're a 7-year-old kid. Explain it in a fun and simple way: ",
	StyleTeacher:     "Explain like a high school physics teacher: ",
	StylePirate:      "Talk like a pirate and explain: ",
	StylePoet:        "Write a short emotional poem about: ",
	StyleScientist:   "Explain scientifically and clearly: ",
	StyleRobot:       "Respond like a logical robot with no emotions: ",
	StyleStoryteller: "Turn this into a short creative story: ",
	StyleProgrammer:  "Explain this to a beginner programmer: ",
	StylePhilosopher: "Analyze this deeply like a philosopher: ",
	StyleJournalist:  "Summarize the topic like a news article: ",
	StyleComedian:    "Be funny like a stand-up comedian while explaining: ",
}

var styleOrder = []Style{
	StyleKid, StyleTeacher, StylePirate, StylePoet, StyleScientist, StyleRobot,
	StyleStoryteller, StyleProgrammer, StylePhilosopher, StyleJournalist, StyleComedian,
}

const (
	quoteTemplateEnglish     = "Write a meaningful and short quote about: '%s'."
	quoteTemplateAzerbaijani = "Mövzu haqqında mənalı və qısa bir sitat yaz: '%s'."
)

// Styles returns every supported persona in a stable order
func Styles() []Style {
	out := make([]Style, len(styleOrder))
	copy(out, styleOrder)
	return out
}

// ParseStyle resolves a persona name, ignoring case
func ParseStyle(name string) (Style, bool) {
	style := Style(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := stylePrefixes[style]; ok {
		return style, true
	}
	return StyleNone, false
}

// Prefix returns the fixed instruction that precedes user text for the style
func (s Style) Prefix() string {
	return stylePrefixes[s]
}

// StylePrompt builds the prompt for text. Quote mode ignores style and only
// looks at lang; chat mode wraps text in the persona template, or returns it
// untouched when the style is unset or unknown.
func StylePrompt(text string, style Style, mode Mode, lang models.Language) string {
	if mode == ModeQuote {
		if lang == models.LanguageAzerbaijani {
			return fmt.Sprintf(quoteTemplateAzerbaijani, text)
		}
		return fmt.Sprintf(quoteTemplateEnglish, text)
	}

	prefix, ok := stylePrefixes[style]
	if !ok {
		return text
	}
	return prefix + text
}
