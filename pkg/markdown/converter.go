package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// MaxMessageLength is the longest text Telegram accepts in one message
const MaxMessageLength = 4096

var (
	paragraphRe  = regexp.MustCompile(`(?s)<p>(.*?)</p>`)
	codeBlockRe  = regexp.MustCompile(`(?s)<pre><code(?: class="[^"]*")?>(.*?)</code></pre>`)
	tagRe        = regexp.MustCompile(`</?([a-zA-Z0-9]+)(?:\s[^>]*)?/?>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)

	// tags Telegram's HTML parse mode understands
	supportedTags = map[string]bool{
		"b": true, "i": true, "u": true, "s": true,
		"code": true, "pre": true, "a": true,
	}

	tagRenames = strings.NewReplacer(
		"<strong>", "<b>", "</strong>", "</b>",
		"<em>", "<i>", "</em>", "</i>",
		"<del>", "<s>", "</del>", "</s>",
		"<ul>", "", "</ul>", "", "<ol>", "", "</ol>", "",
		"<li>", "• ", "</li>", "\n",
		"<br>", "\n", "<br/>", "\n", "<br />", "\n",
	)
)

// ToTelegramHTML renders a reply written in markdown as Telegram HTML
func ToTelegramHTML(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	html := string(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	html = paragraphRe.ReplaceAllString(html, "$1\n")
	html = codeBlockRe.ReplaceAllString(html, "<pre>$1</pre>")
	html = tagRenames.Replace(html)

	html = tagRe.ReplaceAllStringFunc(html, func(match string) string {
		name := tagRe.FindStringSubmatch(match)[1]
		if supportedTags[strings.ToLower(name)] {
			return match
		}
		return ""
	})

	html = blankLinesRe.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}

// Truncate shortens text to Telegram's message limit without splitting a rune
func Truncate(text string) string {
	if len(text) <= MaxMessageLength {
		return text
	}
	cut := MaxMessageLength - len("…")
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
