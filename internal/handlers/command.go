package handlers

import (
	"strings"
	"unicode"
)

// CommandKind identifies one of the commands the bot answers
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandLang
	CommandCite
	CommandChat
)

func (k CommandKind) String() string {
	switch k {
	case CommandLang:
		return "lang"
	case CommandCite:
		return "cite"
	case CommandChat:
		return "ai"
	default:
		return "none"
	}
}

var commandTokens = map[string]CommandKind{
	"/lang":    CommandLang,
	"/cite":    CommandCite,
	"/ai":      CommandChat,
	"/bot":     CommandChat,
	"/chatgpt": CommandChat,
}

// Command is a tokenized inbound message
type Command struct {
	Kind CommandKind
	// Name is the command token as typed, without the @mention suffix
	Name string
	// Mention is the bot username from "/cmd@username", if any
	Mention string
	Args    []string
	rest    string
}

// Rest returns the raw text after the first n arguments, trimmed. Inner
// whitespace and newlines are kept as the user typed them.
func (c Command) Rest(n int) string {
	return skipFields(c.rest, n)
}

// ParseCommand splits text on whitespace and matches the first token exactly
// against the known commands. "/citefoo" is not "/cite".
func ParseCommand(text string) Command {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{Kind: CommandNone}
	}

	token := text
	rest := ""
	if end := strings.IndexFunc(text, unicode.IsSpace); end >= 0 {
		token, rest = text[:end], text[end:]
	}

	name, mention, _ := strings.Cut(token, "@")
	kind, ok := commandTokens[strings.ToLower(name)]
	if !ok {
		return Command{Kind: CommandNone, Name: name, Mention: mention}
	}

	return Command{
		Kind:    kind,
		Name:    name,
		Mention: mention,
		Args:    strings.Fields(rest),
		rest:    rest,
	}
}

func skipFields(s string, n int) string {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	for i := 0; i < n && s != ""; i++ {
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			return ""
		}
		s = strings.TrimLeftFunc(s[end:], unicode.IsSpace)
	}
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
