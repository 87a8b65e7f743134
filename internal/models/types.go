package models

import "strings"

// Language is a supported reply and quote language
type Language string

const (
	LanguageEnglish     Language = "en"
	LanguageAzerbaijani Language = "az"

	// DefaultLanguage is used when a user never picked one
	DefaultLanguage = LanguageEnglish
)

// SupportedLanguages lists the languages accepted by /lang, primary first
var SupportedLanguages = []Language{LanguageEnglish, LanguageAzerbaijani}

// ParseLanguage returns the language for a code such as "en" or "AZ"
func ParseLanguage(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, lang := range SupportedLanguages {
		if string(lang) == code {
			return lang, true
		}
	}
	return "", false
}

// UserRecord represents a user seen by the bot
type UserRecord struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"username"`
	LastSeen    string `json:"last_seen"`
}

// QuoteEntry represents one locally stored quote
type QuoteEntry struct {
	Topic string   `json:"topic"`
	Lang  Language `json:"lang"`
	Quote string   `json:"quote"`
}

// Inbound is a text message delivered by the messaging host
type Inbound struct {
	RequestID   string
	UserID      string
	DisplayName string
	ChatID      int64
	MessageID   int
	Text        string
}
