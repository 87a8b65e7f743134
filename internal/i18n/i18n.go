package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/hf-quote-tgbot-go/internal/config"
)

//go:embed locales/*.json
var locales embed.FS

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer from the embedded catalogues
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{cfg.DefaultLanguage}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range languages {
		if _, err := bundle.LoadMessageFileFS(locales, fmt.Sprintf("locales/%s.json", lang)); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	if _, ok := localizers[cfg.DefaultLanguage]; !ok {
		return nil, fmt.Errorf("default language %q is not among loaded languages", cfg.DefaultLanguage)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgLangSet           = "lang_set"
	MsgLangUsage         = "lang_usage"
	MsgCiteUsage         = "cite_usage"
	MsgAIQuote           = "ai_quote"
	MsgLocalQuote        = "local_quote"
	MsgQuoteNotFound     = "quote_not_found"
	MsgChatUsage         = "chat_usage"
	MsgChatResponse      = "chat_response"
	MsgChatError         = "chat_error"
	MsgRateLimitExceeded = "rate_limit_exceeded"
)
