package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hf-quote-tgbot-go/internal/i18n"
	"github.com/hf-quote-tgbot-go/internal/middleware"
	"github.com/hf-quote-tgbot-go/internal/models"
	"github.com/hf-quote-tgbot-go/internal/services/ai"
	"github.com/hf-quote-tgbot-go/internal/services/prompt"
	"github.com/hf-quote-tgbot-go/internal/services/storage"
	"github.com/hf-quote-tgbot-go/pkg/logger"
)

// LastSeenLayout is the timestamp format stored in users.last_seen
const LastSeenLayout = "02.01.2006 15:04"

// QuoteLookup finds a local quote for a topic
type QuoteLookup interface {
	Lookup(topic string, lang models.Language) (string, bool)
}

// LanguageStore holds each user's reply language
type LanguageStore interface {
	Get(userID string) (models.Language, bool)
	Set(userID string, lang models.Language)
	Resolve(userID string, def models.Language) models.Language
}

// DispatchRecorder receives per-command metrics
type DispatchRecorder interface {
	RecordCommandExecuted(command string)
	RecordInference(mode, result string, duration time.Duration)
	RecordQuoteSource(source string)
	RecordRateLimitExceeded(command string)
}

// Dispatcher turns one inbound message into at most one reply
type Dispatcher struct {
	directory   storage.Directory
	inference   ai.Client
	quotes      QuoteLookup
	prefs       LanguageStore
	limiter     middleware.RateLimiter
	localizer   *i18n.Localizer
	metrics     DispatchRecorder
	location    *time.Location
	now         func() time.Time
	botUsername string
	logger      logrus.FieldLogger
}

// NewDispatcher creates a dispatcher. limiter and metrics may be nil.
func NewDispatcher(
	directory storage.Directory,
	inference ai.Client,
	quotes QuoteLookup,
	prefs LanguageStore,
	limiter middleware.RateLimiter,
	localizer *i18n.Localizer,
	metrics DispatchRecorder,
	location *time.Location,
	logger logrus.FieldLogger,
) *Dispatcher {
	if location == nil {
		location = time.UTC
	}
	return &Dispatcher{
		directory: directory,
		inference: inference,
		quotes:    quotes,
		prefs:     prefs,
		limiter:   limiter,
		localizer: localizer,
		metrics:   metrics,
		location:  location,
		now:       time.Now,
		logger:    logger,
	}
}

// SetBotUsername makes the dispatcher ignore commands addressed to other bots
func (d *Dispatcher) SetBotUsername(username string) {
	d.botUsername = username
}

// SetClock replaces the time source used for last_seen
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// Dispatch records the sender in the user directory and answers known commands.
// ok is false when the message needs no reply.
func (d *Dispatcher) Dispatch(ctx context.Context, in models.Inbound) (reply string, ok bool) {
	log := logger.WithRequest(d.logger, in.RequestID, in.UserID)

	d.touchUser(ctx, in, log)

	cmd := ParseCommand(in.Text)
	if cmd.Kind == CommandNone {
		return "", false
	}
	if cmd.Mention != "" && d.botUsername != "" && !strings.EqualFold(cmd.Mention, d.botUsername) {
		return "", false
	}

	log = log.WithField("command", cmd.Kind.String())
	if d.metrics != nil {
		d.metrics.RecordCommandExecuted(cmd.Kind.String())
	}

	lang := d.prefs.Resolve(in.UserID, models.DefaultLanguage)

	switch cmd.Kind {
	case CommandLang:
		return d.handleLang(in, cmd, lang, log), true
	case CommandCite:
		return d.handleCite(ctx, in, cmd, lang, log), true
	case CommandChat:
		return d.handleChat(ctx, in, cmd, lang, log), true
	}
	return "", false
}

// touchUser upserts the sender. Failures are logged and never reach the user.
func (d *Dispatcher) touchUser(ctx context.Context, in models.Inbound, log *logrus.Entry) {
	record := models.UserRecord{
		UserID:      in.UserID,
		DisplayName: in.DisplayName,
		LastSeen:    d.now().In(d.location).Format(LastSeenLayout),
	}
	if err := d.directory.Upsert(ctx, record); err != nil {
		log.WithError(err).Error("Failed to record user")
	}
}

func (d *Dispatcher) handleLang(in models.Inbound, cmd Command, lang models.Language, log *logrus.Entry) string {
	if len(cmd.Args) == 0 {
		return d.text(lang, i18n.MsgLangUsage, nil)
	}
	chosen, ok := models.ParseLanguage(cmd.Args[0])
	if !ok {
		log.WithField("code", cmd.Args[0]).Debug("Unsupported language code")
		return d.text(lang, i18n.MsgLangUsage, nil)
	}

	d.prefs.Set(in.UserID, chosen)
	log.WithField("lang", chosen).Info("Language preference updated")
	return d.text(chosen, i18n.MsgLangSet, map[string]interface{}{"Lang": string(chosen)})
}

func (d *Dispatcher) handleCite(ctx context.Context, in models.Inbound, cmd Command, lang models.Language, log *logrus.Entry) string {
	topic := strings.ToLower(cmd.Rest(0))
	if topic == "" {
		return d.text(lang, i18n.MsgCiteUsage, nil)
	}
	if !d.allow(in.UserID, cmd) {
		return d.text(lang, i18n.MsgRateLimitExceeded, nil)
	}

	res := d.generate(ctx, prompt.ModeQuote, prompt.StylePrompt(topic, prompt.StyleNone, prompt.ModeQuote, lang), log)
	if res.OK() && usableQuote(res.Text) {
		d.recordQuoteSource("ai")
		return d.text(lang, i18n.MsgAIQuote, map[string]interface{}{"Quote": res.Text})
	}

	log.WithFields(logrus.Fields{
		"result": res.Kind.String(),
		"detail": res.Text,
		"topic":  topic,
	}).Info("Model quote unavailable, falling back to local quotes")

	if quote, found := d.quotes.Lookup(topic, lang); found {
		d.recordQuoteSource("local")
		return d.text(lang, i18n.MsgLocalQuote, map[string]interface{}{"Quote": quote})
	}

	d.recordQuoteSource("none")
	return d.text(lang, i18n.MsgQuoteNotFound, nil)
}

func (d *Dispatcher) handleChat(ctx context.Context, in models.Inbound, cmd Command, lang models.Language, log *logrus.Entry) string {
	if len(cmd.Args) == 0 {
		return d.text(lang, i18n.MsgChatUsage, nil)
	}

	// with more than one word the first is always the style slot; an
	// unknown name yields StyleNone and the rest goes through as is
	style := prompt.StyleNone
	text := cmd.Rest(0)
	if len(cmd.Args) > 1 {
		style, _ = prompt.ParseStyle(cmd.Args[0])
		text = cmd.Rest(1)
	}

	if !d.allow(in.UserID, cmd) {
		return d.text(lang, i18n.MsgRateLimitExceeded, nil)
	}

	res := d.generate(ctx, prompt.ModeChat, prompt.StylePrompt(text, style, prompt.ModeChat, lang), log.WithField("style", string(style)))
	switch res.Kind {
	case ai.KindSuccess:
		return d.text(lang, i18n.MsgChatResponse, map[string]interface{}{"Text": res.Text})
	case ai.KindRemoteError, ai.KindTimeout, ai.KindMalformed:
		return d.text(lang, i18n.MsgChatError, map[string]interface{}{"Error": res.Text})
	default:
		return d.text(lang, i18n.MsgChatError, map[string]interface{}{"Error": res.Kind.String()})
	}
}

func (d *Dispatcher) generate(ctx context.Context, mode prompt.Mode, p string, log *logrus.Entry) ai.Result {
	start := time.Now()
	res := d.inference.Generate(ctx, p)
	elapsed := time.Since(start)

	if d.metrics != nil {
		d.metrics.RecordInference(string(mode), res.Kind.String(), elapsed)
	}
	log.WithFields(logrus.Fields{
		"mode":     mode,
		"result":   res.Kind.String(),
		"duration": elapsed,
	}).Debug("Inference finished")
	return res
}

func (d *Dispatcher) allow(userID string, cmd Command) bool {
	if d.limiter == nil || d.limiter.Allow(userID) {
		return true
	}
	if d.metrics != nil {
		d.metrics.RecordRateLimitExceeded(cmd.Kind.String())
	}
	return false
}

func (d *Dispatcher) recordQuoteSource(source string) {
	if d.metrics != nil {
		d.metrics.RecordQuoteSource(source)
	}
}

func (d *Dispatcher) text(lang models.Language, id string, data map[string]interface{}) string {
	return d.localizer.Get(string(lang), id, data)
}

// usableQuote rejects blank text and anything mentioning "error", which the
// model endpoint sometimes returns as plain generated text
func usableQuote(text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && !strings.Contains(strings.ToLower(text), "error")
}
