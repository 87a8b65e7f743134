package handlers

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/hf-quote-tgbot-go/internal/models"
	"github.com/hf-quote-tgbot-go/pkg/logger"
	"github.com/hf-quote-tgbot-go/pkg/markdown"
)

// Sender delivers outgoing messages; *tgbotapi.BotAPI satisfies it
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// MessageDispatcher produces the reply for one inbound message
type MessageDispatcher interface {
	Dispatch(ctx context.Context, in models.Inbound) (string, bool)
}

// MessageRecorder receives per-message metrics
type MessageRecorder interface {
	RecordMessageReceived(chatType string)
	RecordMessageProcessed(status string)
}

// TelegramHandler feeds Telegram updates to the dispatcher on a bounded worker pool
type TelegramHandler struct {
	dispatcher MessageDispatcher
	sender     Sender
	selfID     int64
	workers    *pool.Pool
	metrics    MessageRecorder
	logger     logrus.FieldLogger
}

// NewTelegramHandler creates a handler running at most maxWorkers messages at once.
// selfID is the bot's own user id; its messages are ignored.
func NewTelegramHandler(
	dispatcher MessageDispatcher,
	sender Sender,
	selfID int64,
	maxWorkers int,
	metrics MessageRecorder,
	logger logrus.FieldLogger,
) *TelegramHandler {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &TelegramHandler{
		dispatcher: dispatcher,
		sender:     sender,
		selfID:     selfID,
		workers:    pool.New().WithMaxGoroutines(maxWorkers),
		metrics:    metrics,
		logger:     logger,
	}
}

// HandleUpdate schedules the update's message. It blocks only while every worker is busy.
func (h *TelegramHandler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	in, ok := h.toInbound(update)
	if !ok {
		return
	}

	if h.metrics != nil {
		h.metrics.RecordMessageReceived(chatType(update.Message.Chat))
	}

	h.workers.Go(func() {
		h.process(ctx, in)
	})
}

// Wait blocks until every scheduled message has been handled.
// The handler must not receive updates afterwards.
func (h *TelegramHandler) Wait() {
	h.workers.Wait()
}

func (h *TelegramHandler) process(ctx context.Context, in models.Inbound) {
	log := logger.WithRequest(h.logger, in.RequestID, in.UserID)

	reply, ok := h.dispatcher.Dispatch(ctx, in)
	if !ok {
		h.recordProcessed("ignored")
		return
	}

	if err := h.send(in, reply, log); err != nil {
		log.WithError(err).Error("Failed to send reply")
		h.recordProcessed("error")
		return
	}
	h.recordProcessed("success")
}

// send tries Telegram HTML first and falls back to plain text
func (h *TelegramHandler) send(in models.Inbound, reply string, log *logrus.Entry) error {
	reply = markdown.Truncate(reply)

	msg := tgbotapi.NewMessage(in.ChatID, markdown.ToTelegramHTML(reply))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = in.MessageID

	if _, err := h.sender.Send(msg); err != nil {
		log.WithError(err).Warn("Failed to send HTML reply, trying plain text")
		msg.ParseMode = ""
		msg.Text = reply
		if _, err := h.sender.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (h *TelegramHandler) toInbound(update tgbotapi.Update) (models.Inbound, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return models.Inbound{}, false
	}
	if msg.From.ID == h.selfID || strings.TrimSpace(msg.Text) == "" {
		return models.Inbound{}, false
	}

	return models.Inbound{
		RequestID:   uuid.NewString(),
		UserID:      strconv.FormatInt(msg.From.ID, 10),
		DisplayName: displayName(msg.From),
		ChatID:      msg.Chat.ID,
		MessageID:   msg.MessageID,
		Text:        msg.Text,
	}, true
}

func (h *TelegramHandler) recordProcessed(status string) {
	if h.metrics != nil {
		h.metrics.RecordMessageProcessed(status)
	}
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return strconv.FormatInt(u.ID, 10)
	}
	return name
}

func chatType(chat *tgbotapi.Chat) string {
	if chat.IsGroup() || chat.IsSuperGroup() {
		return "group"
	}
	if chat.IsChannel() {
		return "channel"
	}
	return "private"
}
