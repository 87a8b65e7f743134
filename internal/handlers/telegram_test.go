package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hf-quote-tgbot-go/internal/models"
)

const botID = 999

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	failHTML bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg)
	if f.failHTML && msg.ParseMode == tgbotapi.ModeHTML {
		return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

type fakeDispatcher struct {
	mu      sync.Mutex
	inbound []models.Inbound
	reply   func(models.Inbound) (string, bool)
}

func (f *fakeDispatcher) Dispatch(_ context.Context, in models.Inbound) (string, bool) {
	f.mu.Lock()
	f.inbound = append(f.inbound, in)
	reply := f.reply
	f.mu.Unlock()
	return reply(in)
}

func (f *fakeDispatcher) received() []models.Inbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Inbound(nil), f.inbound...)
}

func echo(in models.Inbound) (string, bool) {
	return "echo: " + in.Text, true
}

func textUpdate(from *tgbotapi.User, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 7,
			From:      from,
			Chat:      &tgbotapi.Chat{ID: 100, Type: "private"},
			Text:      text,
		},
	}
}

func newTestHandler(d MessageDispatcher, s Sender, workers int) *TelegramHandler {
	log, _ := test.NewNullLogger()
	return NewTelegramHandler(d, s, botID, workers, nil, log)
}

func TestTelegramHandlerConvertsAndReplies(t *testing.T) {
	d := &fakeDispatcher{reply: echo}
	s := &fakeSender{}
	h := newTestHandler(d, s, 2)

	h.HandleUpdate(context.Background(), textUpdate(&tgbotapi.User{ID: 42, UserName: "alice"}, "/cite life"))
	h.Wait()

	got := d.received()
	require.Len(t, got, 1)
	assert.Equal(t, "42", got[0].UserID)
	assert.Equal(t, "@alice", got[0].DisplayName)
	assert.Equal(t, int64(100), got[0].ChatID)
	assert.Equal(t, 7, got[0].MessageID)
	assert.Equal(t, "/cite life", got[0].Text)
	assert.NotEmpty(t, got[0].RequestID)

	sent := s.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, tgbotapi.ModeHTML, sent[0].ParseMode)
	assert.Equal(t, "echo: /cite life", sent[0].Text)
	assert.Equal(t, int64(100), sent[0].ChatID)
	assert.Equal(t, 7, sent[0].ReplyToMessageID)
}

func TestTelegramHandlerIgnoresUpdates(t *testing.T) {
	d := &fakeDispatcher{reply: echo}
	s := &fakeSender{}
	h := newTestHandler(d, s, 1)

	h.HandleUpdate(context.Background(), tgbotapi.Update{})
	h.HandleUpdate(context.Background(), textUpdate(&tgbotapi.User{ID: botID, IsBot: true}, "/ai hello"))
	h.HandleUpdate(context.Background(), textUpdate(&tgbotapi.User{ID: 1}, "   "))
	h.HandleUpdate(context.Background(), textUpdate(nil, "/ai hello"))
	h.Wait()

	assert.Empty(t, d.received())
	assert.Empty(t, s.messages())
}

func TestTelegramHandlerNoReply(t *testing.T) {
	d := &fakeDispatcher{reply: func(models.Inbound) (string, bool) { return "", false }}
	s := &fakeSender{}
	h := newTestHandler(d, s, 1)

	h.HandleUpdate(context.Background(), textUpdate(&tgbotapi.User{ID: 1}, "hello"))
	h.Wait()

	assert.Len(t, d.received(), 1)
	assert.Empty(t, s.messages())
}

func TestTelegramHandlerFallsBackToPlainText(t *testing.T) {
	d := &fakeDispatcher{reply: func(models.Inbound) (string, bool) { return "**bold** <tag>", true }}
	s := &fakeSender{failHTML: true}
	h := newTestHandler(d, s, 1)

	h.HandleUpdate(context.Background(), textUpdate(&tgbotapi.User{ID: 1}, "/ai x"))
	h.Wait()

	sent := s.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, tgbotapi.ModeHTML, sent[0].ParseMode)
	assert.Equal(t, "", sent[1].ParseMode)
	assert.Equal(t, "**bold** <tag>", sent[1].Text)
}

func TestTelegramHandlerSlowMessageDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	fastDone := make(chan struct{})

	d := &fakeDispatcher{reply: func(in models.Inbound) (string, bool) {
		if in.UserID == "1" {
			<-release
			return "slow", true
		}
		close(fastDone)
		return "fast", true
	}}
	s := &fakeSender{}
	h := newTestHandler(d, s, 2)

	h.HandleUpdate(context.Background(), textUpdate(&tgbotapi.User{ID: 1}, "/ai slow"))
	h.HandleUpdate(context.Background(), textUpdate(&tgbotapi.User{ID: 2}, "/ai fast"))

	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("fast message was blocked by the slow one")
	}

	close(release)
	h.Wait()
	assert.Len(t, s.messages(), 2)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "@alice", displayName(&tgbotapi.User{ID: 1, UserName: "alice", FirstName: "Alice"}))
	assert.Equal(t, "Alice Smith", displayName(&tgbotapi.User{ID: 1, FirstName: "Alice", LastName: "Smith"}))
	assert.Equal(t, "Alice", displayName(&tgbotapi.User{ID: 1, FirstName: "Alice"}))
	assert.Equal(t, "5", displayName(&tgbotapi.User{ID: 5}))
}
