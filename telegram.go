package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	telegramSendInterval = 1 * time.Second
	telegramMaxLen       = 4000
)

// messageSender is the part of *tgbotapi.BotAPI the relay uses.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramRelay forwards translated captions to Telegram chats. It is a
// RenderSurface that only reacts to translations; sending happens on its own
// goroutine at most once per interval, and only the newest pending caption
// is sent.
type TelegramRelay struct {
	bot      messageSender
	chats    []int64
	log      *logrus.Entry
	interval time.Duration

	pending chan string
	// lastQueued is touched only from the presenter goroutine.
	lastQueued string
}

// NewTelegramRelay logs in with token and relays to chats.
func NewTelegramRelay(token string, chats []int64, log *logrus.Logger) (*TelegramRelay, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	r := newTelegramRelay(bot, chats, log)
	r.log.Infof("✅ telegram relay authorized as @%s for %d chat(s)", bot.Self.UserName, len(chats))
	return r, nil
}

func newTelegramRelay(bot messageSender, chats []int64, log *logrus.Logger) *TelegramRelay {
	if log == nil {
		log = discardLogger()
	}
	return &TelegramRelay{
		bot:      bot,
		chats:    chats,
		log:      log.WithField("component", "telegram"),
		interval: telegramSendInterval,
		pending:  make(chan string, 1),
	}
}

func (r *TelegramRelay) SetTranslatedText(text string) {
	text = strings.TrimSpace(text)
	if text == "" || text == r.lastQueued {
		return
	}
	r.lastQueued = text
	offerLatest(r.pending, text)
}

func (r *TelegramRelay) SetOriginalText(string) {}
func (r *TelegramRelay) SetOpacity(float64) {}
func (r *TelegramRelay) SetVisible(bool, bool) {}
func (r *TelegramRelay) SetStatus(string) {}
func (r *TelegramRelay) SetControlsVisible(bool) {}
func (r *TelegramRelay) ApplySettings(DisplaySettings) {}

// Run sends queued captions until ctx is done.
func (r *TelegramRelay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case text := <-r.pending:
			r.broadcast(text)
			if !sleepCtx(ctx, r.interval) {
				return nil
			}
		}
	}
}

func (r *TelegramRelay) broadcast(text string) {
	if len(text) > telegramMaxLen {
		text = FitByteBudget(text, telegramMaxLen)
	}
	for _, chatID := range r.chats {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := r.bot.Send(msg); err != nil {
			r.log.WithError(err).WithField("chat", chatID).Warn("❌ failed to send caption")
		}
	}
}
