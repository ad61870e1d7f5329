package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeSender records messages instead of calling the Bot API.
type fakeSender struct {
	mu     sync.Mutex
	sent   []tgbotapi.MessageConfig
	failOn int64
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ChatID == f.failOn {
		return tgbotapi.Message{}, errors.New("chat not found")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func runRelay(t *testing.T, r *TelegramRelay) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	})
}

func TestTelegramRelayQueue(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  string
	}{
		{name: "single", texts: []string{"Привет"}, want: "Привет"},
		{name: "trimmed", texts: []string{"  Привет \n"}, want: "Привет"},
		{name: "blank ignored", texts: []string{"Привет", "   "}, want: "Привет"},
		{name: "newest wins", texts: []string{"один", "два", "три"}, want: "три"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTelegramRelay(&fakeSender{}, []int64{1}, nil)
			for _, text := range tt.texts {
				r.SetTranslatedText(text)
			}
			select {
			case got := <-r.pending:
				if got != tt.want {
					t.Errorf("pending = %q, want %q", got, tt.want)
				}
			default:
				t.Fatal("nothing queued")
			}
		})
	}
}

func TestTelegramRelayDedupe(t *testing.T) {
	r := newTelegramRelay(&fakeSender{}, []int64{1}, nil)
	r.SetTranslatedText("same")
	<-r.pending
	r.SetTranslatedText("same")

	select {
	case got := <-r.pending:
		t.Errorf("repeated caption queued again: %q", got)
	default:
	}
}

func TestTelegramRelayIgnoresOtherCalls(t *testing.T) {
	r := newTelegramRelay(&fakeSender{}, []int64{1}, nil)
	r.SetOriginalText("original")
	r.SetStatus("status")
	r.SetOpacity(1)
	r.SetVisible(true, true)
	r.SetControlsVisible(true)
	r.ApplySettings(DefaultSettings())

	select {
	case got := <-r.pending:
		t.Errorf("non-translation call queued %q", got)
	default:
	}
}

func TestTelegramRelaySendsToAllChats(t *testing.T) {
	sender := &fakeSender{failOn: 2}
	r := newTelegramRelay(sender, []int64{1, 2, 3}, nil)
	r.interval = time.Millisecond
	runRelay(t, r)

	r.SetTranslatedText("Как дела?")
	waitFor(t, 2*time.Second, "broadcast", func() bool {
		return len(sender.messages()) == 2
	})

	msgs := sender.messages()
	if msgs[0].ChatID != 1 || msgs[1].ChatID != 3 {
		t.Errorf("chats = %d, %d; want 1, 3", msgs[0].ChatID, msgs[1].ChatID)
	}
	for _, m := range msgs {
		if m.Text != "Как дела?" {
			t.Errorf("chat %d text = %q", m.ChatID, m.Text)
		}
	}
}

func TestTelegramRelayRateLimit(t *testing.T) {
	sender := &fakeSender{}
	r := newTelegramRelay(sender, []int64{1}, nil)
	r.interval = 200 * time.Millisecond
	runRelay(t, r)

	r.SetTranslatedText("first")
	waitFor(t, 2*time.Second, "first send", func() bool {
		return len(sender.messages()) == 1
	})
	r.SetTranslatedText("second")
	r.SetTranslatedText("third")

	waitFor(t, 2*time.Second, "coalesced send", func() bool {
		return len(sender.messages()) == 2
	})
	time.Sleep(300 * time.Millisecond)

	msgs := sender.messages()
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(msgs))
	}
	if msgs[1].Text != "third" {
		t.Errorf("second send = %q, want the newest caption", msgs[1].Text)
	}
}

func TestTelegramRelayTrimsLongText(t *testing.T) {
	sender := &fakeSender{}
	r := newTelegramRelay(sender, []int64{1}, nil)
	r.broadcast(strings.Repeat("word ", 1000))

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	if n := len(msgs[0].Text); n > telegramMaxLen {
		t.Errorf("message length = %d, want <= %d", n, telegramMaxLen)
	}
}
