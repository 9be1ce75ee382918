package channel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []int64
	fail map[int64]bool
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	id, ok := to.(tele.ChatID)
	if !ok {
		return nil, errors.New("unexpected recipient type")
	}

	f.mu.Lock()
	f.sent = append(f.sent, int64(id))
	f.mu.Unlock()

	if f.fail[int64(id)] {
		return nil, errors.New("forbidden: bot was blocked by the user")
	}
	return &tele.Message{}, nil
}

func newTestTelegram(f *fakeSender, live bool) *Telegram {
	return newTelegram(f, TelegramOpts{SendRPS: 1000, Concurrency: 4, Live: live}, zap.NewNop())
}

func TestTelegramSendAll(t *testing.T) {
	t.Parallel()

	f := &fakeSender{}
	tg := newTestTelegram(f, true)

	if !tg.Send(context.Background(), []string{"100", "200", "300"}, "hi") {
		t.Fatal("Send() = false, want true when every chat succeeds")
	}
	if len(f.sent) != 3 {
		t.Fatalf("sent to %d chats, want 3", len(f.sent))
	}
}

func TestTelegramSendPartialFailure(t *testing.T) {
	t.Parallel()

	f := &fakeSender{fail: map[int64]bool{200: true}}
	tg := newTestTelegram(f, true)

	if tg.Send(context.Background(), []string{"100", "200", "300"}, "hi") {
		t.Fatal("Send() = true, want false when any chat fails")
	}
	// A failed chat must not stop delivery to the rest.
	if len(f.sent) != 3 {
		t.Fatalf("sent to %d chats, want all 3 attempted", len(f.sent))
	}
}

func TestTelegramSendBadChatID(t *testing.T) {
	t.Parallel()

	f := &fakeSender{}
	tg := newTestTelegram(f, true)

	if tg.Send(context.Background(), []string{"100", "not-a-chat"}, "hi") {
		t.Fatal("Send() = true, want false on unparseable chat id")
	}
	if len(f.sent) != 1 {
		t.Fatalf("sent to %d chats, want 1", len(f.sent))
	}
}

func TestTelegramSendLiveDisabled(t *testing.T) {
	t.Parallel()

	f := &fakeSender{fail: map[int64]bool{100: true}}
	tg := newTestTelegram(f, false)

	if !tg.Send(context.Background(), []string{"100"}, "hi") {
		t.Fatal("Send() = false, want no-op true when live is disabled")
	}
	if len(f.sent) != 0 {
		t.Fatalf("sent to %d chats, want 0 when live is disabled", len(f.sent))
	}
}
