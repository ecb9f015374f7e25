package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/betpals/internal/models"
	"github.com/stretchr/testify/assert"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	failures []error
	calls    int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return tgbotapi.Message{}, err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func TestTelegramNotifierDelivers(t *testing.T) {
	chat := int64(4242)
	sender := &fakeSender{failures: []error{errors.New("read: connection reset by peer")}}
	users := fakeUsers{
		"linked":   {ID: "linked", TelegramChatID: &chat},
		"unlinked": {ID: "unlinked"},
	}

	n := NewTelegramNotifier(sender, users, 10)
	n.backoff = 0
	ctx := context.Background()
	n.Notify(ctx, "linked", "You won the bet!")
	n.Notify(ctx, "unlinked", "ignored")
	n.Notify(ctx, "ghost", "ignored")
	n.Close()

	assert.Len(t, sender.sent, 1)
	assert.Equal(t, chat, sender.sent[0].ChatID)
	assert.Equal(t, "You won the bet!", sender.sent[0].Text)
}

func TestTelegramNotifierStopsOnPermanentError(t *testing.T) {
	chat := int64(1)
	sender := &fakeSender{failures: []error{errors.New("Bad Request: chat not found")}}
	n := NewTelegramNotifier(sender, fakeUsers{"u": {ID: "u", TelegramChatID: &chat}}, 1)
	n.backoff = 0

	n.Notify(context.Background(), "u", "hello")
	n.Close()

	assert.Empty(t, sender.sent)
}

func TestTelegramNotifierGivesUpAfterLastAttempt(t *testing.T) {
	chat := int64(7)
	timeout := errors.New("net/http: request timeout")
	sender := &fakeSender{failures: []error{timeout, timeout, timeout, timeout}}
	n := NewTelegramNotifier(sender, fakeUsers{"u": {ID: "u", TelegramChatID: &chat}}, 1)

	var slept []time.Duration
	n.backoff = time.Second
	n.sleep = func(d time.Duration) { slept = append(slept, d) }

	n.Notify(context.Background(), "u", "hello")
	n.Close()

	assert.Equal(t, 3, sender.calls)
	assert.Empty(t, sender.sent)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
}

func TestRecorderFiltersByUser(t *testing.T) {
	rec := &Recorder{}
	rec.Notify(context.Background(), "a", "one")
	rec.Notify(context.Background(), "b", "two")
	assert.Equal(t, []Notice{{UserID: "a", Text: "one"}}, rec.For("a"))
}
