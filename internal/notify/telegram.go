package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/pkg/logger"
)

// Sender is the part of the bot API the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UserLookup resolves a user to find its linked chat.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type job struct {
	userID string
	text   string
}

// TelegramNotifier sends notices to users who linked a telegram chat.
// Notify only enqueues; a single worker does the delivery.
type TelegramNotifier struct {
	api        Sender
	users      UserLookup
	queue      chan job
	maxRetries int
	backoff    time.Duration
	sleep      func(time.Duration)
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

func NewBotAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	logger.Info("telegram notifier authorized", "username", api.Self.UserName)
	return api, nil
}

func NewTelegramNotifier(api Sender, users UserLookup, queueSize int) *TelegramNotifier {
	n := &TelegramNotifier{
		api:        api,
		users:      users,
		queue:      make(chan job, queueSize),
		maxRetries: 3,
		backoff:    time.Second,
		sleep:      time.Sleep,
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *TelegramNotifier) Notify(_ context.Context, userID, text string) {
	select {
	case n.queue <- job{userID: userID, text: text}:
	default:
		logger.Warn("notification queue full, dropping notice", "user_id", userID)
	}
}

// Close stops accepting notices and waits for queued ones to be sent.
func (n *TelegramNotifier) Close() {
	n.closeOnce.Do(func() {
		close(n.queue)
		n.wg.Wait()
	})
}

func (n *TelegramNotifier) run() {
	defer n.wg.Done()
	for j := range n.queue {
		n.deliver(j)
	}
}

func (n *TelegramNotifier) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := n.users.GetUserByID(ctx, j.userID)
	if err != nil {
		logger.Warn("notification recipient lookup failed", "user_id", j.userID, "error", err)
		return
	}
	if user.TelegramChatID == nil {
		return
	}

	msg := tgbotapi.NewMessage(*user.TelegramChatID, j.text)
	for attempt := 1; attempt <= n.maxRetries; attempt++ {
		_, err := n.api.Send(msg)
		if err == nil {
			return
		}
		logger.Error("failed to send notification", "error", err, "user_id", j.userID, "attempt", attempt)
		if !isTransient(err) || attempt == n.maxRetries {
			return
		}
		n.sleep(time.Duration(attempt) * n.backoff)
	}
}

func isTransient(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "Too Many Requests")
}
