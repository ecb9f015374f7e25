// Package notify delivers short text notices to users.
package notify

import (
	"context"
	"sync"
)

type Notifier interface {
	// Notify queues text for userID. Delivery is best effort.
	Notify(ctx context.Context, userID, text string)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, string) {}

// Notice is one recorded notification.
type Notice struct {
	UserID string
	Text   string
}

// Recorder keeps notices in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(_ context.Context, userID, text string) {
	r.mu.Lock()
	r.notices = append(r.notices, Notice{UserID: userID, Text: text})
	r.mu.Unlock()
}

func (r *Recorder) For(userID string) []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notice
	for _, n := range r.notices {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
