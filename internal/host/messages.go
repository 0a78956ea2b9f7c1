package host

import (
	"context"
	"sync"
	"time"

	"github.com/amromran102/gitlab-registry-explorer/internal/contextutil"
)

const maxMessages = 100

// Message is a user-visible notification.
type Message struct {
	Level string    `json:"level"`
	Text  string    `json:"text"`
	Time  time.Time `json:"time"`
}

// MessageLog queues user messages until the UI drains them. The oldest messages are
// dropped once the queue is full.
type MessageLog struct {
	mu       sync.Mutex
	messages []Message
}

// NewMessageLog creates a new MessageLog.
func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// Info queues an informational message.
func (l *MessageLog) Info(ctx context.Context, msg string) {
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "user message", "text", msg)
	l.add("info", msg)
}

// Error queues an error message.
func (l *MessageLog) Error(ctx context.Context, msg string) {
	contextutil.LoggerFromContext(ctx).WarnContext(ctx, "user error message", "text", msg)
	l.add("error", msg)
}

func (l *MessageLog) add(level, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, Message{Level: level, Text: text, Time: time.Now().UTC()})
	if over := len(l.messages) - maxMessages; over > 0 {
		l.messages = append([]Message(nil), l.messages[over:]...)
	}
}

// Drain returns the queued messages, oldest first, and empties the queue.
func (l *MessageLog) Drain() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.messages
	l.messages = nil
	if out == nil {
		out = []Message{}
	}
	return out
}
