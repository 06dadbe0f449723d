package cart

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/packfinderz-cart/pkg/logger"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-facing alert or banner raised by the manager.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// Notifier delivers notices to whatever renders them.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NoticeBuffer keeps the most recent notices until the UI drains them.
type NoticeBuffer struct {
	mu      sync.Mutex
	cap     int
	notices []Notice
}

func NewNoticeBuffer(capacity int) *NoticeBuffer {
	if capacity <= 0 {
		capacity = 32
	}
	return &NoticeBuffer{cap: capacity}
}

func (b *NoticeBuffer) Notify(_ context.Context, n Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, n)
	if over := len(b.notices) - b.cap; over > 0 {
		b.notices = append([]Notice(nil), b.notices[over:]...)
	}
}

// Drain returns and forgets all buffered notices, oldest first.
func (b *NoticeBuffer) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

// LogNotifier mirrors notices into the structured log.
type LogNotifier struct {
	Logger *logger.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notice) {
	if l.Logger == nil {
		return
	}
	ctx = l.Logger.WithFields(ctx, map[string]any{"notice_level": n.Level, "notice_title": n.Title})
	if n.Level == NoticeError {
		l.Logger.Warn(ctx, "notice: "+n.Message)
		return
	}
	l.Logger.Info(ctx, "notice: "+n.Message)
}

type multiNotifier []Notifier

func (m multiNotifier) Notify(ctx context.Context, n Notice) {
	for _, target := range m {
		if target != nil {
			target.Notify(ctx, n)
		}
	}
}

// Notifiers fans a notice out to every target.
func Notifiers(targets ...Notifier) Notifier {
	return multiNotifier(targets)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notice) {}
