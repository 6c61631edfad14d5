package batch

import (
	"context"
	"fmt"
	"log/slog"
)

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a user-facing message emitted when a batch completes.
type Notification struct {
	BatchID string            `json:"batchId"`
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if n.Level == LevelError {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "batch.notification", "batch_id", n.BatchID, "level", string(n.Level), "message", n.Message)
}

func completionNotifications(batchID string, s Summary) []Notification {
	var out []Notification
	if s.Success > 0 {
		out = append(out, Notification{
			BatchID: batchID,
			Level:   LevelSuccess,
			Message: fmt.Sprintf("%d arquivo(s) importado(s) com sucesso", s.Success),
		})
	}
	if s.Errors > 0 {
		out = append(out, Notification{
			BatchID: batchID,
			Level:   LevelError,
			Message: fmt.Sprintf("%d arquivo(s) com erro", s.Errors),
		})
	}
	return out
}
