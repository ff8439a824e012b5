package reminder

import (
	"context"
	"time"

	"schedule-bot/internal/storage"
)

// Notification is what a due reminder turns into on the way out.
type Notification struct {
	ReminderID  int64
	ScheduleID  int64
	GuildID     string
	ChannelID   string
	RecipientID string
	Title       string
	Start       time.Time
	Message     string
}

// Notifier delivers a notification. A nil error means the recipient's
// channel accepted the message; anything else leaves the reminder pending.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// NotificationFor builds the outgoing notification of a due reminder.
func NotificationFor(r storage.DueReminder) Notification {
	return Notification{
		ReminderID:  r.ID,
		ScheduleID:  r.ScheduleID,
		GuildID:     r.GuildID,
		ChannelID:   r.ChannelID,
		RecipientID: r.OwnerID,
		Title:       r.ScheduleTitle,
		Start:       r.ScheduleStart,
		Message:     r.Message,
	}
}
