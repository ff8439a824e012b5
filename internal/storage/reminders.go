// /internal/storage/reminders.go
package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"schedule-bot/internal/apperr"
)

type Reminder struct {
	ID         int64
	ScheduleID int64
	OwnerID    string
	GuildID    string
	ChannelID  string
	FireAt     time.Time
	Message    string
	Sent       bool
	CreatedAt  time.Time
}

type NewReminder struct {
	ScheduleID int64
	OwnerID    string
	GuildID    string
	ChannelID  string
	FireAt     time.Time
	Message    string
}

// DueReminder is a pending reminder joined with its schedule.
type DueReminder struct {
	Reminder
	ScheduleTitle string
	ScheduleStart time.Time
}

type reminderRow struct {
	ID         int64          `db:"id"`
	ScheduleID int64          `db:"schedule_id"`
	OwnerID    string         `db:"owner_id"`
	GuildID    string         `db:"guild_id"`
	ChannelID  string         `db:"channel_id"`
	FireAt     int64          `db:"fire_at"`
	Message    sql.NullString `db:"message"`
	Sent       bool           `db:"sent"`
	CreatedAt  int64          `db:"created_at"`
}

func (r reminderRow) reminder() Reminder {
	return Reminder{
		ID:         r.ID,
		ScheduleID: r.ScheduleID,
		OwnerID:    r.OwnerID,
		GuildID:    r.GuildID,
		ChannelID:  r.ChannelID,
		FireAt:     fromMillis(r.FireAt),
		Message:    r.Message.String,
		Sent:       r.Sent,
		CreatedAt:  fromMillis(r.CreatedAt),
	}
}

// CreateReminder stores a reminder for an active schedule. FireAt must be
// in the future.
func (s *Store) CreateReminder(ctx context.Context, n NewReminder) (int64, error) {
	switch {
	case strings.TrimSpace(n.ChannelID) == "":
		return 0, apperr.Invalid("channel", "channel id is required")
	case !n.FireAt.After(s.now()):
		return 0, apperr.Invalid("fire_at", "reminder time %s has already passed", n.FireAt.Format(time.DateTime))
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (schedule_id, owner_id, guild_id, channel_id, fire_at, message, sent, created_at)
		SELECT id, ?, ?, ?, ?, ?, 0, ? FROM schedules WHERE id = ? AND active = 1`,
		n.OwnerID, n.GuildID, n.ChannelID, toMillis(n.FireAt), nullString(n.Message),
		toMillis(s.now()), n.ScheduleID,
	)
	if err != nil {
		return 0, apperr.Storage("create reminder", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return 0, &apperr.NotFoundError{Kind: "schedule", ID: n.ScheduleID}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Storage("create reminder", err)
	}
	return id, nil
}

// ListDueReminders returns unsent reminders with fire_at <= now whose
// schedule is still active, oldest first.
func (s *Store) ListDueReminders(ctx context.Context, now time.Time) ([]DueReminder, error) {
	type dueRow struct {
		reminderRow
		Title   string `db:"title"`
		StartAt int64  `db:"start_at"`
	}
	var rows []dueRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT r.id, r.schedule_id, r.owner_id, r.guild_id, r.channel_id, r.fire_at,
		       r.message, r.sent, r.created_at, s.title, s.start_at
		FROM reminders r
		JOIN schedules s ON s.id = r.schedule_id
		WHERE r.sent = 0 AND r.fire_at <= ? AND s.active = 1
		ORDER BY r.fire_at ASC, r.id ASC`,
		toMillis(now),
	)
	if err != nil {
		return nil, apperr.Storage("list due reminders", err)
	}
	out := make([]DueReminder, 0, len(rows))
	for _, r := range rows {
		out = append(out, DueReminder{
			Reminder:      r.reminder(),
			ScheduleTitle: r.Title,
			ScheduleStart: fromMillis(r.StartAt),
		})
	}
	return out, nil
}

// ListReminders returns every reminder of a schedule, sent or not.
func (s *Store) ListReminders(ctx context.Context, scheduleID int64) ([]Reminder, error) {
	var rows []reminderRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, schedule_id, owner_id, guild_id, channel_id, fire_at, message, sent, created_at
		FROM reminders WHERE schedule_id = ? ORDER BY fire_at ASC, id ASC`, scheduleID)
	if err != nil {
		return nil, apperr.Storage("list reminders", err)
	}
	out := make([]Reminder, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.reminder())
	}
	return out, nil
}

// MarkReminderSent flips sent once. A second call reports false.
func (s *Store) MarkReminderSent(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET sent = 1 WHERE id = ? AND sent = 0`, id)
	if err != nil {
		return false, apperr.Storage("mark reminder sent", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("mark reminder sent", err)
	}
	return n > 0, nil
}
