// /internal/storage/schedules.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"schedule-bot/internal/apperr"
)

type Schedule struct {
	ID          int64
	OwnerID     string
	GuildID     string
	Title       string
	Description string
	Start       time.Time
	End         *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Active      bool
}

// NewSchedule holds the caller-supplied fields of a schedule.
type NewSchedule struct {
	OwnerID     string
	GuildID     string
	Title       string
	Description string
	Start       time.Time
	End         *time.Time
}

// SchedulePatch updates only the non-nil fields.
type SchedulePatch struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
}

func (p SchedulePatch) empty() bool {
	return p.Title == nil && p.Description == nil && p.Start == nil && p.End == nil
}

type scheduleRow struct {
	ID          int64          `db:"id"`
	OwnerID     string         `db:"owner_id"`
	GuildID     string         `db:"guild_id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	StartAt     int64          `db:"start_at"`
	EndAt       sql.NullInt64  `db:"end_at"`
	CreatedAt   int64          `db:"created_at"`
	UpdatedAt   int64          `db:"updated_at"`
	Active      bool           `db:"active"`
}

func (r scheduleRow) schedule() Schedule {
	s := Schedule{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		GuildID:     r.GuildID,
		Title:       r.Title,
		Description: r.Description.String,
		Start:       fromMillis(r.StartAt),
		CreatedAt:   fromMillis(r.CreatedAt),
		UpdatedAt:   fromMillis(r.UpdatedAt),
		Active:      r.Active,
	}
	if r.EndAt.Valid {
		end := fromMillis(r.EndAt.Int64)
		s.End = &end
	}
	return s
}

const scheduleColumns = `id, owner_id, guild_id, title, description, start_at, end_at, created_at, updated_at, active`

// Validate checks the fields a schedule must always satisfy.
func (n NewSchedule) Validate() error {
	switch {
	case strings.TrimSpace(n.OwnerID) == "":
		return apperr.Invalid("owner", "owner id is required")
	case strings.TrimSpace(n.GuildID) == "":
		return apperr.Invalid("guild", "guild id is required")
	case strings.TrimSpace(n.Title) == "":
		return apperr.Invalid("title", "title is required")
	case n.Start.IsZero():
		return apperr.Invalid("start", "start time is required")
	}
	return checkEnd(n.Start, n.End)
}

func checkEnd(start time.Time, end *time.Time) error {
	if end != nil && !end.After(start) {
		return apperr.Invalid("end", "end time must be after the start time")
	}
	return nil
}

func (s *Store) CreateSchedule(ctx context.Context, n NewSchedule) (int64, error) {
	if err := n.Validate(); err != nil {
		return 0, err
	}
	now := toMillis(s.now())
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (owner_id, guild_id, title, description, start_at, end_at, created_at, updated_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		n.OwnerID, n.GuildID, strings.TrimSpace(n.Title), nullString(n.Description),
		toMillis(n.Start), nullMillis(n.End), now, now,
	)
	if err != nil {
		return 0, apperr.Storage("create schedule", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Storage("create schedule", err)
	}
	return id, nil
}

// GetSchedule returns an active schedule. Missing and deleted schedules are
// both NotFoundError.
func (s *Store) GetSchedule(ctx context.Context, id int64) (Schedule, error) {
	var row scheduleRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = ? AND active = 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Schedule{}, &apperr.NotFoundError{Kind: "schedule", ID: id}
	}
	if err != nil {
		return Schedule{}, apperr.Storage("get schedule", err)
	}
	return row.schedule(), nil
}

// ListSchedulesByOwner returns up to 50 active schedules of one owner in a
// guild, earliest first. Zero bounds are open.
func (s *Store) ListSchedulesByOwner(ctx context.Context, ownerID, guildID string, from, to time.Time) ([]Schedule, error) {
	return s.listSchedules(ctx, "list owner schedules",
		`owner_id = ? AND guild_id = ?`, []any{ownerID, guildID}, from, to, ownerListLimit)
}

// ListSchedulesByGuild returns up to 100 active schedules of a guild,
// earliest first.
func (s *Store) ListSchedulesByGuild(ctx context.Context, guildID string, from, to time.Time) ([]Schedule, error) {
	return s.listSchedules(ctx, "list guild schedules",
		`guild_id = ?`, []any{guildID}, from, to, guildListLimit)
}

func (s *Store) listSchedules(ctx context.Context, op, where string, args []any, from, to time.Time, limit int) ([]Schedule, error) {
	q := `SELECT ` + scheduleColumns + ` FROM schedules WHERE ` + where + ` AND active = 1`
	if !from.IsZero() {
		q += ` AND start_at >= ?`
		args = append(args, toMillis(from))
	}
	if !to.IsZero() {
		q += ` AND start_at <= ?`
		args = append(args, toMillis(to))
	}
	q += ` ORDER BY start_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	var rows []scheduleRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, apperr.Storage(op, err)
	}
	out := make([]Schedule, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.schedule())
	}
	return out, nil
}

// UpdateSchedule applies patch to an active schedule owned by ownerID. It
// reports false when no such schedule exists. An empty patch is rejected.
func (s *Store) UpdateSchedule(ctx context.Context, id int64, ownerID string, patch SchedulePatch) (bool, error) {
	if patch.empty() {
		return false, apperr.Invalid("patch", "at least one field must change")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return false, apperr.Invalid("title", "title cannot be empty")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, apperr.Storage("update schedule", err)
	}
	defer tx.Rollback()

	var row scheduleRow
	err = tx.GetContext(ctx, &row,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = ? AND owner_id = ? AND active = 1`, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Storage("update schedule", err)
	}

	cur := row.schedule()
	if patch.Title != nil {
		cur.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		cur.Description = *patch.Description
	}
	if patch.Start != nil {
		cur.Start = *patch.Start
	}
	if patch.End != nil {
		cur.End = patch.End
	}
	if err := checkEnd(cur.Start, cur.End); err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE schedules
		SET title = ?, description = ?, start_at = ?, end_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND active = 1`,
		cur.Title, nullString(cur.Description), toMillis(cur.Start), nullMillis(cur.End),
		toMillis(s.now()), id, ownerID,
	)
	if err != nil {
		return false, apperr.Storage("update schedule", err)
	}
	if err := tx.Commit(); err != nil {
		return false, apperr.Storage("update schedule", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteSchedule marks an owned schedule inactive. Its reminders stay in
// place but are never due again.
func (s *Store) DeleteSchedule(ctx context.Context, id int64, ownerID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE schedules SET active = 0, updated_at = ?
		WHERE id = ? AND owner_id = ? AND active = 1`,
		toMillis(s.now()), id, ownerID,
	)
	if err != nil {
		return false, apperr.Storage("delete schedule", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("delete schedule", err)
	}
	return n > 0, nil
}

// CreateBulkSchedules inserts items one by one. It is not all-or-nothing:
// on failure it returns the ids created so far together with the error, so
// a short slice tells the caller how far it got.
func (s *Store) CreateBulkSchedules(ctx context.Context, items []NewSchedule) ([]int64, error) {
	ids := make([]int64, 0, len(items))
	for _, n := range items {
		id, err := s.CreateSchedule(ctx, n)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}
