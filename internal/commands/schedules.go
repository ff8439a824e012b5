package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"schedule-bot/internal/apperr"
	"schedule-bot/internal/datetime"
	"schedule-bot/internal/storage"
	"schedule-bot/pkg/logx"
)

type AddScheduleRequest struct {
	OwnerID     string
	GuildID     string
	Title       string
	Date        string
	Time        string
	EndTime     string // same day as Date
	Description string
}

// AddSchedule stores a schedule starting in the future.
func (f *Facade) AddSchedule(ctx context.Context, req AddScheduleRequest) (storage.Schedule, error) {
	if strings.TrimSpace(req.Title) == "" {
		return storage.Schedule{}, apperr.Invalid("title", "title is required")
	}
	now := f.clock()
	start, err := datetime.Parse(req.Date, req.Time, now, f.loc)
	if err != nil {
		return storage.Schedule{}, err
	}

	var end *time.Time
	if strings.TrimSpace(req.EndTime) != "" {
		e, err := datetime.Parse(req.Date, req.EndTime, now, f.loc)
		if err != nil {
			return storage.Schedule{}, err
		}
		if !e.After(start) {
			return storage.Schedule{}, apperr.Invalid("end", "end time must be after the start time")
		}
		end = &e
	}
	if start.Before(now) {
		return storage.Schedule{}, apperr.Invalid("start", "%s is in the past", start.Format("2006-01-02 15:04"))
	}

	id, err := f.store.CreateSchedule(ctx, storage.NewSchedule{
		OwnerID:     req.OwnerID,
		GuildID:     req.GuildID,
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Start:       start,
		End:         end,
	})
	if err != nil {
		return storage.Schedule{}, err
	}
	f.log.Info("schedule added", logx.Int64("schedule_id", id), logx.String("owner_id", req.OwnerID))
	return f.store.GetSchedule(ctx, id)
}

type ListSchedulesRequest struct {
	RequesterID string
	GuildID     string
	UserID      string // another member's schedules; empty means the requester
	Period      string // today, week, month or all; empty means week
	ShowAll     bool   // every schedule in the guild
}

type ScheduleList struct {
	Period    string
	Range     datetime.Range
	Schedules []storage.Schedule
}

func (f *Facade) ListSchedules(ctx context.Context, req ListSchedulesRequest) (ScheduleList, error) {
	period := strings.ToLower(strings.TrimSpace(req.Period))
	if period == "" {
		period = datetime.PeriodWeek
	}
	r, err := datetime.PeriodRange(period, f.clock())
	if err != nil {
		return ScheduleList{}, err
	}

	items, err := f.list(ctx, req.GuildID, lo.Ternary(req.UserID != "", req.UserID, req.RequesterID), req.ShowAll, r)
	if err != nil {
		return ScheduleList{}, err
	}
	return ScheduleList{Period: period, Range: r, Schedules: items}, nil
}

func (f *Facade) list(ctx context.Context, guildID, ownerID string, all bool, r datetime.Range) ([]storage.Schedule, error) {
	if all {
		return f.store.ListSchedulesByGuild(ctx, guildID, r.From, r.To)
	}
	return f.store.ListSchedulesByOwner(ctx, ownerID, guildID, r.From, r.To)
}

type CalendarRequest struct {
	UserID  string
	GuildID string
	Year    int // zero means the current year
	Month   int // zero means the current month
	ShowAll bool
}

// Calendar is one month of schedules grouped by day of month.
type Calendar struct {
	Year      int
	Month     time.Month
	Range     datetime.Range
	Days      map[int][]storage.Schedule
	Schedules []storage.Schedule
}

// DaysIn is the number of days in the calendar month.
func (c Calendar) DaysIn() int {
	return time.Date(c.Year, c.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Weekday of the first day of the month.
func (c Calendar) FirstWeekday() time.Weekday {
	return time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, time.UTC).Weekday()
}

func (f *Facade) Calendar(ctx context.Context, req CalendarRequest) (Calendar, error) {
	now := f.clock()
	year := lo.Ternary(req.Year != 0, req.Year, now.Year())
	month := lo.Ternary(req.Month != 0, req.Month, int(now.Month()))

	r, err := datetime.MonthRange(year, month, f.loc)
	if err != nil {
		return Calendar{}, err
	}
	items, err := f.list(ctx, req.GuildID, req.UserID, req.ShowAll, r)
	if err != nil {
		return Calendar{}, err
	}

	days := lo.GroupBy(items, func(s storage.Schedule) int { return s.Start.In(f.loc).Day() })
	return Calendar{Year: year, Month: time.Month(month), Range: r, Days: days, Schedules: items}, nil
}

type EditScheduleRequest struct {
	UserID      string
	ScheduleID  int64
	Title       *string
	Date        *string
	Time        *string
	Description *string
}

// EditSchedule changes an owned schedule. A new date keeps the old time of
// day and a new time keeps the old date.
func (f *Facade) EditSchedule(ctx context.Context, req EditScheduleRequest) (storage.Schedule, error) {
	cur, err := f.owned(ctx, req.ScheduleID, req.UserID)
	if err != nil {
		return storage.Schedule{}, err
	}

	patch := storage.SchedulePatch{Title: req.Title, Description: req.Description}
	if req.Date != nil || req.Time != nil {
		local := cur.Start.In(f.loc)
		date := deref(req.Date, local.Format("2006-01-02"))
		clock := deref(req.Time, local.Format("15:04"))
		start, err := datetime.Parse(date, clock, f.clock(), f.loc)
		if err != nil {
			return storage.Schedule{}, err
		}
		patch.Start = &start
	}

	ok, err := f.store.UpdateSchedule(ctx, req.ScheduleID, req.UserID, patch)
	if err != nil {
		return storage.Schedule{}, err
	}
	if !ok {
		return storage.Schedule{}, &apperr.NotFoundError{Kind: "schedule", ID: req.ScheduleID}
	}
	f.log.Info("schedule updated", logx.Int64("schedule_id", req.ScheduleID), logx.String("owner_id", req.UserID))
	return f.store.GetSchedule(ctx, req.ScheduleID)
}

// DeleteSchedule deactivates an owned schedule and returns it as it was.
func (f *Facade) DeleteSchedule(ctx context.Context, userID string, id int64) (storage.Schedule, error) {
	cur, err := f.owned(ctx, id, userID)
	if err != nil {
		return storage.Schedule{}, err
	}
	ok, err := f.store.DeleteSchedule(ctx, id, userID)
	if err != nil {
		return storage.Schedule{}, err
	}
	if !ok {
		return storage.Schedule{}, &apperr.NotFoundError{Kind: "schedule", ID: id}
	}
	cur.Active = false
	f.log.Info("schedule deleted", logx.Int64("schedule_id", id), logx.String("owner_id", userID))
	return cur, nil
}

type SetReminderRequest struct {
	UserID     string
	GuildID    string
	ChannelID  string
	ScheduleID int64
	LeadTime   string // 30min, 1hour, 2days, 30分, 1時間, 2日
	Message    string
}

// SetReminder adds a reminder that fires LeadTime before the schedule
// starts. The fire time must still be ahead.
func (f *Facade) SetReminder(ctx context.Context, req SetReminderRequest) (storage.Reminder, error) {
	sched, err := f.owned(ctx, req.ScheduleID, req.UserID)
	if err != nil {
		return storage.Reminder{}, err
	}
	lead, err := datetime.ParseLeadTime(req.LeadTime)
	if err != nil {
		return storage.Reminder{}, err
	}
	fireAt := sched.Start.Add(-lead)
	if !fireAt.Before(sched.Start) {
		return storage.Reminder{}, apperr.Invalid("lead_time", "reminder must fire before the schedule starts")
	}
	if !fireAt.After(f.now()) {
		return storage.Reminder{}, apperr.Invalid("lead_time", "reminder time %s has already passed", fireAt.In(f.loc).Format("2006-01-02 15:04"))
	}

	n := storage.NewReminder{
		ScheduleID: sched.ID,
		OwnerID:    req.UserID,
		GuildID:    lo.Ternary(req.GuildID != "", req.GuildID, sched.GuildID),
		ChannelID:  req.ChannelID,
		FireAt:     fireAt,
		Message:    strings.TrimSpace(req.Message),
	}
	id, err := f.store.CreateReminder(ctx, n)
	if err != nil {
		return storage.Reminder{}, err
	}
	f.log.Info("reminder set", logx.Int64("reminder_id", id), logx.Int64("schedule_id", sched.ID), logx.Time("fire_at", fireAt))
	return storage.Reminder{
		ID:         id,
		ScheduleID: n.ScheduleID,
		OwnerID:    n.OwnerID,
		GuildID:    n.GuildID,
		ChannelID:  n.ChannelID,
		FireAt:     n.FireAt,
		Message:    n.Message,
		CreatedAt:  f.now(),
	}, nil
}

// BulkItem is one entry of a bulk request.
type BulkItem struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Description string `json:"description,omitempty"`
}

// BulkItemError reports why entry Index (zero based) was not stored.
type BulkItemError struct {
	Index int
	Title string
	Err   error
}

func (e BulkItemError) Error() string {
	return fmt.Sprintf("item %d (%s): %v", e.Index+1, e.Title, e.Err)
}

type BulkResult struct {
	Created []int64
	Errors  []BulkItemError
}

// BulkAddSchedules creates schedules from a JSON array. Every item is
// validated first; valid items are inserted and invalid ones reported, so
// one bad entry does not reject the rest.
func (f *Facade) BulkAddSchedules(ctx context.Context, ownerID, guildID, data string) (BulkResult, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return BulkResult{}, apperr.Invalid("json", "expected a JSON array of schedules: %v", err)
	}
	if len(raw) == 0 {
		return BulkResult{}, apperr.Invalid("json", "no schedules given")
	}

	now := f.clock()
	var (
		res     BulkResult
		valid   []storage.NewSchedule
		indexes []int
	)
	for i, msg := range raw {
		var it BulkItem
		if err := json.Unmarshal(msg, &it); err != nil {
			res.Errors = append(res.Errors, BulkItemError{Index: i, Err: apperr.Invalid("item", "not an object")})
			continue
		}
		n, err := f.bulkItem(it, ownerID, guildID, now)
		if err != nil {
			res.Errors = append(res.Errors, BulkItemError{Index: i, Title: it.Title, Err: err})
			continue
		}
		valid = append(valid, n)
		indexes = append(indexes, i)
	}

	if len(valid) > 0 {
		ids, err := f.store.CreateBulkSchedules(ctx, valid)
		res.Created = ids
		if err != nil {
			// everything after the last created id was not stored
			for k := len(ids); k < len(valid); k++ {
				res.Errors = append(res.Errors, BulkItemError{Index: indexes[k], Title: valid[k].Title, Err: err})
			}
			f.log.Error("bulk insert stopped", logx.Int("created", len(ids)), logx.Int("requested", len(valid)), logx.Err(err))
		}
	}

	f.log.Info("bulk schedules added",
		logx.String("owner_id", ownerID),
		logx.Int("created", len(res.Created)),
		logx.Int("failed", len(res.Errors)),
	)
	return res, nil
}

func (f *Facade) bulkItem(it BulkItem, ownerID, guildID string, now time.Time) (storage.NewSchedule, error) {
	if strings.TrimSpace(it.Title) == "" || strings.TrimSpace(it.Date) == "" {
		return storage.NewSchedule{}, apperr.Invalid("item", "title and date are required")
	}
	start, err := datetime.Parse(it.Date, it.Time, now, f.loc)
	if err != nil {
		return storage.NewSchedule{}, err
	}
	n := storage.NewSchedule{
		OwnerID:     ownerID,
		GuildID:     guildID,
		Title:       it.Title,
		Description: strings.TrimSpace(it.Description),
		Start:       start,
	}
	return n, n.Validate()
}

// Schedule returns an active schedule by id.
func (f *Facade) Schedule(ctx context.Context, id int64) (storage.Schedule, error) {
	return f.store.GetSchedule(ctx, id)
}

// owned loads an active schedule and checks that userID owns it.
func (f *Facade) owned(ctx context.Context, id int64, userID string) (storage.Schedule, error) {
	s, err := f.store.GetSchedule(ctx, id)
	if err != nil {
		return storage.Schedule{}, err
	}
	if s.OwnerID != userID {
		return storage.Schedule{}, &apperr.PermissionError{Kind: "schedule", ID: id, UserID: userID}
	}
	return s, nil
}

func deref(p *string, def string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return def
	}
	return *p
}
