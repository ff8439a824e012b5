// Package datetime parses the date, time and lead-time phrases users type
// into schedule commands, and computes the list and calendar ranges.
package datetime

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"schedule-bot/internal/apperr"
)

// DefaultHour and DefaultMinute apply when a schedule has no time.
const (
	DefaultHour   = 9
	DefaultMinute = 0
)

var (
	isoDate   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)
	dashDate  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})$`)

	clock24   = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	clock12   = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*(AM|PM)$`)
	hour12    = regexp.MustCompile(`^(\d{1,2})\s*(AM|PM)$`)
	leadValue = regexp.MustCompile(`\d+`)
)

// Parse combines a date phrase and an optional time phrase into an instant
// in loc. now anchors relative words (today, 明日) and month/day forms that
// roll over to next year when already past.
func Parse(dateStr, timeStr string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	y, m, d, err := parseDate(strings.TrimSpace(dateStr), now)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := ParseClock(timeStr)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(y, m, d, hour, minute, 0, 0, loc), nil
}

func parseDate(s string, now time.Time) (int, time.Month, int, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch strings.ToLower(s) {
	case "today", "今日":
		return today.Year(), today.Month(), today.Day(), nil
	case "tomorrow", "明日":
		t := today.AddDate(0, 0, 1)
		return t.Year(), t.Month(), t.Day(), nil
	case "明後日":
		t := today.AddDate(0, 0, 2)
		return t.Year(), t.Month(), t.Day(), nil
	}

	if g := isoDate.FindStringSubmatch(s); g != nil {
		y, m, d := atoi(g[1]), atoi(g[2]), atoi(g[3])
		if !validDay(y, m, d) {
			return 0, 0, 0, apperr.Invalid("date", "%q is not a calendar date", s)
		}
		return y, time.Month(m), d, nil
	}

	g := slashDate.FindStringSubmatch(s)
	if g == nil {
		g = dashDate.FindStringSubmatch(s)
	}
	if g == nil {
		return 0, 0, 0, apperr.Invalid("date", "unknown date format %q (use YYYY-MM-DD, MM/DD, today or tomorrow)", s)
	}

	m, d := atoi(g[1]), atoi(g[2])
	y := now.Year()
	if !validDay(y, m, d) {
		return 0, 0, 0, apperr.Invalid("date", "%q is not a calendar date", s)
	}
	if time.Date(y, time.Month(m), d, 0, 0, 0, 0, now.Location()).Before(today) {
		y++
		if !validDay(y, m, d) {
			return 0, 0, 0, apperr.Invalid("date", "%q is not a calendar date", s)
		}
	}
	return y, time.Month(m), d, nil
}

// ParseClock parses HH:MM, H:MM AM/PM and H AM/PM. An empty string yields
// the 09:00 default.
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultHour, DefaultMinute, nil
	}

	switch {
	case clock24.MatchString(s):
		g := clock24.FindStringSubmatch(s)
		hour, minute = atoi(g[1]), atoi(g[2])
	case clock12.MatchString(s):
		g := clock12.FindStringSubmatch(s)
		hour, minute = atoi(g[1]), atoi(g[2])
		if hour < 1 || hour > 12 {
			return 0, 0, apperr.Invalid("time", "hour %d out of range for %s", hour, g[3])
		}
		hour = to24(hour, g[3])
	case hour12.MatchString(s):
		g := hour12.FindStringSubmatch(s)
		hour = atoi(g[1])
		if hour < 1 || hour > 12 {
			return 0, 0, apperr.Invalid("time", "hour %d out of range for %s", hour, g[2])
		}
		hour = to24(hour, g[2])
	default:
		return 0, 0, apperr.Invalid("time", "unknown time format %q (use HH:MM or 2:30PM)", s)
	}

	if hour > 23 || minute > 59 {
		return 0, 0, apperr.Invalid("time", "%q is not a time of day", s)
	}
	return hour, minute, nil
}

// ParseLeadTime turns "30min", "1hour", "2days", "30分", "1時間" or "2日"
// into a duration. Units are matched in the order minutes, hours, days.
func ParseLeadTime(s string) (time.Duration, error) {
	num := leadValue.FindString(s)
	if num == "" {
		return 0, apperr.Invalid("lead_time", "no number in %q", s)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return 0, apperr.Invalid("lead_time", "%q must be a positive number", num)
	}

	var unit time.Duration
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(s, "分") || strings.Contains(lower, "min"):
		unit = time.Minute
	case strings.Contains(s, "時間") || strings.Contains(lower, "hour") || strings.Contains(lower, "h"):
		unit = time.Hour
	case strings.Contains(s, "日") || strings.Contains(lower, "day") || strings.Contains(lower, "d"):
		unit = 24 * time.Hour
	default:
		return 0, apperr.Invalid("lead_time", "unknown unit in %q (use min, hour or day)", s)
	}
	if int64(n) > math.MaxInt64/int64(unit) {
		return 0, apperr.Invalid("lead_time", "%q is too long", s)
	}
	return time.Duration(n) * unit, nil
}

// Period names accepted by list commands.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodAll   = "all"
)

// Range is an inclusive time window. A zero bound is open.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside r.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// PeriodRange returns the window for period around now. Weeks start on
// Monday. "all" and "" mean no bounds.
func PeriodRange(period string, now time.Time) (Range, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch strings.ToLower(strings.TrimSpace(period)) {
	case PeriodToday:
		return Range{From: day, To: day.AddDate(0, 0, 1).Add(-time.Second)}, nil
	case PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return Range{From: start, To: start.AddDate(0, 0, 7).Add(-time.Second)}, nil
	case PeriodMonth:
		return MonthRange(now.Year(), int(now.Month()), now.Location())
	case PeriodAll, "":
		return Range{}, nil
	default:
		return Range{}, apperr.Invalid("period", "unknown period %q (use today, week, month or all)", period)
	}
}

// Calendar bounds accepted by MonthRange.
const (
	MinYear = 2020
	MaxYear = 2030
)

// MonthRange returns the first to last second of a month.
func MonthRange(year, month int, loc *time.Location) (Range, error) {
	if year < MinYear || year > MaxYear {
		return Range{}, apperr.Invalid("year", "must be between %d and %d", MinYear, MaxYear)
	}
	if month < 1 || month > 12 {
		return Range{}, apperr.Invalid("month", "must be between 1 and 12")
	}
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return Range{From: start, To: start.AddDate(0, 1, 0).Add(-time.Second)}, nil
}

func to24(hour int, period string) int {
	switch {
	case period == "PM" && hour != 12:
		return hour + 12
	case period == "AM" && hour == 12:
		return 0
	}
	return hour
}

func validDay(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Day() == d && int(t.Month()) == m
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
