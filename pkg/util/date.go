package util

import (
	"strings"
	"time"
)

// longest tokens first so YYYY never matches as two YY
var dateTplReplacer = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MM", "01",
	"DD", "02",
	"hh", "15",
	"mm", "04",
	"ss", "05",
)

// FormatDateTpl formats a Unix millisecond timestamp with a template made of
// YYYY, YY, MM, DD, hh, mm and ss placeholders. A zero timestamp yields "".
//
//	FormatDateTpl(ts, "YYYY-MM-DD hh:mm") // "2025-08-01 09:05"
func FormatDateTpl(ts int64, tpl string) string {
	if ts == 0 {
		return ""
	}
	return time.UnixMilli(ts).Format(dateTplReplacer.Replace(tpl))
}

// FormatTime is FormatDateTpl for a time.Time.
func FormatTime(t time.Time, tpl string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTplReplacer.Replace(tpl))
}
