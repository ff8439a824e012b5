package util

import (
	"testing"
	"time"
)

func TestFormatDateTpl(t *testing.T) {
	ts := time.Date(2025, 8, 1, 9, 5, 0, 0, time.Local).UnixMilli()
	tests := map[string]string{
		"YYYY-MM-DD hh:mm": "2025-08-01 09:05",
		"DD/MM/YY":         "01/08/25",
	}
	for tpl, want := range tests {
		if got := FormatDateTpl(ts, tpl); got != want {
			t.Errorf("FormatDateTpl(%q) = %q, want %q", tpl, got, want)
		}
	}
	if got := FormatDateTpl(0, "YYYY"); got != "" {
		t.Errorf("zero timestamp = %q", got)
	}
}
