package media

import (
	"testing"
	"time"
)

func TestDurationLabel(t *testing.T) {
	tests := map[time.Duration]string{
		0:                                 "live",
		59 * time.Second:                  "0:59",
		3*time.Minute + 5*time.Second:     "3:05",
		time.Hour + 2*time.Minute + 900e6: "1:02:01",
	}
	for d, want := range tests {
		if got := (Track{Duration: d}).DurationLabel(); got != want {
			t.Errorf("DurationLabel(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestLink(t *testing.T) {
	if got := (Track{SourceURL: "s", PageURL: "p"}).Link(); got != "p" {
		t.Errorf("Link() = %q", got)
	}
	if got := (Track{SourceURL: "s"}).Link(); got != "s" {
		t.Errorf("Link() = %q", got)
	}
}
