// Package media holds the track metadata shared by resolvers, the playback
// session and the voice transport.
package media

import (
	"fmt"
	"time"
)

// Track is an immutable snapshot of resolved media. SourceURL is what the
// decoder reads; PageURL is what a person would open.
type Track struct {
	Title     string
	SourceURL string
	PageURL   string
	Duration  time.Duration // zero when unknown or live
	Thumbnail string
	Uploader  string
}

// DurationLabel renders Duration as m:ss or h:mm:ss, or "live" when unknown.
func (t Track) DurationLabel() string {
	if t.Duration <= 0 {
		return "live"
	}
	total := int(t.Duration.Round(time.Second).Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Link prefers the page URL for display.
func (t Track) Link() string {
	if t.PageURL != "" {
		return t.PageURL
	}
	return t.SourceURL
}
