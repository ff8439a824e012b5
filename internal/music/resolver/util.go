package resolver

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var youtubeURL = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.|music\.)?(?:youtube\.com|youtu\.be)/\S+`)

// IsURL reports whether s looks like an http(s) link.
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsYouTubeURL matches watch, short, embed, shorts and playlist links.
func IsYouTubeURL(s string) bool {
	return youtubeURL.MatchString(strings.TrimSpace(s))
}

// VideoID extracts the video id from a YouTube link, or "" when the link
// names no single video.
func VideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	switch strings.TrimPrefix(u.Hostname(), "www.") {
	case "youtu.be":
		return strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		for _, prefix := range []string{"/embed/", "/shorts/", "/live/"} {
			if id, ok := strings.CutPrefix(u.Path, prefix); ok {
				return strings.Trim(id, "/")
			}
		}
	}
	return ""
}

// PlaylistID returns the list= parameter of a YouTube link.
func PlaylistID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Query().Get("list")
}

// CleanVideoURL drops tracking and timestamp parameters from a YouTube video
// link. Other links are returned unchanged.
func CleanVideoURL(raw string) string {
	id := VideoID(raw)
	if id == "" {
		return raw
	}
	return WatchURL(id)
}

// WatchURL is the canonical page of a video id.
func WatchURL(id string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id)
}
