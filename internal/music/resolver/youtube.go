package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	youtube "github.com/kkdai/youtube/v2"

	"schedule-bot/internal/apperr"
	"schedule-bot/internal/music/media"
	"schedule-bot/pkg/logx"
)

var (
	// videoRenderer blocks on the results page carry the id before the title.
	rendererPattern = regexp.MustCompile(`"videoRenderer":\{"videoId":"([a-zA-Z0-9_-]{11})".*?"title":\{"runs":\[\{"text":"((?:[^"\\]|\\.)*)"`)
	watchIDPattern  = regexp.MustCompile(`"url":"/watch\?v=([a-zA-Z0-9_-]{11})`)

	ErrNotYouTube   = errors.New("not a YouTube link")
	ErrNoAudio      = errors.New("no audio formats found for video")
	ErrEmptyListing = errors.New("playlist has no playable entries")
)

// YouTube resolves YouTube links with kkdai/youtube and searches by scraping
// the public results page.
type YouTube struct {
	BaseURL string
	HTTP    *http.Client
	client  *youtube.Client
	log     logx.Logger
}

func NewYouTube(httpClient *http.Client, log logx.Logger) *YouTube {
	return &YouTube{
		BaseURL: "https://www.youtube.com",
		HTTP:    httpClient,
		client:  &youtube.Client{HTTPClient: httpClient},
		log:     log.With(logx.String("component", "youtube")),
	}
}

// ResolveByURL loads the video behind a watch, short or embed link. A
// playlist link resolves to its first entry. kkdai only hands out stream
// URLs, so streaming=false is rejected for the caller to fall back on.
func (y *YouTube) ResolveByURL(ctx context.Context, raw string, streaming bool) (media.Track, error) {
	if !IsYouTubeURL(raw) {
		return media.Track{}, &apperr.ResolutionError{Input: raw, Err: ErrNotYouTube}
	}
	if !streaming {
		return media.Track{}, &apperr.ResolutionError{Input: raw, Err: errors.New("downloads are not supported by the YouTube client")}
	}

	id := VideoID(raw)
	if id == "" && PlaylistID(raw) != "" {
		first, err := y.firstPlaylistEntry(ctx, raw)
		if err != nil {
			return media.Track{}, &apperr.ResolutionError{Input: raw, Err: err}
		}
		id = first
	}
	if id == "" {
		return media.Track{}, &apperr.ResolutionError{Input: raw, Err: fmt.Errorf("no video id in link")}
	}

	video, err := y.client.GetVideoContext(ctx, id)
	if err != nil {
		return media.Track{}, &apperr.ResolutionError{Input: raw, Err: err}
	}

	format := bestAudio(video.Formats.WithAudioChannels())
	if format == nil {
		return media.Track{}, &apperr.ResolutionError{Input: raw, Err: ErrNoAudio}
	}
	stream, err := y.client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return media.Track{}, &apperr.ResolutionError{Input: raw, Err: fmt.Errorf("get stream URL: %w", err)}
	}

	tr := media.Track{
		Title:     video.Title,
		SourceURL: stream,
		PageURL:   WatchURL(video.ID),
		Duration:  video.Duration,
		Uploader:  video.Author,
	}
	if n := len(video.Thumbnails); n > 0 {
		tr.Thumbnail = video.Thumbnails[n-1].URL
	}
	return tr, nil
}

func (y *YouTube) firstPlaylistEntry(ctx context.Context, raw string) (string, error) {
	pl, err := y.client.GetPlaylistContext(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("load playlist: %w", err)
	}
	for _, e := range pl.Videos {
		if e != nil && e.ID != "" {
			return e.ID, nil
		}
	}
	return "", ErrEmptyListing
}

// bestAudio prefers audio-only formats, then the highest bitrate.
func bestAudio(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	bestAudioOnly := false
	for i := range formats {
		f := &formats[i]
		audioOnly := strings.HasPrefix(f.MimeType, "audio/")
		switch {
		case best == nil,
			audioOnly && !bestAudioOnly,
			audioOnly == bestAudioOnly && f.Bitrate > best.Bitrate:
			best, bestAudioOnly = f, audioOnly
		}
	}
	return best
}

// Search returns up to five videos for term. Errors are logged and yield
// an empty slice.
func (y *YouTube) Search(ctx context.Context, term string) []media.Track {
	tracks, err := y.search(ctx, term)
	if err != nil {
		y.log.Warn("search failed", logx.String("term", term), logx.Err(err))
		return nil
	}
	return tracks
}

func (y *YouTube) search(ctx context.Context, term string) ([]media.Track, error) {
	searchURL := fmt.Sprintf("%s/results?search_query=%s", y.BaseURL, url.QueryEscape(term))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := y.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("YouTube search failed with status code %v", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	return parseSearchPage(string(body)), nil
}

// parseSearchPage extracts up to MaxSearchResults unique videos, with titles
// when the page carries renderer blocks.
func parseSearchPage(body string) []media.Track {
	seen := make(map[string]bool)
	var out []media.Track

	add := func(id, title string) {
		if seen[id] || len(out) >= MaxSearchResults {
			return
		}
		seen[id] = true
		if title == "" {
			title = WatchURL(id)
		}
		out = append(out, media.Track{Title: title, PageURL: WatchURL(id)})
	}

	for _, m := range rendererPattern.FindAllStringSubmatch(body, -1) {
		add(m[1], unescapeJSON(m[2]))
	}
	if len(out) == 0 {
		for _, m := range watchIDPattern.FindAllStringSubmatch(body, -1) {
			add(m[1], "")
		}
	}
	return out
}

func unescapeJSON(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}
