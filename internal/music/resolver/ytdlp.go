package resolver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"schedule-bot/internal/apperr"
	"schedule-bot/internal/music/media"
	"schedule-bot/pkg/logx"
)

// YTDLP shells out to yt-dlp. It handles every site yt-dlp knows and is
// the fallback when the YouTube client fails.
type YTDLP struct {
	Path        string
	Proxy       string
	DownloadDir string
	log         logx.Logger
}

func NewYTDLP(path, proxy, downloadDir string, log logx.Logger) *YTDLP {
	if path == "" {
		path = "yt-dlp"
	}
	return &YTDLP{
		Path:        path,
		Proxy:       proxy,
		DownloadDir: downloadDir,
		log:         log.With(logx.String("component", "yt-dlp")),
	}
}

type ytdlpFormat struct {
	URL    string  `json:"url"`
	ACodec string  `json:"acodec"`
	ABR    float64 `json:"abr"`
}

type ytdlpInfo struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	WebpageURL  string        `json:"webpage_url"`
	Duration    float64       `json:"duration"`
	Thumbnail   string        `json:"thumbnail"`
	Uploader    string        `json:"uploader"`
	Channel     string        `json:"channel"`
	Filename    string        `json:"filename"`
	Formats     []ytdlpFormat `json:"formats"`
	IEKey       string        `json:"ie_key"`
	RequestedDL []struct {
		Filepath string `json:"filepath"`
	} `json:"requested_downloads"`
}

func (i ytdlpInfo) track() media.Track {
	tr := media.Track{
		Title:     i.Title,
		SourceURL: strings.TrimSpace(i.URL),
		PageURL:   i.WebpageURL,
		Duration:  time.Duration(i.Duration * float64(time.Second)),
		Thumbnail: i.Thumbnail,
		Uploader:  i.Uploader,
	}
	if tr.Uploader == "" {
		tr.Uploader = i.Channel
	}
	if tr.SourceURL == "" {
		for _, f := range i.Formats {
			if f.URL != "" && f.ACodec != "none" {
				tr.SourceURL = f.URL
			}
		}
	}
	if tr.PageURL == "" && i.ID != "" && (i.IEKey == "" || i.IEKey == "Youtube") {
		tr.PageURL = WatchURL(i.ID)
	}
	return tr
}

// ResolveByURL asks yt-dlp for the best audio stream of raw. With
// streaming=false and a DownloadDir set, the file is downloaded and its
// local path becomes the source.
func (y *YTDLP) ResolveByURL(ctx context.Context, raw string, streaming bool) (media.Track, error) {
	args := []string{"-j", "--no-playlist", "--no-warnings", "-f", "bestaudio/best"}
	download := !streaming && y.DownloadDir != ""
	if download {
		args = append(args, "--no-simulate", "-o", y.DownloadDir+"/%(id)s.%(ext)s")
	}
	args = append(args, raw)

	out, err := y.run(ctx, args...)
	if err != nil {
		return media.Track{}, &apperr.ResolutionError{Input: raw, Err: err}
	}

	var info ytdlpInfo
	if err := json.Unmarshal(firstLine(out), &info); err != nil {
		return media.Track{}, &apperr.ResolutionError{Input: raw, Err: fmt.Errorf("decode yt-dlp output: %w", err)}
	}
	tr := info.track()
	if download {
		switch {
		case len(info.RequestedDL) > 0 && info.RequestedDL[0].Filepath != "":
			tr.SourceURL = info.RequestedDL[0].Filepath
		case info.Filename != "":
			tr.SourceURL = info.Filename
		}
	}
	if tr.SourceURL == "" {
		return media.Track{}, &apperr.ResolutionError{Input: raw, Err: errors.New("yt-dlp returned no audio URL")}
	}
	if tr.PageURL == "" {
		tr.PageURL = raw
	}
	return tr, nil
}

// Search runs "ytsearch5:<term>" with flat extraction.
func (y *YTDLP) Search(ctx context.Context, term string) []media.Track {
	out, err := y.run(ctx, "-j", "--flat-playlist", "--no-warnings",
		fmt.Sprintf("ytsearch%d:%s", MaxSearchResults, term))
	if err != nil {
		y.log.Warn("search failed", logx.String("term", term), logx.Err(err))
		return nil
	}
	return parseSearchLines(out)
}

func parseSearchLines(out []byte) []media.Track {
	var tracks []media.Track
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() && len(tracks) < MaxSearchResults {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var info ytdlpInfo
		if json.Unmarshal(line, &info) != nil {
			continue
		}
		tr := info.track()
		// Flat entries put the page link in url.
		if tr.PageURL == "" && IsURL(info.URL) {
			tr.PageURL = info.URL
		}
		tr.SourceURL = ""
		if tr.PageURL != "" {
			tracks = append(tracks, tr)
		}
	}
	return tracks
}

func (y *YTDLP) run(ctx context.Context, args ...string) ([]byte, error) {
	if y.Proxy != "" {
		args = append([]string{"--proxy", y.Proxy}, args...)
	}
	cmd := exec.CommandContext(ctx, y.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("yt-dlp: %w: %s", err, lastLine(msg))
		}
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}
	return out, nil
}

func firstLine(b []byte) []byte {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i]
	}
	return b
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
