package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schedule-bot/pkg/logx"
)

func TestURLHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		isURL   bool
		youtube bool
		id      string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", true, true, "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", true, true, "dQw4w9WgXcQ"},
		{"https://music.youtube.com/watch?v=dQw4w9WgXcQ", true, true, "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/abcdefghijk", true, true, "abcdefghijk"},
		{"https://www.youtube.com/playlist?list=PL123", true, true, ""},
		{"https://soundcloud.com/artist/track", true, false, ""},
		{"lofi hip hop", false, false, ""},
	}
	for _, tt := range tests {
		if got := IsURL(tt.in); got != tt.isURL {
			t.Errorf("IsURL(%q) = %v", tt.in, got)
		}
		if got := IsYouTubeURL(tt.in); got != tt.youtube {
			t.Errorf("IsYouTubeURL(%q) = %v", tt.in, got)
		}
		if got := VideoID(tt.in); got != tt.id {
			t.Errorf("VideoID(%q) = %q, want %q", tt.in, got, tt.id)
		}
	}

	if got := CleanVideoURL("https://youtu.be/dQw4w9WgXcQ?t=10"); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("CleanVideoURL = %q", got)
	}
	if got := PlaylistID("https://www.youtube.com/playlist?list=PL123"); got != "PL123" {
		t.Errorf("PlaylistID = %q", got)
	}
}

const resultsPage = `... "videoRenderer":{"videoId":"aaaaaaaaaaa","thumbnail":{},"title":{"runs":[{"text":"First & Best"}]}} ...
"videoRenderer":{"videoId":"bbbbbbbbbbb","title":{"runs":[{"text":"Second"}]}}
"videoRenderer":{"videoId":"aaaaaaaaaaa","title":{"runs":[{"text":"First again"}]}}
"videoRenderer":{"videoId":"ccccccccccc","title":{"runs":[{"text":"3"}]}}
"videoRenderer":{"videoId":"ddddddddddd","title":{"runs":[{"text":"4"}]}}
"videoRenderer":{"videoId":"eeeeeeeeeee","title":{"runs":[{"text":"5"}]}}
"videoRenderer":{"videoId":"fffffffffff","title":{"runs":[{"text":"6"}]}}`

func TestParseSearchPage(t *testing.T) {
	t.Parallel()

	got := parseSearchPage(resultsPage)
	if len(got) != MaxSearchResults {
		t.Fatalf("len = %d, want %d", len(got), MaxSearchResults)
	}
	if got[0].Title != "First & Best" || got[0].PageURL != "https://www.youtube.com/watch?v=aaaaaaaaaaa" {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Title != "Second" {
		t.Fatalf("duplicate not skipped: %+v", got[1])
	}

	fallback := parseSearchPage(`{"url":"/watch?v=zzzzzzzzzzz"}`)
	if len(fallback) != 1 || fallback[0].PageURL != "https://www.youtube.com/watch?v=zzzzzzzzzzz" {
		t.Fatalf("fallback = %+v", fallback)
	}
}

func TestYouTubeSearchOverHTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/results" || r.URL.Query().Get("search_query") != "lofi beats" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	yt := NewYouTube(srv.Client(), logx.Nop())
	yt.BaseURL = srv.URL
	if got := yt.Search(context.Background(), "lofi beats"); len(got) != MaxSearchResults {
		t.Fatalf("len = %d", len(got))
	}
	if got := yt.Search(context.Background(), "missing"); len(got) != 0 {
		t.Fatalf("404 should give no results, got %d", len(got))
	}
}

func TestChainSearchFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	yt := NewYouTube(srv.Client(), logx.Nop())
	yt.BaseURL = srv.URL
	dl := NewYTDLP("/nonexistent/yt-dlp", "", "", logx.Nop())
	c := NewChain(yt, dl, time.Second, logx.Nop())

	if got := c.Search(context.Background(), "anything"); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
	if _, err := c.ResolveByURL(context.Background(), "https://example.com/a.mp3", true); err == nil {
		t.Fatal("missing yt-dlp should fail resolution")
	}
}

func TestParseSearchLines(t *testing.T) {
	t.Parallel()

	out := []byte(`{"id":"aaaaaaaaaaa","title":"One","url":"https://www.youtube.com/watch?v=aaaaaaaaaaa","ie_key":"Youtube","duration":61}
not json
{"id":"bbbbbbbbbbb","title":"Two","ie_key":"Youtube"}
`)
	got := parseSearchLines(out)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Title != "One" || got[0].SourceURL != "" || got[0].Duration != 61*time.Second {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].PageURL != "https://www.youtube.com/watch?v=bbbbbbbbbbb" {
		t.Fatalf("second = %+v", got[1])
	}
}

func TestProxyTransport(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"http://127.0.0.1:8080", "socks5://127.0.0.1:1080", "socks4://127.0.0.1:1080"} {
		if _, err := proxyTransport(p); err != nil {
			t.Errorf("proxyTransport(%q): %v", p, err)
		}
	}
	if _, err := proxyTransport("ftp://x"); err == nil {
		t.Error("ftp proxy should be rejected")
	}
	c := NewHTTPClient("ftp://x", time.Second, logx.Nop())
	if c.Transport != nil {
		t.Error("bad proxy should fall back to the default transport")
	}
}
