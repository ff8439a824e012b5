package commands

import (
	"context"
	"errors"
	"testing"

	"schedule-bot/internal/apperr"
	"schedule-bot/internal/music/media"
	"schedule-bot/internal/music/player"
)

var voice = player.Channel{ID: "V1", Name: "General"}

func TestPlayURLThenSearchKeepsOnlySecond(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	first := media.Track{Title: "First", SourceURL: "https://cdn/1", PageURL: "https://valid/track"}
	second := media.Track{Title: "Second", SourceURL: "https://cdn/2", PageURL: "https://www.youtube.com/watch?v=abc"}
	h.resolver.byURL = map[string]media.Track{
		"https://valid/track":                 first,
		"https://www.youtube.com/watch?v=abc": second,
	}
	h.resolver.search = map[string][]media.Track{
		"search term": {{Title: "Second", PageURL: "https://www.youtube.com/watch?v=abc"}},
	}

	if _, err := h.facade.Play(ctx, PlayRequest{GuildID: "G1", Channel: voice, Query: "https://valid/track"}); err != nil {
		t.Fatal(err)
	}
	got, err := h.facade.Play(ctx, PlayRequest{GuildID: "G1", Channel: voice, Query: "search term"})
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceURL != second.SourceURL {
		t.Fatalf("played %+v, want the resolved search hit", got)
	}

	st := h.facade.NowPlaying("G1")
	if !st.Playing || st.TrackTitle != "Second" || st.ChannelName != "General" {
		t.Fatalf("status = %+v", st)
	}

	if len(h.connector.transports) != 1 {
		t.Fatalf("connected %d times, want 1", len(h.connector.transports))
	}
	tr := h.connector.transports[0]
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.active != 1 || tr.released != 1 || tr.current.Track.Title != "Second" {
		t.Fatalf("transport active=%d released=%d current=%+v", tr.active, tr.released, tr.current)
	}
}

func TestPlayFailures(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	var ve *apperr.ValidationError
	if _, err := h.facade.Play(ctx, PlayRequest{GuildID: "G1", Query: "x"}); !errors.As(err, &ve) {
		t.Fatalf("no channel: %v", err)
	}
	if _, err := h.facade.Play(ctx, PlayRequest{GuildID: "G1", Channel: voice, Query: "  "}); !errors.As(err, &ve) {
		t.Fatalf("empty query: %v", err)
	}

	if _, err := h.facade.Play(ctx, PlayRequest{GuildID: "G1", Channel: voice, Query: "nothing matches"}); !errors.Is(err, ErrNoResults) {
		t.Fatalf("empty search: %v", err)
	}

	var re *apperr.ResolutionError
	if _, err := h.facade.Play(ctx, PlayRequest{GuildID: "G1", Channel: voice, Query: "https://gone/video"}); !errors.As(err, &re) {
		t.Fatalf("unresolvable url: %v", err)
	}
	if st := h.facade.NowPlaying("G1"); st.Playing || !st.Connected {
		t.Fatalf("status after failed resolve = %+v", st)
	}

	h2 := newHarness(t)
	h2.connector.err = errors.New("missing permissions")
	var te *apperr.TransportError
	if _, err := h2.facade.Play(ctx, PlayRequest{GuildID: "G1", Channel: voice, Query: "https://valid/track"}); !errors.As(err, &te) {
		t.Fatalf("connect failure: %v", err)
	}
}

func TestPlaybackControls(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.resolver.byURL = map[string]media.Track{"https://valid/track": {Title: "T", SourceURL: "https://cdn/t"}}

	if h.facade.Pause("G1") || h.facade.Resume("G1") || h.facade.Stop("G1") {
		t.Fatal("controls on an unknown guild should report false")
	}
	if ok, err := h.facade.Disconnect(ctx, "G1"); ok || err != nil {
		t.Fatalf("disconnect idle = %v, %v", ok, err)
	}

	if _, err := h.facade.Play(ctx, PlayRequest{GuildID: "G1", Channel: voice, Query: "https://valid/track"}); err != nil {
		t.Fatal(err)
	}
	if h.facade.Resume("G1") {
		t.Fatal("resume while playing")
	}
	if !h.facade.Pause("G1") || !h.facade.NowPlaying("G1").Paused {
		t.Fatal("pause failed")
	}
	if !h.facade.Resume("G1") || !h.facade.NowPlaying("G1").Playing {
		t.Fatal("resume failed")
	}
	if !h.facade.Stop("G1") || h.facade.Stop("G1") {
		t.Fatal("stop should succeed once")
	}

	ok, err := h.facade.Disconnect(ctx, "G1")
	if !ok || err != nil {
		t.Fatalf("disconnect = %v, %v", ok, err)
	}
	if st := h.facade.NowPlaying("G1"); st.Connected || st.State != player.StateIdle {
		t.Fatalf("status after disconnect = %+v", st)
	}
}

func TestSetVolume(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	if got := h.facade.NowPlaying("G1").VolumePercent; got != 10 {
		t.Fatalf("default volume = %d, want 10", got)
	}
	got, err := h.facade.SetVolume("G1", 35)
	if err != nil || got != 35 {
		t.Fatalf("SetVolume = %d, %v", got, err)
	}
	if v, _ := h.volumes.Load("G1"); v != 0.35 {
		t.Fatalf("persisted %v", v)
	}

	var ve *apperr.ValidationError
	for _, p := range []int{-1, 101} {
		if _, err := h.facade.SetVolume("G1", p); !errors.As(err, &ve) {
			t.Errorf("SetVolume(%d) err = %v", p, err)
		}
	}
	if got := h.facade.NowPlaying("G1").VolumePercent; got != 35 {
		t.Fatalf("volume after rejects = %d", got)
	}
}

func TestNowPlayingDoesNotCreateSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	if err := h.volumes.Save("G2", 0.6); err != nil {
		t.Fatal(err)
	}

	st := h.facade.NowPlaying("G1")
	if st.State != player.StateIdle || st.Connected || st.VolumePercent != 10 {
		t.Fatalf("status = %+v", st)
	}
	if got := h.facade.NowPlaying("G2").VolumePercent; got != 60 {
		t.Fatalf("saved volume = %d, want 60", got)
	}
	if n := h.players.Len(); n != 0 {
		t.Fatalf("Len() = %d after NowPlaying, want 0", n)
	}
}
