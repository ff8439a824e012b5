package commands

import (
	"context"
	"math"
	"strings"

	"schedule-bot/internal/apperr"
	"schedule-bot/internal/music/media"
	"schedule-bot/internal/music/player"
	"schedule-bot/internal/music/resolver"
	"schedule-bot/pkg/logx"
)

type PlayRequest struct {
	GuildID string
	UserID  string
	Channel player.Channel // the requester's voice channel
	Query   string         // URL or search phrase
}

// Play joins the requester's channel, resolves the query and replaces
// whatever the guild is playing. Resolution runs outside the session lock
// so other commands on the guild are not held up by a slow lookup.
func (f *Facade) Play(ctx context.Context, req PlayRequest) (media.Track, error) {
	query := strings.TrimSpace(req.Query)
	switch {
	case query == "":
		return media.Track{}, apperr.Invalid("query", "a URL or search phrase is required")
	case req.Channel.ID == "":
		return media.Track{}, apperr.Invalid("channel", "join a voice channel first")
	}

	sess := f.players.GetOrCreate(req.GuildID)
	if err := sess.Connect(ctx, req.Channel); err != nil {
		return media.Track{}, err
	}

	track, err := f.resolve(ctx, query)
	if err != nil {
		return media.Track{}, err
	}
	if err := sess.Play(ctx, track); err != nil {
		return media.Track{}, err
	}
	f.log.Info("play requested",
		logx.String("guild_id", req.GuildID),
		logx.String("user_id", req.UserID),
		logx.String("title", track.Title),
	)
	return track, nil
}

func (f *Facade) resolve(ctx context.Context, query string) (media.Track, error) {
	if resolver.IsURL(query) {
		return f.resolver.ResolveByURL(ctx, query, true)
	}
	results := f.resolver.Search(ctx, query)
	if len(results) == 0 {
		return media.Track{}, ErrNoResults
	}
	first := results[0]
	f.log.Debug("search picked", logx.String("term", query), logx.String("title", first.Title))
	if first.SourceURL != "" {
		return first, nil
	}
	return f.resolver.ResolveByURL(ctx, first.PageURL, true)
}

// Pause reports false when nothing is playing.
func (f *Facade) Pause(guildID string) bool {
	s, ok := f.players.Lookup(guildID)
	return ok && s.Pause()
}

// Resume reports false when nothing is paused.
func (f *Facade) Resume(guildID string) bool {
	s, ok := f.players.Lookup(guildID)
	return ok && s.Resume()
}

// Stop reports false when nothing is playing or paused.
func (f *Facade) Stop(guildID string) bool {
	s, ok := f.players.Lookup(guildID)
	return ok && s.Stop()
}

// SetVolume takes a percentage and returns the stored one.
func (f *Facade) SetVolume(guildID string, percent int) (int, error) {
	if percent < 0 || percent > 100 {
		return 0, apperr.Invalid("volume", "must be between 0 and 100")
	}
	s := f.players.GetOrCreate(guildID)
	s.SetVolume(float64(percent) / 100)
	return int(math.Round(s.Volume() * 100)), nil
}

// NowPlaying is the session snapshot. A guild without a session reads as
// idle at its saved or default volume; no session is created.
func (f *Facade) NowPlaying(guildID string) player.Status {
	if s, ok := f.players.Lookup(guildID); ok {
		return s.Status()
	}
	return player.Status{
		State:         player.StateIdle,
		VolumePercent: int(math.Round(f.players.Volume(guildID) * 100)),
	}
}

// Disconnect reports whether there was a connection to close.
func (f *Facade) Disconnect(ctx context.Context, guildID string) (bool, error) {
	s, ok := f.players.Lookup(guildID)
	if !ok || !s.Status().Connected {
		return false, nil
	}
	if err := s.Disconnect(ctx); err != nil {
		return false, err
	}
	return true, nil
}
