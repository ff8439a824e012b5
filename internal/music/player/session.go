// Package player holds the per-guild playback state machine and the
// registry that owns one session per guild.
//
// States move Idle -> Connecting -> Connected -> Playing <-> Paused, back to
// Connected on stop or track end, and to Idle on disconnect. There is no
// queue: a new play replaces the current track.
package player

import (
	"context"
	"errors"
	"math"
	"sync"

	"schedule-bot/internal/apperr"
	"schedule-bot/internal/music/media"
	"schedule-bot/pkg/logx"
)

// ErrNotConnected is returned by Play when the session has no transport.
var ErrNotConnected = errors.New("not connected to a voice channel")

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return "unknown"
}

// Emoji is used in replies.
func (s State) Emoji() string {
	switch s {
	case StatePlaying:
		return "▶️"
	case StatePaused:
		return "⏸"
	case StateConnected:
		return "⏹"
	}
	return "🔇"
}

// Status is a read-only snapshot of a session.
type Status struct {
	State         State
	Connected     bool
	Playing       bool
	Paused        bool
	Track         *media.Track
	TrackTitle    string
	VolumePercent int
	ChannelName   string
}

type Session struct {
	guildID   string
	connector Connector
	volumes   VolumeStore
	log       logx.Logger

	// connMu serialises connect and disconnect, which do network I/O
	// outside mu.
	connMu sync.Mutex
	// saveMu keeps volume writes in the order the values were set.
	saveMu sync.Mutex

	mu        sync.Mutex
	state     State
	transport Transport
	track     *media.Track
	volume    float64
	playID    uint64
}

func newSession(guildID string, connector Connector, volumes VolumeStore, volume float64, log logx.Logger) *Session {
	return &Session{
		guildID:   guildID,
		connector: connector,
		volumes:   volumes,
		volume:    clampVolume(volume),
		log:       log.With(logx.String("guild_id", guildID)),
	}
}

func (s *Session) GuildID() string { return s.guildID }

// Connect joins ch. A session already connected elsewhere moves its
// transport instead of opening a new one. On failure the state is left as
// it was before the call.
func (s *Session) Connect(ctx context.Context, ch Channel) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.mu.Lock()
	t := s.transport
	if t != nil && t.Channel().ID == ch.ID {
		s.mu.Unlock()
		return nil
	}
	if t == nil {
		s.state = StateConnecting
	}
	s.mu.Unlock()

	if t != nil {
		if err := t.Move(ctx, ch); err != nil {
			return &apperr.TransportError{GuildID: s.guildID, Op: "move", Err: err}
		}
		s.log.Info("moved voice connection", logx.String("channel", ch.Name))
		return nil
	}

	nt, err := s.connector.Connect(ctx, s.guildID, ch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateIdle
		return &apperr.TransportError{GuildID: s.guildID, Op: "connect", Err: err}
	}
	s.transport = nt
	s.state = StateConnected
	go s.watch(nt)
	s.log.Info("connected", logx.String("channel", ch.Name))
	return nil
}

// Play replaces whatever is playing with track at the session volume.
func (s *Session) Play(ctx context.Context, track media.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil || s.state < StateConnected {
		s.track = nil
		return ErrNotConnected
	}
	if s.state == StatePlaying || s.state == StatePaused {
		s.transport.Stop()
	}

	s.playID++
	req := PlayRequest{ID: s.playID, Track: track, Volume: s.volume}
	if err := s.transport.Play(ctx, req); err != nil {
		s.track = nil
		s.state = StateConnected
		return &apperr.TransportError{GuildID: s.guildID, Op: "play", Err: err}
	}

	s.track = &track
	s.state = StatePlaying
	s.log.Info("playing", logx.String("title", track.Title), logx.Uint64("play_id", req.ID))
	return nil
}

// Pause reports false unless a track was playing.
func (s *Session) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying || !s.transport.Pause() {
		return false
	}
	s.state = StatePaused
	return true
}

// Resume reports false unless a track was paused.
func (s *Session) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused || !s.transport.Resume() {
		return false
	}
	s.state = StatePlaying
	return true
}

// Stop ends the current track and keeps the connection.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying && s.state != StatePaused {
		return false
	}
	s.transport.Stop()
	s.track = nil
	s.state = StateConnected
	return true
}

// SetVolume clamps v to [0,1], applies it to the live track and persists
// it. A persistence failure is logged and does not change the result.
func (s *Session) SetVolume(v float64) bool {
	v = clampVolume(v)

	s.mu.Lock()
	s.volume = v
	if s.transport != nil && (s.state == StatePlaying || s.state == StatePaused) {
		s.transport.SetVolume(v)
	}
	s.saveMu.Lock()
	s.mu.Unlock()
	defer s.saveMu.Unlock()

	if s.volumes != nil {
		if err := s.volumes.Save(s.guildID, v); err != nil {
			s.log.Warn("volume not persisted", logx.Float64("volume", v), logx.Err(err))
		}
	}
	return true
}

// Volume returns the current volume in [0,1].
func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:         s.state,
		Connected:     s.transport != nil,
		Playing:       s.state == StatePlaying,
		Paused:        s.state == StatePaused,
		VolumePercent: int(math.Round(s.volume * 100)),
	}
	if s.track != nil {
		tr := *s.track
		st.Track = &tr
		st.TrackTitle = tr.Title
	}
	if s.transport != nil {
		st.ChannelName = s.transport.Channel().Name
	}
	return st
}

// Disconnect stops playback and releases the transport. Calling it on an
// idle session does nothing.
func (s *Session) Disconnect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.mu.Lock()
	t := s.transport
	s.transport = nil
	s.track = nil
	s.state = StateIdle
	s.playID++
	s.mu.Unlock()

	if t == nil {
		return nil
	}
	t.Stop()
	if err := t.Disconnect(ctx); err != nil {
		return &apperr.TransportError{GuildID: s.guildID, Op: "disconnect", Err: err}
	}
	s.log.Info("disconnected")
	return nil
}

// watch applies completion events of t until t closes its channel. Events
// for a superseded play or a replaced transport are dropped.
func (s *Session) watch(t Transport) {
	for ev := range t.Events() {
		s.mu.Lock()
		current := s.transport == t && ev.PlayID == s.playID &&
			(s.state == StatePlaying || s.state == StatePaused)
		if current {
			s.track = nil
			s.state = StateConnected
		}
		s.mu.Unlock()

		switch {
		case !current:
			s.log.Debug("stale playback event ignored", logx.Uint64("play_id", ev.PlayID))
		case ev.Err != nil:
			s.log.Warn("playback ended with error", logx.Uint64("play_id", ev.PlayID), logx.Err(ev.Err))
		default:
			s.log.Info("track finished", logx.Uint64("play_id", ev.PlayID))
		}
	}
}

// consistent reports whether the fields agree with the state.
func (s *Session) consistent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	hasTrack := s.track != nil
	switch s.state {
	case StateIdle, StateConnecting:
		return s.transport == nil && !hasTrack
	case StateConnected:
		return s.transport != nil && !hasTrack
	case StatePlaying, StatePaused:
		return s.transport != nil && hasTrack
	}
	return false
}

func clampVolume(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
