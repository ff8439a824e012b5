package player

import (
	"context"
	"errors"
	"sync"

	"schedule-bot/pkg/logx"
	"schedule-bot/pkg/util"
)

// DefaultVolume applies to guilds without a stored volume.
const DefaultVolume = 0.1

// Registry owns the guild -> Session map. It is the only place sessions are
// created, so each guild has at most one.
type Registry struct {
	connector     Connector
	volumes       VolumeStore
	defaultVolume float64
	log           logx.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

type RegistryOption func(*Registry)

func WithDefaultVolume(v float64) RegistryOption {
	return func(r *Registry) { r.defaultVolume = clampVolume(v) }
}

func NewRegistry(connector Connector, volumes VolumeStore, log logx.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		connector:     connector,
		volumes:       volumes,
		defaultVolume: DefaultVolume,
		log:           log.With(logx.String("component", "player")),
		sessions:      make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the guild's session, creating it with the stored
// volume on first use. The stored volume is not read again for a live
// session.
func (r *Registry) GetOrCreate(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok {
		return s
	}
	s := newSession(guildID, r.connector, r.volumes, r.storedVolume(guildID), r.log)
	r.sessions[guildID] = s
	r.log.Debug("session created", logx.String("guild_id", guildID), logx.Float64("volume", s.volume))
	return s
}

// Volume is the live session's volume, or the volume a new session for
// guildID would start with.
func (r *Registry) Volume(guildID string) float64 {
	r.mu.Lock()
	s, ok := r.sessions[guildID]
	r.mu.Unlock()
	if ok {
		return s.Volume()
	}
	return r.storedVolume(guildID)
}

func (r *Registry) storedVolume(guildID string) float64 {
	if r.volumes != nil {
		if v, ok := r.volumes.Load(guildID); ok {
			return v
		}
	}
	return r.defaultVolume
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	return s, ok
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Playing counts sessions that currently have a track.
func (r *Registry) Playing() int {
	r.mu.Lock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.Unlock()

	n := 0
	for _, s := range list {
		if st := s.Status(); st.Playing || st.Paused {
			n++
		}
	}
	return n
}

// CloseAll disconnects every session and empties the registry.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	errs := util.Each(ctx, list, 4, func(ctx context.Context, s *Session) error {
		return s.Disconnect(ctx)
	})
	err := errors.Join(errs...)
	if err != nil {
		r.log.Warn("some sessions did not disconnect cleanly", logx.Int("failed", util.CountErrors(errs)), logx.Err(err))
	}
	r.log.Info("sessions closed", logx.Int("count", len(list)))
	return err
}
