// Package commands is the transport-agnostic command layer. Each exported
// method is one user action: it takes plain values, calls the store or the
// playback registry and returns a domain value or an apperr type. Adapters
// (Discord, CLI) only format the result.
package commands

import (
	"context"
	"errors"
	"time"

	"schedule-bot/internal/music/player"
	"schedule-bot/internal/music/resolver"
	"schedule-bot/internal/storage"
	"schedule-bot/pkg/logx"
)

// ErrNoResults is returned by Play when a search finds nothing.
var ErrNoResults = errors.New("no search results")

// ScheduleStore is the part of the store the facade uses.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, n storage.NewSchedule) (int64, error)
	GetSchedule(ctx context.Context, id int64) (storage.Schedule, error)
	ListSchedulesByOwner(ctx context.Context, ownerID, guildID string, from, to time.Time) ([]storage.Schedule, error)
	ListSchedulesByGuild(ctx context.Context, guildID string, from, to time.Time) ([]storage.Schedule, error)
	UpdateSchedule(ctx context.Context, id int64, ownerID string, patch storage.SchedulePatch) (bool, error)
	DeleteSchedule(ctx context.Context, id int64, ownerID string) (bool, error)
	CreateBulkSchedules(ctx context.Context, items []storage.NewSchedule) ([]int64, error)
	CreateReminder(ctx context.Context, n storage.NewReminder) (int64, error)
}

// Players is the session registry as seen by the facade.
type Players interface {
	GetOrCreate(guildID string) *player.Session
	Lookup(guildID string) (*player.Session, bool)
	Volume(guildID string) float64
}

type Facade struct {
	store    ScheduleStore
	players  Players
	resolver resolver.Resolver
	loc      *time.Location
	now      func() time.Time
	log      logx.Logger
}

type Option func(*Facade)

func WithClock(now func() time.Time) Option {
	return func(f *Facade) { f.now = now }
}

// WithLocation sets the zone dates and times are read in.
func WithLocation(loc *time.Location) Option {
	return func(f *Facade) {
		if loc != nil {
			f.loc = loc
		}
	}
}

func New(store ScheduleStore, players Players, res resolver.Resolver, log logx.Logger, opts ...Option) *Facade {
	f := &Facade{
		store:    store,
		players:  players,
		resolver: res,
		loc:      time.Local,
		now:      time.Now,
		log:      log.With(logx.String("component", "commands")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Location is the zone used for parsing and display.
func (f *Facade) Location() *time.Location { return f.loc }

func (f *Facade) clock() time.Time { return f.now().In(f.loc) }
