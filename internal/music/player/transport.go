package player

import (
	"context"

	"schedule-bot/internal/music/media"
)

// Channel identifies a voice channel.
type Channel struct {
	ID   string
	Name string
}

// PlayRequest starts one track on a transport. ID is echoed back in the
// completion Event so the session can ignore superseded plays.
type PlayRequest struct {
	ID     uint64
	Track  media.Track
	Volume float64
}

// Event reports that the play with PlayID ended, on its own or with Err.
type Event struct {
	PlayID uint64
	Err    error
}

// Transport is one live voice connection. Play must return once the track
// has started; completion is reported on Events. Events is closed after
// Disconnect.
type Transport interface {
	Channel() Channel
	Move(ctx context.Context, ch Channel) error
	Play(ctx context.Context, req PlayRequest) error
	Pause() bool
	Resume() bool
	Stop() bool
	SetVolume(v float64)
	Disconnect(ctx context.Context) error
	Events() <-chan Event
}

// Connector opens transports.
type Connector interface {
	Connect(ctx context.Context, guildID string, ch Channel) (Transport, error)
}

// VolumeStore persists the per-guild volume.
type VolumeStore interface {
	Load(guildID string) (float64, bool)
	Save(guildID string, v float64) error
}
