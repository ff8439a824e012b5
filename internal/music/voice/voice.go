// Package voice connects playback sessions to Discord voice channels.
package voice

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"

	"schedule-bot/internal/music/player"
	"schedule-bot/internal/music/stream"
	"schedule-bot/pkg/logx"
)

const defaultJoinTimeout = 15 * time.Second

// Connector joins voice channels through a discordgo session and streams
// with ffmpeg.
type Connector struct {
	dg          *discordgo.Session
	ffmpegPath  string
	joinTimeout time.Duration
	log         logx.Logger
}

var _ player.Connector = (*Connector)(nil)

func NewConnector(dg *discordgo.Session, ffmpegPath string, joinTimeout time.Duration, log logx.Logger) *Connector {
	if joinTimeout <= 0 {
		joinTimeout = defaultJoinTimeout
	}
	return &Connector{
		dg:          dg,
		ffmpegPath:  ffmpegPath,
		joinTimeout: joinTimeout,
		log:         log.With(logx.String("component", "voice")),
	}
}

type joinResult struct {
	vc  *discordgo.VoiceConnection
	err error
}

// Connect joins ch deafened. A join that finishes after ctx is done is
// disconnected again.
func (c *Connector) Connect(ctx context.Context, guildID string, ch player.Channel) (player.Transport, error) {
	ctx, cancel := context.WithTimeout(ctx, c.joinTimeout)
	defer cancel()

	res := make(chan joinResult, 1)
	go func() {
		vc, err := c.dg.ChannelVoiceJoin(guildID, ch.ID, false, true)
		res <- joinResult{vc, err}
	}()

	var vc *discordgo.VoiceConnection
	select {
	case r := <-res:
		if r.err != nil {
			return nil, fmt.Errorf("join %s: %w", ch.ID, r.err)
		}
		vc = r.vc
	case <-ctx.Done():
		go func() {
			if r := <-res; r.err == nil && r.vc != nil {
				_ = r.vc.Disconnect()
			}
		}()
		return nil, fmt.Errorf("join %s: %w", ch.ID, ctx.Err())
	}

	t, err := stream.New(stream.Config{
		Link:       vc,
		Opus:       vc.OpusSend,
		Open:       stream.FFmpeg(c.ffmpegPath),
		NewEncoder: newOpusEncoder,
		Channel:    ch,
		Logger:     c.log.With(logx.String("guild_id", guildID)),
	})
	if err != nil {
		_ = vc.Disconnect()
		return nil, err
	}
	return t, nil
}

func newOpusEncoder() (stream.Encoder, error) {
	enc, err := gopus.NewEncoder(stream.SampleRate, stream.Channels, gopus.Audio)
	if err != nil {
		return nil, err
	}
	return enc, nil
}
