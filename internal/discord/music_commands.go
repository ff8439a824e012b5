package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"schedule-bot/internal/commands"
	"schedule-bot/internal/music/player"
	"schedule-bot/pkg/cmd"
	"schedule-bot/pkg/logx"
)

var errNoVoice = errors.New("join a voice channel first")

// userVoiceChannel finds the voice channel the user is sitting in, from
// the gateway state cache.
func userVoiceChannel(s *discordgo.Session, guildID, userID string) (player.Channel, error) {
	vs, err := s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return player.Channel{}, errNoVoice
	}
	ch := player.Channel{ID: vs.ChannelID, Name: vs.ChannelID}
	if c, err := s.State.Channel(vs.ChannelID); err == nil && c != nil {
		ch.Name = c.Name
	}
	return ch, nil
}

// musicCommands are the playback slash commands.
func musicCommands(f *commands.Facade) []cmd.Command {
	return []cmd.Command{
		&slash{
			name:    "play",
			desc:    "Play a YouTube URL or the first search result",
			options: []*discordgo.ApplicationCommandOption{strOpt("query", "URL or search words", true)},
			run: func(ctx context.Context, sc *SlashContext) error {
				ch, err := userVoiceChannel(sc.Session, sc.GuildID(), sc.UserID())
				if err != nil {
					return err
				}
				track, err := f.Play(ctx, commands.PlayRequest{
					GuildID: sc.GuildID(),
					UserID:  sc.UserID(),
					Channel: ch,
					Query:   sc.String("query"),
				})
				if err != nil {
					return err
				}
				vol := f.NowPlaying(sc.GuildID()).VolumePercent
				return sc.Reply(trackEmbed("🎵 Now playing", track, vol, sc.UserName()))
			},
		},
		&slash{
			name: "pause",
			desc: "Pause playback",
			run: func(ctx context.Context, sc *SlashContext) error {
				if !f.Pause(sc.GuildID()) {
					return sc.Reply(infoEmbed("Nothing to pause", "Nothing is playing right now.").MessageEmbed)
				}
				return sc.Reply(successEmbed("Paused", "Use /resume to continue.").MessageEmbed)
			},
		},
		&slash{
			name: "resume",
			desc: "Resume paused playback",
			run: func(ctx context.Context, sc *SlashContext) error {
				if !f.Resume(sc.GuildID()) {
					return sc.Reply(infoEmbed("Nothing to resume", "Playback is not paused.").MessageEmbed)
				}
				return sc.Reply(successEmbed("Resumed", "Playback continues.").MessageEmbed)
			},
		},
		&slash{
			name: "stop",
			desc: "Stop playback",
			run: func(ctx context.Context, sc *SlashContext) error {
				if !f.Stop(sc.GuildID()) {
					return sc.Reply(infoEmbed("Nothing to stop", "Nothing is playing right now.").MessageEmbed)
				}
				return sc.Reply(successEmbed("Stopped", "Playback stopped.").MessageEmbed)
			},
		},
		&slash{
			name:    "volume",
			desc:    "Set the playback volume",
			options: []*discordgo.ApplicationCommandOption{intOpt("level", "Volume in percent", true, 0, 100)},
			run: func(ctx context.Context, sc *SlashContext) error {
				v, err := f.SetVolume(sc.GuildID(), int(sc.Int("level")))
				if err != nil {
					return err
				}
				return sc.Reply(successEmbed("Volume set", fmt.Sprintf("Volume is now %d%%.", v)).MessageEmbed)
			},
		},
		&slash{
			name: "nowplaying",
			desc: "Show what is playing",
			run: func(ctx context.Context, sc *SlashContext) error {
				return sc.Reply(nowPlayingEmbed(f.NowPlaying(sc.GuildID())))
			},
		},
		&slash{
			name: "disconnect",
			desc: "Leave the voice channel",
			run: func(ctx context.Context, sc *SlashContext) error {
				ok, err := f.Disconnect(ctx, sc.GuildID())
				if err != nil {
					return err
				}
				if !ok {
					return sc.Reply(infoEmbed("Not connected", "I am not in a voice channel.").MessageEmbed)
				}
				return sc.Reply(successEmbed("Disconnected", "Left the voice channel.").MessageEmbed)
			},
		},
	}
}

// Commands builds the registry of every slash command the bot serves.
func Commands(f *commands.Facade, log logx.Logger) (*cmd.Registry, error) {
	reg := cmd.NewRegistry()
	all := append(scheduleCommands(f), musicCommands(f)...)
	all = append(all, aboutCommand())
	for _, c := range all {
		wrapped := cmd.Apply(c, Recover(), CommandLog(log), GuildOnly())
		if err := reg.Register(wrapped); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
