package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"

	"schedule-bot/internal/version"
)

func aboutEmbed() *discordgo.MessageEmbed {
	built := "unknown"
	if version.BuildDate != "" {
		if t, err := time.Parse(time.RFC3339, version.BuildDate); err == nil {
			built = t.Format("2006-01-02")
		}
	}
	return embed.NewEmbed().
		SetColor(EmbedColor).
		SetDescription(fmt.Sprintf("ℹ️ **About %s**\n\n%s", version.AppName, version.AppDescription)).
		AddField("Version", version.Version).
		AddField("Release", fmt.Sprintf("%s (Go %s)", built, strings.TrimPrefix(version.GoVersion, "go"))).
		InlineAllFields().
		MessageEmbed
}

func aboutCommand() *slash {
	return &slash{
		name: "about",
		desc: "About this bot",
		run: func(ctx context.Context, sc *SlashContext) error {
			return sc.Reply(aboutEmbed())
		},
	}
}
