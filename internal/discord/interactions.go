package discord

import (
	"github.com/bwmarrin/discordgo"
)

const EmbedColor = 0xb01e66

// respondDeferred acknowledges an interaction; the reply follows with
// editEmbed. Discord drops interactions not acknowledged within three
// seconds.
func respondDeferred(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

// respondEmbedEphemeral replies immediately, visible to the caller only.
func respondEmbedEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:  discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{e},
		},
	})
}

// editEmbed replaces the deferred "thinking" message.
func editEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed) error {
	embeds := []*discordgo.MessageEmbed{e}
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Embeds: &embeds})
	return err
}

// Reply edits the deferred response of sc with e.
func (c *SlashContext) Reply(e *discordgo.MessageEmbed) error {
	return editEmbed(c.Session, c.Event, e)
}
