package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"schedule-bot/pkg/logx"
)

// commandAPI is the part of discordgo used to sync guild commands.
type commandAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// syncCommands brings a guild's slash commands in line with defs: commands
// Discord knows but defs lacks are deleted, and commands whose hash differs
// from the cached one are created or overwritten.
func syncCommands(api commandAPI, cache hashCache, appID, guildID string, defs []*discordgo.ApplicationCommand, log logx.Logger) error {
	remote, err := api.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}

	local := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		local[d.Name] = struct{}{}
	}

	hashes := cache.load(guildID)
	registered := make(map[string]struct{}, len(remote))
	for _, rc := range remote {
		if _, ok := local[rc.Name]; ok {
			registered[rc.Name] = struct{}{}
			continue
		}
		if err := api.ApplicationCommandDelete(appID, guildID, rc.ID); err != nil {
			log.Warn("delete obsolete command", logx.String("guild_id", guildID), logx.String("command", rc.Name), logx.Err(err))
			continue
		}
		delete(hashes, rc.Name)
		log.Info("deleted obsolete command", logx.String("guild_id", guildID), logx.String("command", rc.Name))
	}

	changed := 0
	for _, d := range defs {
		h := hashCommand(d)
		if _, ok := registered[d.Name]; ok && hashes[d.Name] == h {
			continue
		}
		if _, err := api.ApplicationCommandCreate(appID, guildID, d); err != nil {
			log.Warn("register command", logx.String("guild_id", guildID), logx.String("command", d.Name), logx.Err(err))
			continue
		}
		hashes[d.Name] = h
		changed++
		time.Sleep(25 * time.Millisecond)
	}
	if changed > 0 {
		log.Info("commands registered", logx.String("guild_id", guildID), logx.Int("changed", changed))
	}
	return cache.save(guildID, hashes)
}

// appID returns the bot's application ID, fetching it when the state
// cache is still empty.
func (b *Bot) appID() (string, error) {
	if b.dg.State != nil && b.dg.State.User != nil && b.dg.State.User.ID != "" {
		return b.dg.State.User.ID, nil
	}
	u, err := b.dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("fetch bot user: %w", err)
	}
	return u.ID, nil
}

func (b *Bot) registerCommands(guildID string) error {
	if !b.initSlash {
		return nil
	}
	appID, err := b.appID()
	if err != nil {
		return err
	}
	var defs []*discordgo.ApplicationCommand
	for _, c := range b.registry.GetAll() {
		if def := definition(c); def != nil {
			defs = append(defs, def)
		}
	}
	return syncCommands(b.dg, b.hashes, appID, guildID, defs, b.log)
}
