package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"schedule-bot/pkg/cmd"
)

// SlashContext is the Invocation payload for slash commands.
type SlashContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate

	options map[string]*discordgo.ApplicationCommandInteractionDataOption
}

func newSlashContext(s *discordgo.Session, e *discordgo.InteractionCreate) *SlashContext {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, o := range e.ApplicationCommandData().Options {
		opts[o.Name] = o
	}
	return &SlashContext{Session: s, Event: e, options: opts}
}

func (c *SlashContext) GuildID() string   { return c.Event.GuildID }
func (c *SlashContext) ChannelID() string { return c.Event.ChannelID }

// UserID works for guild and direct interactions.
func (c *SlashContext) UserID() string {
	if c.Event.Member != nil && c.Event.Member.User != nil {
		return c.Event.Member.User.ID
	}
	if c.Event.User != nil {
		return c.Event.User.ID
	}
	return ""
}

func (c *SlashContext) UserName() string {
	if c.Event.Member != nil {
		if c.Event.Member.Nick != "" {
			return c.Event.Member.Nick
		}
		if c.Event.Member.User != nil {
			return c.Event.Member.User.Username
		}
	}
	if c.Event.User != nil {
		return c.Event.User.Username
	}
	return ""
}

func (c *SlashContext) String(name string) string {
	if o, ok := c.options[name]; ok {
		return o.StringValue()
	}
	return ""
}

// OptString is nil when the option was not given.
func (c *SlashContext) OptString(name string) *string {
	o, ok := c.options[name]
	if !ok {
		return nil
	}
	v := o.StringValue()
	return &v
}

func (c *SlashContext) Int(name string) int64 {
	if o, ok := c.options[name]; ok {
		return o.IntValue()
	}
	return 0
}

func (c *SlashContext) Bool(name string) bool {
	if o, ok := c.options[name]; ok {
		return o.BoolValue()
	}
	return false
}

// UserOption returns the id of a user option.
func (c *SlashContext) UserOption(name string) string {
	if o, ok := c.options[name]; ok {
		if u := o.UserValue(nil); u != nil {
			return u.ID
		}
	}
	return ""
}

func slashContext(inv *cmd.Invocation) (*SlashContext, error) {
	sc, ok := inv.Data.(*SlashContext)
	if !ok || sc == nil {
		return nil, fmt.Errorf("not a slash command invocation: %T", inv.Data)
	}
	return sc, nil
}

// SlashCommand is a cmd.Command with a Discord definition.
type SlashCommand interface {
	cmd.Command
	Definition() *discordgo.ApplicationCommand
}

// slash is the concrete command used for every bot command.
type slash struct {
	name    string
	desc    string
	options []*discordgo.ApplicationCommandOption
	run     func(ctx context.Context, sc *SlashContext) error
}

func (c *slash) Name() string        { return c.name }
func (c *slash) Description() string { return c.desc }

func (c *slash) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.name,
		Description: c.desc,
		Type:        discordgo.ChatApplicationCommand,
		Options:     c.options,
	}
}

func (c *slash) Run(ctx context.Context, inv *cmd.Invocation) error {
	sc, err := slashContext(inv)
	if err != nil {
		return err
	}
	return c.run(ctx, sc)
}

// definition finds the Discord definition under any middleware wrappers.
func definition(c cmd.Command) *discordgo.ApplicationCommand {
	if sc, ok := cmd.Root(c).(SlashCommand); ok {
		return sc.Definition()
	}
	return nil
}
