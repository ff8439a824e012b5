package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"schedule-bot/datastore"
	"schedule-bot/pkg/cmd"
	"schedule-bot/pkg/logx"
)

const commandTimeout = 60 * time.Second

type Options struct {
	// InitSlashCommands syncs guild commands whenever a guild becomes available.
	InitSlashCommands bool
	// CommandCache keeps command hashes between restarts; nil registers
	// every command on each start.
	CommandCache *datastore.DataStore
}

// Bot connects the command registry to the Discord gateway.
type Bot struct {
	dg        *discordgo.Session
	registry  *cmd.Registry
	hashes    hashCache
	initSlash bool
	log       logx.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	ready     chan struct{}
	readyOnce sync.Once

	mu       sync.Mutex
	closing  bool
	handlers sync.WaitGroup
}

func New(dg *discordgo.Session, registry *cmd.Registry, opts Options, log logx.Logger) *Bot {
	return &Bot{
		dg:        dg,
		registry:  registry,
		hashes:    hashCache{ds: opts.CommandCache},
		initSlash: opts.InitSlashCommands,
		log:       log.With(logx.String("component", "discord")),
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the gateway session is established.
func (b *Bot) Ready() <-chan struct{} { return b.ready }

// Open registers the handlers and connects to the gateway. Handlers run
// with contexts derived from ctx.
func (b *Bot) Open(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onInteractionCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// StopAccepting makes new interactions get a "shutting down" reply, then
// cancels the running handlers and waits for them. Safe to call twice.
func (b *Bot) StopAccepting() {
	b.mu.Lock()
	b.closing = true
	b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
	b.handlers.Wait()
}

// Close stops accepting commands and closes the gateway.
func (b *Bot) Close() error {
	b.StopAccepting()
	return b.dg.Close()
}

// begin registers a running handler unless the bot is shutting down.
// The caller must call handlers.Done when begin returns true.
func (b *Bot) begin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closing || (b.ctx != nil && b.ctx.Err() != nil) {
		return false
	}
	b.handlers.Add(1)
	return true
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.readyOnce.Do(func() { close(b.ready) })
	b.log.Info("gateway ready",
		logx.String("user", r.User.Username),
		logx.Int("guilds", len(r.Guilds)),
	)
}

// onGuildCreate fires for every guild after Ready and when the bot joins
// a new one. Commands are synced here; unchanged hashes skip the API.
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	b.log.Debug("guild available", logx.String("guild_id", g.ID), logx.String("name", g.Name))
	if err := b.registerCommands(g.ID); err != nil {
		b.log.Error("register commands", logx.String("guild_id", g.ID), logx.Err(err))
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	if !b.begin() {
		b.log.Debug("rejected command during shutdown", logx.String("command", name))
		_ = respondEmbedEphemeral(s, i, shuttingDownEmbed())
		return
	}
	defer b.handlers.Done()

	c := b.registry.Get(name)
	if c == nil {
		b.log.Warn("unknown command", logx.String("command", name))
		_ = respondEmbedEphemeral(s, i, failEmbed("Unknown command", "This command is no longer available."))
		return
	}

	if err := respondDeferred(s, i, false); err != nil {
		b.log.Warn("defer interaction", logx.String("command", name), logx.Err(err))
		return
	}

	base := b.ctx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, commandTimeout)
	defer cancel()

	inv := &cmd.Invocation{Data: newSlashContext(s, i)}
	if err := c.Run(ctx, inv); err != nil {
		if rerr := editEmbed(s, i, errorEmbed(err)); rerr != nil {
			b.log.Warn("reply with error", logx.String("command", name), logx.Err(rerr))
		}
	}
}
