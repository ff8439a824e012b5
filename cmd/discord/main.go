// cmd/discord/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/coreos/go-systemd/v22/daemon"

	"schedule-bot/datastore"
	"schedule-bot/internal/commands"
	"schedule-bot/internal/config"
	"schedule-bot/internal/discord"
	"schedule-bot/internal/health"
	"schedule-bot/internal/music/player"
	"schedule-bot/internal/music/resolver"
	"schedule-bot/internal/music/voice"
	"schedule-bot/internal/reminder"
	"schedule-bot/internal/storage"
	"schedule-bot/internal/version"
	"schedule-bot/pkg/jobmgr"
	"schedule-bot/pkg/logx"
)

const (
	notifyAttempts  = 3
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	log, logCloser := logx.New(logx.Config{
		Level:   cfg.LogLevel,
		Console: true,
		File:    logx.FileConfig{Path: cfg.LogFile},
	})
	defer logCloser.Close()
	log.Info("starting",
		logx.String("app", version.AppName),
		logx.String("version", version.Version),
		logx.String("timezone", loc.String()),
	)
	discord.BridgeLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Config{Path: cfg.DatabasePath, BusyTimeout: cfg.StoreTimeout}, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	volumes, err := openDatastore(cfg.VolumeSettingsPath, log)
	if err != nil {
		return fmt.Errorf("open volume settings: %w", err)
	}
	defer volumes.Close()

	commandCache, err := openDatastore(cfg.CommandCachePath, log)
	if err != nil {
		return fmt.Errorf("open command cache: %w", err)
	}
	defer commandCache.Close()

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}

	connector := voice.NewConnector(dg, cfg.FFmpegPath, cfg.VoiceTimeout, log)
	players := player.NewRegistry(connector, storage.NewVolumeStore(volumes), log,
		player.WithDefaultVolume(cfg.DefaultVolume))

	httpClient := resolver.NewHTTPClient(cfg.YouTubeProxy, cfg.ResolveTimeout, log)
	res := resolver.NewChain(
		resolver.NewYouTube(httpClient, log),
		resolver.NewYTDLP(cfg.YTDLPPath, cfg.YouTubeProxy, "", log),
		cfg.ResolveTimeout,
		log,
	)

	facade := commands.New(store, players, res, log, commands.WithLocation(loc))
	registry, err := discord.Commands(facade, log)
	if err != nil {
		return fmt.Errorf("build commands: %w", err)
	}

	bot := discord.New(dg, registry, discord.Options{
		InitSlashCommands: cfg.InitSlashCommands,
		CommandCache:      commandCache,
	}, log)
	if err := bot.Open(ctx); err != nil {
		return err
	}

	scheduler := reminder.New(store,
		reminder.NewLimited(discord.NewNotifier(dg, log), notifyAttempts, log),
		log,
		reminder.WithInterval(cfg.ReminderInterval),
		reminder.WithWorkers(cfg.ReminderWorkers),
		reminder.WithDispatchTimeout(cfg.DispatchTimeout),
		reminder.WithStoreTimeout(cfg.StoreTimeout),
	)

	jobs := jobmgr.NewManager(ctx, func(msg string) {
		if strings.HasPrefix(msg, "error:") {
			log.Error("job failed", logx.String("status", msg))
			return
		}
		log.Debug("job", logx.String("status", msg))
	})
	if err := jobs.StartAsync("reminders", func(ctx context.Context) error {
		return scheduler.Run(ctx, bot.Ready())
	}); err != nil {
		return err
	}
	if addr := cfg.HealthAddr(); addr != "" {
		srv := health.New(version.AppName, players.Len, log)
		if err := jobs.StartAsync("health", func(ctx context.Context) error {
			return srv.Run(ctx, addr)
		}); err != nil {
			return err
		}
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := jobs.StartAsync("config-watch", func(ctx context.Context) error {
			return config.Watch(ctx, path, func(c *config.Config) { logx.SetLevel(c.LogLevel) }, log)
		}); err != nil {
			return err
		}
	}

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Debug("systemd notify", logx.Err(err))
	}
	log.Info("running", logx.String("jobs", strings.Join(jobs.List(), ",")))

	<-ctx.Done()
	log.Info("shutdown signal received")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	bot.StopAccepting()
	jobs.StopAll()
	jobs.Wait()

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var errs []error
	if err := players.CloseAll(sctx); err != nil {
		errs = append(errs, fmt.Errorf("close voice sessions: %w", err))
	}
	if err := bot.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close gateway: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("shutdown", logx.Err(err))
	}
	log.Info("stopped")
	return nil
}

func openDatastore(path string, log logx.Logger) (*datastore.DataStore, error) {
	cfg := datastore.DefaultConfig(path)
	cfg.Logger = log
	return datastore.Open(cfg)
}
