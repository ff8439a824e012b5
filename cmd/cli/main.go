// cmd/cli/main.go
//
// Operator CLI over the bot's store:
//
//	cli schedules -guild 123 [-owner 456] [-period week]
//	cli due [-at 2025-08-01T09:00:00Z]
//	cli reminders -schedule 7
//	cli volume [guild [percent]]
//	cli tick
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"schedule-bot/datastore"
	"schedule-bot/internal/config"
	"schedule-bot/internal/storage"
	"schedule-bot/pkg/cmd"
	"schedule-bot/pkg/logx"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	log, closer := logx.New(logx.Config{Level: cfg.LogLevel, Console: true})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Config{Path: cfg.DatabasePath, BusyTimeout: cfg.StoreTimeout}, log)
	if err != nil {
		return err
	}
	defer store.Close()

	dsCfg := datastore.DefaultConfig(cfg.VolumeSettingsPath)
	dsCfg.AutoSaveInterval = 0
	dsCfg.Logger = log
	volumes, err := datastore.Open(dsCfg)
	if err != nil {
		return err
	}
	defer volumes.Close()

	a := &app{
		store:   store,
		volumes: storage.NewVolumeStore(volumes),
		cfg:     cfg,
		loc:     loc,
		out:     os.Stdout,
		log:     log,
		now:     time.Now,
	}
	reg := a.registry()

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		printUsage(reg)
		return nil
	}
	c := reg.Get(args[0])
	if c == nil {
		printUsage(reg)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return c.Run(ctx, &cmd.Invocation{Args: args[1:]})
}

func printUsage(reg *cmd.Registry) {
	var b strings.Builder
	b.WriteString("usage: cli <command> [flags]\n\ncommands:\n")
	for _, c := range reg.GetAll() {
		fmt.Fprintf(&b, "  %-10s %s\n", c.Name(), c.Description())
	}
	fmt.Fprint(os.Stderr, b.String())
}
