package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/bwmarrin/discordgo"

	"schedule-bot/internal/config"
	"schedule-bot/internal/datetime"
	"schedule-bot/internal/discord"
	"schedule-bot/internal/reminder"
	"schedule-bot/internal/storage"
	"schedule-bot/pkg/cmd"
	"schedule-bot/pkg/jobmgr"
	"schedule-bot/pkg/logx"
	"schedule-bot/pkg/util"
)

const timeTpl = "YYYY-MM-DD hh:mm"

type app struct {
	store   *storage.Store
	volumes *storage.VolumeStore
	cfg     *config.Config
	loc     *time.Location
	out     io.Writer
	log     logx.Logger
	now     func() time.Time

	// notifier overrides the Discord notifier used by tick.
	notifier reminder.Notifier
}

func (a *app) registry() *cmd.Registry {
	reg := cmd.NewRegistry()
	reg.MustRegister(
		cmd.Func{CmdName: "schedules", Desc: "list schedules of a guild or member", Fn: a.schedules},
		cmd.Func{CmdName: "due", Desc: "list reminders that are due", Fn: a.due},
		cmd.Func{CmdName: "reminders", Desc: "list the reminders of a schedule", Fn: a.reminders},
		cmd.Func{CmdName: "volume", Desc: "show or set saved guild volumes", Fn: a.volume},
		cmd.Func{CmdName: "tick", Desc: "run one reminder cycle now", Fn: a.tick},
	)
	return reg
}

func (a *app) when(t time.Time) string { return util.FormatTime(t.In(a.loc), timeTpl) }

func (a *app) schedules(ctx context.Context, inv *cmd.Invocation) error {
	fs := flag.NewFlagSet("schedules", flag.ContinueOnError)
	fs.SetOutput(a.out)
	guild := fs.String("guild", "", "guild id (required)")
	owner := fs.String("owner", "", "only this member's schedules")
	period := fs.String("period", datetime.PeriodAll, "today, week, month or all")
	if err := fs.Parse(inv.Args); err != nil {
		return err
	}
	if *guild == "" {
		return errors.New("-guild is required")
	}
	r, err := datetime.PeriodRange(*period, a.now().In(a.loc))
	if err != nil {
		return err
	}

	var items []storage.Schedule
	if *owner != "" {
		items, err = a.store.ListSchedulesByOwner(ctx, *owner, *guild, r.From, r.To)
	} else {
		items, err = a.store.ListSchedulesByGuild(ctx, *guild, r.From, r.To)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tOWNER\tTITLE")
	for _, s := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, a.when(s.Start), s.OwnerID, s.Title)
	}
	return tw.Flush()
}

func (a *app) due(ctx context.Context, inv *cmd.Invocation) error {
	fs := flag.NewFlagSet("due", flag.ContinueOnError)
	fs.SetOutput(a.out)
	at := fs.String("at", "", "RFC 3339 instant (default now)")
	if err := fs.Parse(inv.Args); err != nil {
		return err
	}
	now := a.now()
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("-at: %w", err)
		}
		now = t
	}

	items, err := a.store.ListDueReminders(ctx, now)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFIRE AT\tCHANNEL\tSCHEDULE")
	for _, r := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID, a.when(r.FireAt), r.ChannelID, r.ScheduleTitle)
	}
	return tw.Flush()
}

func (a *app) reminders(ctx context.Context, inv *cmd.Invocation) error {
	fs := flag.NewFlagSet("reminders", flag.ContinueOnError)
	fs.SetOutput(a.out)
	id := fs.Int64("schedule", 0, "schedule id (required)")
	if err := fs.Parse(inv.Args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("-schedule is required")
	}
	items, err := a.store.ListReminders(ctx, *id)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFIRE AT\tSENT\tMESSAGE")
	for _, r := range items {
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", r.ID, a.when(r.FireAt), r.Sent, r.Message)
	}
	return tw.Flush()
}

// volume: no args lists every saved volume, one arg shows a guild, two
// args set it (percent).
func (a *app) volume(ctx context.Context, inv *cmd.Invocation) error {
	switch len(inv.Args) {
	case 0:
		all := a.volumes.All()
		guilds := make([]string, 0, len(all))
		for g := range all {
			guilds = append(guilds, g)
		}
		sort.Strings(guilds)
		for _, g := range guilds {
			fmt.Fprintf(a.out, "%s\t%d%%\n", g, percent(all[g]))
		}
		return nil
	case 1:
		v, ok := a.volumes.Load(inv.Arg(0))
		if !ok {
			fmt.Fprintf(a.out, "%s\tdefault (%d%%)\n", inv.Arg(0), percent(a.cfg.DefaultVolume))
			return nil
		}
		fmt.Fprintf(a.out, "%s\t%d%%\n", inv.Arg(0), percent(v))
		return nil
	default:
		p, err := strconv.Atoi(inv.Arg(1))
		if err != nil || p < 0 || p > 100 {
			return fmt.Errorf("volume must be a percentage between 0 and 100, got %q", inv.Arg(1))
		}
		if err := a.volumes.Save(inv.Arg(0), float64(p)/100); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\t%d%%\n", inv.Arg(0), p)
		return nil
	}
}

func percent(v float64) int { return int(v*100 + 0.5) }

// tick runs one scheduler cycle, posting through the Discord REST API.
func (a *app) tick(ctx context.Context, inv *cmd.Invocation) error {
	n := a.notifier
	if n == nil {
		if a.cfg.DiscordToken == "" {
			return errors.New("DISCORD_TOKEN is required to deliver reminders")
		}
		dg, err := discordgo.New("Bot " + a.cfg.DiscordToken)
		if err != nil {
			return err
		}
		n = discord.NewNotifier(dg, a.log)
	}
	s := reminder.New(a.store, n, a.log,
		reminder.WithWorkers(a.cfg.ReminderWorkers),
		reminder.WithDispatchTimeout(a.cfg.DispatchTimeout),
		reminder.WithStoreTimeout(a.cfg.StoreTimeout),
		reminder.WithClock(a.now),
	)
	jobs := jobmgr.NewManager(ctx, func(msg string) {
		a.log.Debug("job", logx.String("status", msg))
	})
	var st reminder.Stats
	if err := jobs.StartSync("tick", func(ctx context.Context) error {
		st, _ = s.Tick(ctx)
		return st.Err
	}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "due=%d sent=%d failed=%d mark_failed=%d\n", st.Due, st.Sent, st.Failed, st.MarkFailed)
	return nil
}
