package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"schedule-bot/datastore"
	"schedule-bot/internal/config"
	"schedule-bot/internal/reminder"
	"schedule-bot/internal/storage"
	"schedule-bot/internal/testutil"
	"schedule-bot/pkg/cmd"
	"schedule-bot/pkg/logx"
)

var t0 = time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC)

func newApp(t *testing.T) (*app, *testutil.Clock, *bytes.Buffer) {
	t.Helper()
	clock := testutil.NewClock(t0)
	ds, err := datastore.Open(datastore.Config{FilePath: filepath.Join(t.TempDir(), "volumes.json")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ds.Close() })

	var out bytes.Buffer
	return &app{
		store:   testutil.NewStore(t, clock),
		volumes: storage.NewVolumeStore(ds),
		cfg:     config.Default(),
		loc:     time.UTC,
		out:     &out,
		log:     logx.Nop(),
		now:     clock.Now,
	}, clock, &out
}

func runCmd(t *testing.T, a *app, args ...string) error {
	t.Helper()
	c := a.registry().Get(args[0])
	if c == nil {
		t.Fatalf("no command %q", args[0])
	}
	return c.Run(context.Background(), &cmd.Invocation{Args: args[1:]})
}

func TestSchedulesAndDue(t *testing.T) {
	a, clock, out := newApp(t)
	ctx := context.Background()

	id, err := a.store.CreateSchedule(ctx, storage.NewSchedule{
		OwnerID: "u1", GuildID: "g1", Title: "Standup", Start: t0.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.store.CreateReminder(ctx, storage.NewReminder{
		ScheduleID: id, OwnerID: "u1", GuildID: "g1", ChannelID: "c1", FireAt: t0.Add(time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	if err := runCmd(t, a, "schedules", "-guild", "g1"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "2025-07-20 12:00") || !strings.Contains(out.String(), "Standup") {
		t.Fatalf("schedules output:\n%s", out.String())
	}

	out.Reset()
	if err := runCmd(t, a, "due"); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "Standup") {
		t.Fatalf("reminder listed before it is due:\n%s", out.String())
	}

	clock.Advance(90 * time.Minute)
	out.Reset()
	if err := runCmd(t, a, "due"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "c1") {
		t.Fatalf("due output:\n%s", out.String())
	}

	if err := runCmd(t, a, "schedules"); err == nil {
		t.Fatal("missing -guild accepted")
	}
}

func TestTickDelivers(t *testing.T) {
	a, clock, out := newApp(t)
	ctx := context.Background()

	id, _ := a.store.CreateSchedule(ctx, storage.NewSchedule{
		OwnerID: "u1", GuildID: "g1", Title: "Raid", Start: t0.Add(2 * time.Hour),
	})
	if _, err := a.store.CreateReminder(ctx, storage.NewReminder{
		ScheduleID: id, OwnerID: "u1", GuildID: "g1", ChannelID: "c1", FireAt: t0.Add(time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	var got []reminder.Notification
	a.notifier = reminder.NotifierFunc(func(_ context.Context, n reminder.Notification) error {
		got = append(got, n)
		return nil
	})
	clock.Advance(time.Hour)

	if err := runCmd(t, a, "tick"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Raid" || got[0].RecipientID != "u1" {
		t.Fatalf("notifications = %+v", got)
	}
	if !strings.Contains(out.String(), "due=1 sent=1") {
		t.Fatalf("tick output: %s", out.String())
	}

	rs, err := a.store.ListReminders(ctx, id)
	if err != nil || len(rs) != 1 || !rs[0].Sent {
		t.Fatalf("reminders = %+v, %v", rs, err)
	}
}

func TestTickNeedsToken(t *testing.T) {
	a, _, _ := newApp(t)
	if err := runCmd(t, a, "tick"); err == nil {
		t.Fatal("tick without a token or notifier should fail")
	}
}

func TestVolume(t *testing.T) {
	a, _, out := newApp(t)

	if err := runCmd(t, a, "volume", "g1"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "default (10%)") {
		t.Fatalf("output: %s", out.String())
	}

	if err := runCmd(t, a, "volume", "g1", "35"); err != nil {
		t.Fatal(err)
	}
	if v, ok := a.volumes.Load("g1"); !ok || v != 0.35 {
		t.Fatalf("saved volume = %v, %v", v, ok)
	}

	out.Reset()
	if err := runCmd(t, a, "volume"); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "g1\t35%" {
		t.Fatalf("list output: %q", out.String())
	}

	if err := runCmd(t, a, "volume", "g1", "150"); err == nil {
		t.Fatal("volume above 100 accepted")
	}
}
