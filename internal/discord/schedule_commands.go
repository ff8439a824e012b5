package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"schedule-bot/internal/commands"
	"schedule-bot/pkg/cmd"
)

func strOpt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: desc,
		Required:    required,
	}
}

func intOpt(name, desc string, required bool, minValue, maxValue float64) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: desc,
		Required:    required,
		MinValue:    &minValue,
		MaxValue:    maxValue,
	}
}

func boolOpt(name, desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        name,
		Description: desc,
	}
}

var periodChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Today", Value: "today"},
	{Name: "This week", Value: "week"},
	{Name: "This month", Value: "month"},
	{Name: "All", Value: "all"},
}

// scheduleCommands are the schedule-* slash commands.
func scheduleCommands(f *commands.Facade) []cmd.Command {
	period := strOpt("period", "Period to show (default: this week)", false)
	period.Choices = periodChoices

	return []cmd.Command{
		&slash{
			name: "schedule-add",
			desc: "Add a schedule",
			options: []*discordgo.ApplicationCommandOption{
				strOpt("title", "Title", true),
				strOpt("date", "Date (2025-07-31, 7/31, today, tomorrow)", true),
				strOpt("time", "Start time (14:30, 2:30PM); default 9:00", false),
				strOpt("description", "Details", false),
				strOpt("end_time", "End time on the same day", false),
			},
			run: func(ctx context.Context, sc *SlashContext) error {
				s, err := f.AddSchedule(ctx, commands.AddScheduleRequest{
					OwnerID:     sc.UserID(),
					GuildID:     sc.GuildID(),
					Title:       sc.String("title"),
					Date:        sc.String("date"),
					Time:        sc.String("time"),
					EndTime:     sc.String("end_time"),
					Description: sc.String("description"),
				})
				if err != nil {
					return err
				}
				return sc.Reply(scheduleAddedEmbed(s))
			},
		},
		&slash{
			name: "schedule-list",
			desc: "List schedules",
			options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Show another member's schedules"},
				period,
				boolOpt("show_all", "Show everyone's schedules"),
			},
			run: func(ctx context.Context, sc *SlashContext) error {
				l, err := f.ListSchedules(ctx, commands.ListSchedulesRequest{
					RequesterID: sc.UserID(),
					GuildID:     sc.GuildID(),
					UserID:      sc.UserOption("user"),
					Period:      sc.String("period"),
					ShowAll:     sc.Bool("show_all"),
				})
				if err != nil {
					return err
				}
				return sc.Reply(scheduleListEmbed(l, f.Location()))
			},
		},
		&slash{
			name: "schedule-calendar",
			desc: "Show a month calendar",
			options: []*discordgo.ApplicationCommandOption{
				intOpt("year", "Year (default: this year)", false, 2020, 2030),
				intOpt("month", "Month (default: this month)", false, 1, 12),
				boolOpt("show_all", "Show everyone's schedules"),
			},
			run: func(ctx context.Context, sc *SlashContext) error {
				c, err := f.Calendar(ctx, commands.CalendarRequest{
					UserID:  sc.UserID(),
					GuildID: sc.GuildID(),
					Year:    int(sc.Int("year")),
					Month:   int(sc.Int("month")),
					ShowAll: sc.Bool("show_all"),
				})
				if err != nil {
					return err
				}
				return sc.Reply(calendarEmbed(c, sc.Bool("show_all"), f.Location()))
			},
		},
		&slash{
			name: "schedule-edit",
			desc: "Edit one of your schedules",
			options: []*discordgo.ApplicationCommandOption{
				intOpt("schedule_id", "Schedule ID", true, 1, 0),
				strOpt("title", "New title", false),
				strOpt("date", "New date", false),
				strOpt("time", "New start time", false),
				strOpt("description", "New details", false),
			},
			run: func(ctx context.Context, sc *SlashContext) error {
				s, err := f.EditSchedule(ctx, commands.EditScheduleRequest{
					UserID:      sc.UserID(),
					ScheduleID:  sc.Int("schedule_id"),
					Title:       sc.OptString("title"),
					Date:        sc.OptString("date"),
					Time:        sc.OptString("time"),
					Description: sc.OptString("description"),
				})
				if err != nil {
					return err
				}
				e := successEmbed("Schedule updated", "**"+s.Title+"** now starts "+stamp(s.Start, "F")+".")
				return sc.Reply(e.SetFooter(fmt.Sprintf("Schedule ID: %d", s.ID)).MessageEmbed)
			},
		},
		&slash{
			name:    "schedule-delete",
			desc:    "Delete one of your schedules",
			options: []*discordgo.ApplicationCommandOption{intOpt("schedule_id", "Schedule ID", true, 1, 0)},
			run: func(ctx context.Context, sc *SlashContext) error {
				s, err := f.DeleteSchedule(ctx, sc.UserID(), sc.Int("schedule_id"))
				if err != nil {
					return err
				}
				return sc.Reply(successEmbed("Schedule deleted", "Deleted **"+s.Title+"**.").MessageEmbed)
			},
		},
		&slash{
			name: "schedule-remind",
			desc: "Set a reminder for one of your schedules",
			options: []*discordgo.ApplicationCommandOption{
				intOpt("schedule_id", "Schedule ID", true, 1, 0),
				strOpt("time_before", "How long before (30min, 1hour, 1day, 30分, 1時間)", true),
				strOpt("message", "Custom message", false),
			},
			run: func(ctx context.Context, sc *SlashContext) error {
				r, err := f.SetReminder(ctx, commands.SetReminderRequest{
					UserID:     sc.UserID(),
					GuildID:    sc.GuildID(),
					ChannelID:  sc.ChannelID(),
					ScheduleID: sc.Int("schedule_id"),
					LeadTime:   sc.String("time_before"),
					Message:    sc.String("message"),
				})
				if err != nil {
					return err
				}
				s, err := f.Schedule(ctx, r.ScheduleID)
				if err != nil {
					return err
				}
				return sc.Reply(reminderSetEmbed(s.Title, r))
			},
		},
		&slash{
			name: "schedule-bulk",
			desc: "Add several schedules from JSON",
			options: []*discordgo.ApplicationCommandOption{
				strOpt("json_data", `[{"title":"Meeting","date":"2025-08-01","time":"10:00"}]`, true),
			},
			run: func(ctx context.Context, sc *SlashContext) error {
				res, err := f.BulkAddSchedules(ctx, sc.UserID(), sc.GuildID(), sc.String("json_data"))
				if err != nil {
					return err
				}
				return sc.Reply(bulkEmbed(res))
			},
		},
	}
}
