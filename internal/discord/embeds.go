package discord

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"

	"schedule-bot/internal/apperr"
	"schedule-bot/internal/commands"
	"schedule-bot/internal/music/media"
	"schedule-bot/internal/music/player"
	"schedule-bot/internal/reminder"
	"schedule-bot/internal/storage"
)

const (
	colorSuccess  = 0x00ff00
	colorError    = 0xff0000
	colorInfo     = 0x0099ff
	colorSchedule = 0x00ff99
	colorReminder = 0xffa500

	maxListed = 10
)

func successEmbed(title, desc string) *embed.Embed {
	return embed.NewEmbed().SetTitle("✅ " + title).SetDescription(desc).SetColor(colorSuccess)
}

func infoEmbed(title, desc string) *embed.Embed {
	return embed.NewEmbed().SetTitle("ℹ️ " + title).SetDescription(desc).SetColor(colorInfo)
}

func failEmbed(title, desc string) *discordgo.MessageEmbed {
	return embed.NewEmbed().SetTitle("❌ " + title).SetDescription(desc).SetColor(colorError).MessageEmbed
}

func shuttingDownEmbed() *discordgo.MessageEmbed {
	return failEmbed("Shutting down", "The bot is restarting. Try again in a minute.")
}

// errorEmbed turns a command failure into what the requester sees.
// Storage and unknown errors get a generic text; the details go to the log.
func errorEmbed(err error) *discordgo.MessageEmbed {
	var (
		ve *apperr.ValidationError
		ne *apperr.NotFoundError
		pe *apperr.PermissionError
		re *apperr.ResolutionError
		te *apperr.TransportError
	)
	switch {
	case errors.As(err, &ve):
		return failEmbed("Invalid input", ve.Error())
	case errors.As(err, &ne):
		return failEmbed("Not found", fmt.Sprintf("%s %d does not exist.", titleCase(ne.Kind), ne.ID))
	case errors.As(err, &pe):
		return failEmbed("Not allowed", fmt.Sprintf("You can only change your own %ss.", pe.Kind))
	case errors.Is(err, commands.ErrNoResults):
		return failEmbed("No results", "Nothing matched your search.")
	case errors.As(err, &re):
		return failEmbed("Could not load media", "Check the URL and that the video is available.")
	case errors.As(err, &te):
		return failEmbed("Voice connection failed", "Check that I am allowed to join and speak in your channel.")
	case errors.Is(err, player.ErrNotConnected):
		return failEmbed("Not connected", "I am not in a voice channel.")
	case errors.Is(err, errGuildOnly), errors.Is(err, errNoVoice):
		return failEmbed("Cannot do that here", err.Error())
	default:
		return failEmbed("Something went wrong", "The command failed. Please try again later.")
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func stamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "No details"
	}
	return s
}

func scheduleAddedEmbed(s storage.Schedule) *discordgo.MessageEmbed {
	e := successEmbed("Schedule added", fmt.Sprintf("Added **%s**.", s.Title)).
		AddField("Starts", stamp(s.Start, "F"))
	if s.End != nil {
		e.AddField("Ends", stamp(*s.End, "F"))
	}
	e.InlineAllFields()
	if s.Description != "" {
		e.AddField("Details", s.Description)
	}
	e.SetFooter(fmt.Sprintf("Schedule ID: %d", s.ID))
	return e.MessageEmbed
}

// scheduleListEmbed renders a list the way the period suggests: a day list
// for today, a Monday to Sunday view for a week, a flat list otherwise.
func scheduleListEmbed(l commands.ScheduleList, loc *time.Location) *discordgo.MessageEmbed {
	if len(l.Schedules) == 0 {
		return infoEmbed("No schedules", "There is nothing planned in this period.").MessageEmbed
	}
	switch l.Period {
	case "today":
		e := embed.NewEmbed().SetTitle("📅 Today").SetColor(colorSchedule)
		for _, s := range l.Schedules {
			e.AddField(s.Start.In(loc).Format("15:04")+" "+s.Title, orNone(s.Description))
		}
		return e.MessageEmbed
	case "week":
		return weekEmbed(l.Range.From.In(loc), l.Schedules, loc)
	}

	e := embed.NewEmbed().SetTitle(fmt.Sprintf("📅 Schedules (%d)", len(l.Schedules))).SetColor(colorSchedule)
	for i, s := range l.Schedules {
		if i == maxListed {
			e.SetFooter(fmt.Sprintf("%d more not shown", len(l.Schedules)-maxListed))
			break
		}
		e.AddField(fmt.Sprintf("#%d %s", s.ID, s.Title), stamp(s.Start, "F")+"\n"+orNone(s.Description))
	}
	return e.MessageEmbed
}

func weekEmbed(monday time.Time, items []storage.Schedule, loc *time.Location) *discordgo.MessageEmbed {
	sunday := monday.AddDate(0, 0, 6)
	e := embed.NewEmbed().
		SetTitle(fmt.Sprintf("📅 Week %s - %s", monday.Format("01/02"), sunday.Format("01/02"))).
		SetColor(colorSchedule)

	for d := 0; d < 7; d++ {
		day := monday.AddDate(0, 0, d)
		var lines []string
		for _, s := range items {
			st := s.Start.In(loc)
			if st.Year() == day.Year() && st.YearDay() == day.YearDay() {
				lines = append(lines, fmt.Sprintf("`%s` %s", st.Format("15:04"), s.Title))
			}
		}
		value := "-"
		if len(lines) > 0 {
			value = strings.Join(lines, "\n")
		}
		e.AddField(fmt.Sprintf("%s (%s)", day.Weekday(), day.Format("01/02")), value)
	}
	return e.MessageEmbed
}

// calendarEmbed draws the month as a Monday-first grid; days with
// schedules are starred and listed below.
func calendarEmbed(c commands.Calendar, showAll bool, loc *time.Location) *discordgo.MessageEmbed {
	var b strings.Builder
	b.WriteString("```\nMo  Tu  We  Th  Fr  Sa  Su\n")
	offset := (int(c.FirstWeekday()) + 6) % 7
	b.WriteString(strings.Repeat("    ", offset))
	for day := 1; day <= c.DaysIn(); day++ {
		mark := " "
		if len(c.Days[day]) > 0 {
			mark = "*"
		}
		fmt.Fprintf(&b, "%2d%s", day, mark)
		if (offset+day)%7 == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	b.WriteString("\n```")

	mode := "Your schedules"
	if showAll {
		mode = "Everyone's schedules"
	}
	e := embed.NewEmbed().
		SetTitle(fmt.Sprintf("📅 %d %s", c.Year, c.Month)).
		SetDescription(mode + "\n" + b.String()).
		SetColor(colorSchedule)

	listed := 0
	for day := 1; day <= c.DaysIn() && listed < maxListed; day++ {
		items := c.Days[day]
		if len(items) == 0 {
			continue
		}
		lines := make([]string, 0, len(items))
		for _, s := range items {
			lines = append(lines, fmt.Sprintf("`%s` %s", s.Start.In(loc).Format("15:04"), s.Title))
		}
		e.AddField(fmt.Sprintf("%s %d", c.Month, day), strings.Join(lines, "\n"))
		listed++
	}
	if len(c.Schedules) == 0 {
		e.SetFooter("No schedules this month")
	}
	return e.MessageEmbed
}

func reminderSetEmbed(title string, r storage.Reminder) *discordgo.MessageEmbed {
	e := successEmbed("Reminder set", fmt.Sprintf("I will remind you about **%s**.", title)).
		AddField("At", stamp(r.FireAt, "F")).
		AddField("In", stamp(r.FireAt, "R")).
		InlineAllFields()
	if r.Message != "" {
		e.AddField("Message", r.Message)
	}
	return e.MessageEmbed
}

func bulkEmbed(res commands.BulkResult) *discordgo.MessageEmbed {
	var e *embed.Embed
	if len(res.Created) > 0 {
		e = successEmbed("Bulk add finished", fmt.Sprintf("Added %d schedule(s).", len(res.Created)))
		ids := make([]string, len(res.Created))
		for i, id := range res.Created {
			ids[i] = fmt.Sprint(id)
		}
		e.SetFooter("Created IDs: " + strings.Join(ids, ", "))
	} else {
		e = embed.NewEmbed().SetTitle("❌ Bulk add failed").SetDescription("No schedule was added.").SetColor(colorError)
	}
	if len(res.Errors) > 0 {
		lines := make([]string, 0, len(res.Errors))
		for i, be := range res.Errors {
			if i == maxListed {
				lines = append(lines, fmt.Sprintf("... and %d more", len(res.Errors)-maxListed))
				break
			}
			lines = append(lines, be.Error())
		}
		e.AddField(fmt.Sprintf("Skipped (%d)", len(res.Errors)), strings.Join(lines, "\n"))
	}
	return e.MessageEmbed
}

func trackEmbed(title string, t media.Track, volumePercent int, requester string) *discordgo.MessageEmbed {
	e := embed.NewEmbed().
		SetTitle(title).
		SetDescription(fmt.Sprintf("**[%s](%s)**", t.Title, t.Link())).
		SetColor(EmbedColor).
		AddField("Length", t.DurationLabel())
	if t.Uploader != "" {
		e.AddField("Uploader", t.Uploader)
	}
	e.AddField("Volume", fmt.Sprintf("%d%%", volumePercent))
	e.InlineAllFields()
	if t.Thumbnail != "" {
		e.SetThumbnail(t.Thumbnail)
	}
	if requester != "" {
		e.SetFooter("Requested by " + requester)
	}
	return e.MessageEmbed
}

func nowPlayingEmbed(st player.Status) *discordgo.MessageEmbed {
	switch {
	case !st.Connected:
		return infoEmbed("Not connected", "I am not in a voice channel.").MessageEmbed
	case st.Track == nil:
		return infoEmbed("Nothing playing", "Nothing is playing right now.").MessageEmbed
	}
	state := "▶️ Playing"
	if st.Paused {
		state = "⏸ Paused"
	}
	e := trackEmbed("🎵 Now playing", *st.Track, st.VolumePercent, "")
	e.Fields = append(e.Fields,
		&discordgo.MessageEmbedField{Name: "State", Value: state, Inline: true},
		&discordgo.MessageEmbedField{Name: "Channel", Value: st.ChannelName, Inline: true},
	)
	return e
}

// reminderEmbed is the message a reminder posts in its channel.
func reminderEmbed(n reminder.Notification) *discordgo.MessageEmbed {
	e := embed.NewEmbed().
		SetTitle("🔔 Schedule reminder").
		SetColor(colorReminder).
		AddField("Schedule", n.Title).
		AddField("Starts", stamp(n.Start, "F")).
		AddField("Time left", stamp(n.Start, "R"))
	e.Fields[1].Inline = true
	e.Fields[2].Inline = true
	if n.Message != "" {
		e.AddField("Message", n.Message)
	}
	return e.MessageEmbed
}
