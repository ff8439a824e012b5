package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"schedule-bot/internal/reminder"
	"schedule-bot/pkg/logx"
	"schedule-bot/pkg/retrylimit"
)

type messageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts reminders into their channel, mentioning the owner.
type Notifier struct {
	dg  messageSender
	log logx.Logger
}

var _ reminder.Notifier = (*Notifier)(nil)

func NewNotifier(dg messageSender, log logx.Logger) *Notifier {
	return &Notifier{dg: dg, log: log.With(logx.String("component", "notifier"))}
}

func (n *Notifier) Notify(ctx context.Context, r reminder.Notification) error {
	if r.ChannelID == "" {
		return retrylimit.Fatal(fmt.Errorf("reminder %d has no channel", r.ReminderID))
	}
	msg := &discordgo.MessageSend{
		Content: "<@" + r.RecipientID + ">",
		Embeds:  []*discordgo.MessageEmbed{reminderEmbed(r)},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{r.RecipientID},
		},
	}
	if _, err := n.dg.ChannelMessageSendComplex(r.ChannelID, msg, discordgo.WithContext(ctx)); err != nil {
		return classifyREST(err)
	}
	n.log.Debug("reminder posted",
		logx.Int64("reminder_id", r.ReminderID),
		logx.String("channel_id", r.ChannelID),
	)
	return nil
}

// restStatus exposes the HTTP status of a discordgo REST failure to the
// retry classifiers.
type restStatus struct {
	code int
	err  error
}

func (e *restStatus) Error() string   { return e.err.Error() }
func (e *restStatus) Unwrap() error   { return e.err }
func (e *restStatus) StatusCode() int { return e.code }

// classifyREST marks errors that cannot heal by retrying: the channel is
// gone or the bot may not post there.
func classifyREST(err error) error {
	var re *discordgo.RESTError
	if !errors.As(err, &re) || re.Response == nil {
		return err
	}
	code := re.Response.StatusCode
	switch code {
	case http.StatusForbidden, http.StatusNotFound:
		return retrylimit.Fatal(err)
	}
	return &restStatus{code: code, err: err}
}
