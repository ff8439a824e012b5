package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"schedule-bot/pkg/logx"
)

// BridgeLogger routes discordgo's internal log lines into log.
func BridgeLogger(log logx.Logger) {
	log = log.With(logx.String("component", "discordgo"))
	discordgo.Logger = func(level, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch level {
		case discordgo.LogError:
			log.Error(msg)
		case discordgo.LogWarning:
			log.Warn(msg)
		case discordgo.LogInformational:
			log.Info(msg)
		default:
			log.Debug(msg)
		}
	}
}
