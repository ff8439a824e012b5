package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schedule-bot/pkg/cmd"
	"schedule-bot/pkg/logx"
)

var errGuildOnly = errors.New("this command only works inside a server")

// GuildOnly rejects invocations outside a guild.
func GuildOnly() cmd.Middleware {
	return func(next cmd.Command) cmd.Command {
		return cmd.Wrap(next, func(ctx context.Context, inv *cmd.Invocation) error {
			sc, err := slashContext(inv)
			if err != nil {
				return err
			}
			if sc.GuildID() == "" {
				return errGuildOnly
			}
			return next.Run(ctx, inv)
		})
	}
}

// CommandLog logs every invocation with its duration and outcome.
func CommandLog(log logx.Logger) cmd.Middleware {
	return func(next cmd.Command) cmd.Command {
		return cmd.Wrap(next, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := next.Run(ctx, inv)

			fields := []logx.Field{
				logx.String("command", next.Name()),
				logx.Duration("took", time.Since(start)),
			}
			if sc, ok := inv.Data.(*SlashContext); ok {
				fields = append(fields,
					logx.String("guild_id", sc.GuildID()),
					logx.String("user_id", sc.UserID()),
				)
			}
			if err != nil {
				log.Warn("command failed", append(fields, logx.Err(err))...)
			} else {
				log.Info("command", fields...)
			}
			return err
		})
	}
}

// Recover turns a panic in a handler into an error.
func Recover() cmd.Middleware {
	return func(next cmd.Command) cmd.Command {
		return cmd.Wrap(next, func(ctx context.Context, inv *cmd.Invocation) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("command %s panicked: %v", next.Name(), r)
				}
			}()
			return next.Run(ctx, inv)
		})
	}
}
