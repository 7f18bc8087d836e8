package command

import (
	"context"

	"github.com/keshon/autoreply/pkg/cmd"
)

// WithOwnerOnly rejects invocations from anyone but the guild owner with
// ErrNotOwner. Direct messages have no owner and are rejected too.
func WithOwnerOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			v, ok := From(inv)
			if !ok || !v.Event.FromOwner() {
				return ErrNotOwner
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithCommandLogger logs every command that passed the inner checks.
func WithCommandLogger() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			v, ok := From(inv)
			if !ok || v.Log == nil {
				return c.Run(ctx, inv)
			}

			log := v.Log.With(
				"command", c.Name(),
				"user", v.Event.AuthorName,
				"user_id", v.Event.AuthorID,
				"guild", v.Event.GuildName,
			)
			log.Info("Server owner requested command")

			err := c.Run(ctx, inv)
			if err != nil {
				log.Error("Command failed", "err", err)
			}
			return err
		})
	}
}
