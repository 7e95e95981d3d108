package middleware

import (
	"context"
	"log/slog"
	"time"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/queries"
)

// Observer receives one sample per dispatched message.
type Observer func(kind, key, outcome string, elapsed time.Duration)

func Observe(logger *slog.Logger, observer Observer) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return CommandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			report(logger, observer, "command", cmd.Key(), start, err)
			return res, err
		})
	}
}

func QueryObserve(logger *slog.Logger, observer Observer) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return QueryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			report(logger, observer, "query", q.Key(), start, err)
			return res, err
		})
	}
}

func report(logger *slog.Logger, observer Observer, kind, key string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if observer != nil {
		observer(kind, key, outcome, elapsed)
	}
	if logger == nil {
		return
	}
	if err != nil {
		logger.Debug("bus message failed", "kind", kind, "key", key, "duration", elapsed, "error", err)
		return
	}
	logger.Debug("bus message handled", "kind", kind, "key", key, "duration", elapsed)
}
