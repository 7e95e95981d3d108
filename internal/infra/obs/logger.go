package obs

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

const serviceName = "campusmarket"

// NewLogger returns a tint logger for dev and local, JSON otherwise. Every
// record carries the service and env attributes.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler
	switch env {
	case "dev", "local":
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: true,
		})
	}
	return slog.New(handler).With("service", serviceName, "env", env)
}
