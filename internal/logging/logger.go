package logging

import (
	"log/slog"
	"os"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

var baseHandlers []slog.Handler

// Setup installs the default logger. Development gets text output at debug
// level, everything else JSON at info. When Sentry has a client, ERROR
// records are also sent there.
func Setup(cfg *config.Config) {
	baseHandlers = baseHandlers[:0]

	if cfg.IsDev() {
		baseHandlers = append(baseHandlers, slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	} else {
		baseHandlers = append(baseHandlers, slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if sentry.CurrentHub().Client() != nil {
		baseHandlers = append(baseHandlers, slogsentry.Option{
			Level: slog.LevelError,
		}.NewSentryHandler())
	}

	install(baseHandlers...)
}

// Attach adds extra handlers (such as the database handler) to the ones
// installed by Setup.
func Attach(handlers ...slog.Handler) {
	all := make([]slog.Handler, 0, len(baseHandlers)+len(handlers))
	all = append(all, baseHandlers...)
	all = append(all, handlers...)
	install(all...)
}

func install(handlers ...slog.Handler) {
	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewJSONHandler(os.Stdout, nil)
	case 1:
		handler = handlers[0]
	default:
		handler = slogmulti.Fanout(handlers...)
	}
	slog.SetDefault(slog.New(handler))
}
