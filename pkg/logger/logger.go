// Package logger assembles the process-wide slog logger: console or file
// output, optional rotation, optional Sentry forwarding, and masking of
// credential attributes.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	slogsentry "github.com/samber/slog-sentry/v2"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the logger's sinks and verbosity.
type Options struct {
	Level     string // debug, info, warn, error
	Format    string // text or json
	File      string // when set, log to this path with rotation
	SentryDSN string // when set, forward warnings and errors to Sentry
	Env       string // tagged on Sentry events
}

// Setup builds the logger described by opts and installs it as the slog
// default. The returned flush func drains Sentry's buffer and should run on
// shutdown.
func Setup(opts Options) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	flush := func() {}
	if opts.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         opts.SentryDSN,
			Environment: opts.Env,
		})
		if err != nil {
			return nil, nil, err
		}

		sentryHandler := slogsentry.Option{Level: slog.LevelWarn}.NewSentryHandler()
		handler = NewFanoutHandler(handler, sentryHandler)
		flush = func() { sentry.Flush(2 * time.Second) }
	}

	log := slog.New(NewMaskingHandler(handler))
	slog.SetDefault(log)

	return log, flush, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
