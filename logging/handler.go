// Package logging configures the process-wide slog default handler shared by
// every tracknet component (world simulator, sensor ingesters, fusion runner).
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// componentHandler prefixes every record with the owning component's name,
// e.g. "[fusion] track dropped". Components are processes in this system
// (§5: one process per component), so the prefix doubles as which process
// emitted the line once logs are aggregated off-host.
type componentHandler struct {
	handler   slog.Handler
	component string
}

func (h *componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	var rest []slog.Attr

	for _, attr := range attrs {
		if attr.Key == "component" {
			component = attr.Value.String()
			continue
		}
		rest = append(rest, attr)
	}

	return &componentHandler{
		handler:   h.handler.WithAttrs(rest),
		component: component,
	}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{handler: h.handler.WithGroup(name), component: h.component}
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.component == "" {
		return h.handler.Handle(ctx, r)
	}
	prefixed := slog.NewRecord(r.Time, r.Level, "["+h.component+"] "+r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		prefixed.AddAttrs(a)
		return true
	})
	return h.handler.Handle(ctx, prefixed)
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("TRACKNET_LOG_LEVEL")) {
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

// Init installs the colored, component-prefixed slog default handler for the
// named component and returns a logger scoped to it. Call once near the top
// of each cmd/tracknet subcommand, before any other package logs.
func Init(component string) *slog.Logger {
	handler := &componentHandler{
		handler: tint.NewHandler(os.Stderr, &tint.Options{
			Level:      levelFromEnv(),
			TimeFormat: time.Kitchen,
		}),
		component: component,
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
