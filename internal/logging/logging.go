// Package logging wires the worker's structured log output: a colorized
// console handler for interactive sessions fanned out alongside a
// line-delimited JSON handler, so a front-end driving the worker as a
// subprocess can scrape structured records while a human at a terminal
// still gets readable text.
package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/fatih/color"
	slogmulti "github.com/samber/slog-multi"
)

// New builds the worker's root logger. jsonOut receives the
// machine-readable fan-out leg; pass nil to disable it. consoleOut receives
// the colorized human-readable leg.
func New(consoleOut, jsonOut io.Writer, level slog.Level) *slog.Logger {
	handlers := []slog.Handler{&consoleHandler{out: consoleOut, level: level}}
	if jsonOut != nil {
		handlers = append(handlers, slog.NewJSONHandler(jsonOut, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

// consoleHandler renders records as "LEVEL message key=value ..." with the
// level colorized the way the interactive debugger colorizes its own
// status lines.
type consoleHandler struct {
	out   io.Writer
	level slog.Level
	attrs []slog.Attr
	group string
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	levelColor := colorForLevel(r.Level)
	if _, err := io.WriteString(h.out, levelColor.Sprintf("%-5s", r.Level.String())); err != nil {
		return err
	}
	if _, err := io.WriteString(h.out, " "+r.Message); err != nil {
		return err
	}
	for _, a := range h.attrs {
		if _, err := io.WriteString(h.out, " "+a.Key+"="+a.Value.String()); err != nil {
			return err
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		io.WriteString(h.out, " "+a.Key+"="+a.Value.String())
		return true
	})
	_, err := io.WriteString(h.out, "\n")
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cloned := *h
	cloned.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &cloned
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	cloned := *h
	cloned.group = name
	return &cloned
}

func colorForLevel(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return color.New(color.FgRed, color.Bold)
	case level >= slog.LevelWarn:
		return color.New(color.FgYellow)
	case level >= slog.LevelInfo:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgHiBlack)
	}
}
