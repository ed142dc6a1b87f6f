package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
)

var (
	headingStyle = color.RGB(50, 108, 229).SprintFunc()
	warnStyle    = color.New(color.FgYellow).SprintFunc()
	errorStyle   = color.New(color.FgRed, color.Bold).SprintFunc()
	okStyle      = color.New(color.FgGreen).SprintFunc()
)

// levelSilent is above every level slog defines.
const levelSilent = slog.Level(100)

func rewriteLogLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey && len(groups) == 0 {
		level, ok := a.Value.Any().(slog.Level)
		if !ok {
			return a
		}
		var text string
		switch level {
		case slog.LevelDebug:
			text = "DEBUG"
		case slog.LevelInfo:
			text = color.GreenString("INFO")
		case slog.LevelWarn:
			text = color.YellowString("WARN")
		case slog.LevelError:
			text = color.RedString("ERROR")
		default:
			text = level.String()
		}
		a.Value = slog.StringValue(text)
	}
	return a
}

// newLogger returns a human-readable logger on w. Build and run logging is
// silent unless debug is set.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := levelSilent
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       level,
		TimeFormat:  time.DateTime,
		ReplaceAttr: rewriteLogLevel,
		NoColor:     color.NoColor,
	}))
}
