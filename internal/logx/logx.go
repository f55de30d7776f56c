// Package logx configures the process-wide slog logger used for progress and
// diagnostic output.
//
// Info is printed bare so progress lines read like the tool's own output
// ("Compiling file: a.vert"). Debug, warnings and errors get a level prefix,
// coloured when the destination is a terminal.
package logx

import (
	"io"
	"log/slog"
)

// UserLevel is the minimum level shown. Messages below it are dropped.
var UserLevel = new(slog.LevelVar)

// LevelFromFlags maps the -v and -q switches to a level:
//   - v: [slog.LevelDebug]
//   - q: [slog.LevelError]
//   - (default: [slog.LevelInfo])
//
// v is evaluated first, so passing both yields Debug.
func LevelFromFlags(v, q bool) slog.Level {
	switch {
	case v:
		return slog.LevelDebug
	case q:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefaultLogger installs a Handler writing to w as the slog default and
// returns the logger.
func SetDefaultLogger(w io.Writer, level slog.Level) *slog.Logger {
	UserLevel.Set(level)
	l := slog.New(NewHandler(w, UserLevel))
	slog.SetDefault(l)
	return l
}
