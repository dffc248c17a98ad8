package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// redactedKeys never reach the log sink with their value.
var redactedKeys = map[string]struct{}{
	"password":      {},
	"access_token":  {},
	"token":         {},
	"authorization": {},
}

func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

// newLogger writes JSON records to w. Records pass through TraceHandler, which
// stamps the span and the acting session and user.
func newLogger(w io.Writer, env string) *slog.Logger {
	json := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       levelFor(env),
		ReplaceAttr: redact,
	})
	return slog.New(NewTraceHandler(json))
}

func levelFor(env string) slog.Level {
	switch strings.ToLower(env) {
	case "dev", "local":
		return slog.LevelDebug
	case "test":
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := redactedKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}
