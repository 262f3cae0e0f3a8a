package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

const serviceName = "callbridge"

// Keys whose values never reach the log: one-time codes, carrier and
// principal credentials.
var redactedKeys = map[string]struct{}{
	"code":           {},
	"token":          {},
	"access_token":   {},
	"refresh_token":  {},
	"auth_token":     {},
	"api_key_secret": {},
	"password":       {},
}

const redacted = "[redacted]"

// New returns the process logger: JSON on stdout, debug in local/dev.
func New(appEnv string) *slog.Logger {
	return NewWithWriter(os.Stdout, appEnv)
}

// NewWithWriter is New with an explicit sink. Every record carries the
// service name and environment.
func NewWithWriter(w io.Writer, appEnv string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       levelFor(appEnv),
		ReplaceAttr: redact,
	})
	return slog.New(h).With("service", serviceName, "env", appEnv)
}

func levelFor(appEnv string) slog.Level {
	switch appEnv {
	case "local", "dev":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := redactedKeys[a.Key]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// WithAttrs returns ctx carrying the context logger extended with args,
// e.g. the principal id once authenticated.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	return With(ctx, From(ctx).With(args...))
}
