package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/env"
	"github.com/rs/zerolog"
)

// Common context field names.
const (
	FieldRequestID   = "request_id"
	FieldUserID      = "user_id"
	FieldOrderNumber = "order_number"
	FieldActorRole   = "actor_role"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

const (
	redacted      = "[REDACTED]"
	maxStackDepth = 32
)

// sensitiveKeys match field names case-insensitively by substring.
var sensitiveKeys = []string{"password", "authorization", "token", "signature", "secret", "server_key"}

// Options configures the structured logger.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	// WarnStack attaches a call stack to warnings as well as errors.
	WarnStack bool
	Output    io.Writer
	// Format is json or console. Empty reads STOREFRONT_LOG_FORMAT, then LOG_FORMAT.
	Format string
	// Fields are attached to every entry.
	Fields map[string]any
}

// Logger writes structured entries and carries request-scoped fields in
// the context.
type Logger struct {
	root      zerolog.Logger
	warnStack bool
}

func New(opts Options) *Logger {
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	builder := zerolog.New(writerFor(opts)).With().Timestamp().Str("service", opts.ServiceName)
	for _, k := range sortedKeys(opts.Fields) {
		builder = builder.Interface(k, redact(k, opts.Fields[k]))
	}
	return &Logger{
		root:      builder.Logger().Level(level),
		warnStack: opts.WarnStack,
	}
}

func writerFor(opts Options) io.Writer {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	format := opts.Format
	if format == "" {
		format = env.Get(FormatJSON, "STOREFRONT_LOG_FORMAT", "LOG_FORMAT")
	}
	if !strings.EqualFold(format, FormatConsole) {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: env.Bool("NO_COLOR", false)}
}

// ParseLevel maps a textual level onto zerolog, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// entry returns the context-scoped logger, or the root one.
func (l *Logger) entry(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if scoped, ok := ctx.Value(scopeKey{}).(*zerolog.Logger); ok {
			return scoped
		}
	}
	return &l.root
}

type scopeKey struct{}

func (l *Logger) scope(ctx context.Context, zc zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	scoped := zc.Logger()
	return context.WithValue(ctx, scopeKey{}, &scoped)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.scope(ctx, l.entry(ctx).With().Interface(key, redact(key, value)))
}

// WithFields attaches fields in key order so entries render deterministically.
func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	zc := l.entry(ctx).With()
	for _, k := range sortedKeys(fields) {
		zc = zc.Interface(k, redact(k, fields[k]))
	}
	return l.scope(ctx, zc)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, FieldRequestID, requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, FieldUserID, userID)
}

func (l *Logger) WithOrderNumber(ctx context.Context, orderNumber string) context.Context {
	return l.WithField(ctx, FieldOrderNumber, orderNumber)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, FieldActorRole, role)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.entry(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.entry(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	ev := l.entry(ctx).Warn()
	if l.warnStack && ev.Enabled() {
		ev = ev.Strs("stack", callers(3))
	}
	ev.Msg(msg)
}

// Error always records the caller stack; err may be nil.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	ev := l.entry(ctx).Error()
	if !ev.Enabled() {
		return
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Strs("stack", callers(3)).Msg(msg)
}

// callers renders the stack above the logging call as "func file:line".
func callers(skip int) []string {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		out = append(out, fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return out
}

// redact masks sensitive keys, descending into nested field maps.
func redact(key string, value any) any {
	if isSensitive(key) {
		return redacted
	}
	nested, ok := value.(map[string]any)
	if !ok {
		return value
	}
	clean := make(map[string]any, len(nested))
	for k, v := range nested {
		clean[k] = redact(k, v)
	}
	return clean
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func sortedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
