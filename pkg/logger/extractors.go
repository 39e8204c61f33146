package logger

import (
	"context"
	"log/slog"
)

// StringExtractor returns an extractor that logs the string stored under
// key as attribute name. Empty values are skipped.
func StringExtractor(key any, name string) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		v, ok := ctx.Value(key).(string)
		if !ok || v == "" {
			return slog.Attr{}, false
		}
		return slog.String(name, v), true
	}
}

// Int64Extractor is StringExtractor for numeric identifiers such as user IDs.
func Int64Extractor(key any, name string) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		v, ok := ctx.Value(key).(int64)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.Int64(name, v), true
	}
}
