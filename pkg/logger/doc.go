// Package logger builds the process-wide slog.Logger.
//
// Output is JSON (or text) on stdout. Context extractors add request-scoped
// attributes such as request_id and user_id to every record logged with a
// *Context method, so handlers and workers never thread them by hand:
//
//	log, flush := logger.New(cfg,
//		logger.StringExtractor(requestIDKey{}, "request_id"),
//		logger.Int64Extractor(userIDKey{}, "user_id"),
//	)
//	defer flush()
//
//	log.InfoContext(ctx, "file finalized", slog.Int64("file_id", id))
//
// When Config.SentryDSN is set, warnings are stored as Sentry logs and errors
// additionally open Sentry issues. A failed Sentry init falls back to stdout.
package logger
