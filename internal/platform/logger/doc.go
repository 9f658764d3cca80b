// Package logger configures the process-wide slog JSON logger and carries
// request- or pass-scoped loggers through context.Context.
package logger
