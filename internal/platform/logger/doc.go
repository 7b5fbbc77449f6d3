// Package logger provides structured JSON logging for the application,
// built on log/slog with the level taken from configuration.
package logger
