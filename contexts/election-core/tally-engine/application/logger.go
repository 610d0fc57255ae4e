package application

import "log/slog"

// ResolveLogger keeps use cases nil-safe when wiring omits a logger.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
