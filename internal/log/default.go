package log

import "log/slog"

func defaultHandler() slog.Handler {
	return slog.Default().Handler()
}
