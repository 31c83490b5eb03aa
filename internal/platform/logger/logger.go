package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output so the audit
// trail in stdout stays machine-parsable.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
