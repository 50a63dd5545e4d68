package node

import "github.com/decred/slog"

// log is disabled until UseLogger is called.
var log = slog.Disabled

// UseLogger sets the logger of the package.
func UseLogger(logger slog.Logger) {
	log = logger
}
