package main

import (
	"os"

	"github.com/decred/slog"

	"p2sh_multisig/node"
)

var (
	backend = slog.NewBackend(os.Stderr)

	log     = slog.Disabled
	nodeLog = backend.Logger("NODE")
)

// setupLogging enables the loggers of every package at level.
func setupLogging(level string) {
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		lvl = slog.LevelInfo
	}
	log = backend.Logger("MSIG")
	log.SetLevel(lvl)
	nodeLog.SetLevel(lvl)
	node.UseLogger(nodeLog)
	if !ok {
		log.Warnf("Unknown log level %q, using info", level)
	}
}
