// Package telemetry provides the process-wide structured logger for
// orchestration-level events (parameter cache hits, ledger rebuilds,
// prove/verify start and completion).
//
// The teacher's go.mod pulls in github.com/rs/zerolog only indirectly and
// no teacher file imports it directly, reaching instead for fmt.Println in
// its CLI entry points (cmd/compile/main.go, pkg/setup/setup.go banners).
// Per the ambient-stack rule this module still needs structured logging for
// library-level (non-CLI) events, so zerolog — already vetted in the
// dependency graph and the idiomatic Go structured logger — is promoted
// here rather than hand-rolling one. CLI-local banner text keeps using
// plain stdout prints in cmd/porctl, matching the teacher's own split.
package telemetry

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Logger returns the shared structured logger. Level defaults to Info and
// can be overridden with the PORCTL_LOG_LEVEL environment variable.
func Logger() zerolog.Logger {
	once.Do(func() {
		level := zerolog.InfoLevel
		if s := os.Getenv("PORCTL_LOG_LEVEL"); s != "" {
			if lv, err := zerolog.ParseLevel(s); err == nil {
				level = lv
			}
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().Timestamp().Logger()
	})
	return logger
}
