// Package log provides the subsystem loggers shared by every package in
// vectord. It follows the same convention as the teacher daemon: a single
// backend and one named logger per subsystem, which each package obtains
// through Logger.
package log

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"
)

// Subsystem tags, four characters wide to keep log lines aligned, matching
// the teacher's ltndLog/ltndLog-style tagging.
const (
	SubsystemEngine    = "ENGN"
	SubsystemForward   = "FWD "
	SubsystemTransfer  = "XFER"
	SubsystemQueue     = "QUEU"
	SubsystemRPC       = "RPCS"
	SubsystemMain      = "MAIN"
	SubsystemStore     = "STOR"
	SubsystemEvent     = "EVNT"
)

// Backend is the shared slog backend every subsystem logger is created
// from. It writes to a discarding writer; cmd/vectord does not attach
// another one, so log output is not written anywhere.
var Backend = slog.NewBackend(discard{})

// disabledLog is a logger that discards everything. Logger does not
// return it; subsystem loggers always come from Backend.
var disabledLog = slog.Disabled

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// loggers holds one slog.Logger per subsystem tag, lazily created against
// Backend.
var loggers = make(map[string]slog.Logger)

// Logger returns (creating if necessary) the logger for the given
// subsystem tag.
func Logger(subsystem string) slog.Logger {
	if l, ok := loggers[subsystem]; ok {
		return l
	}
	l := Backend.Logger(subsystem)
	loggers[subsystem] = l
	return l
}

// SetLogLevel sets the logging level for the given subsystem. A level
// string slog does not recognize leaves the level unchanged.
func SetLogLevel(subsystem string, level string) {
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		return
	}
	Logger(subsystem).SetLevel(lvl)
}

// Spew renders v as a multi-line struct dump for trace-level logging of
// rejected updates/transfers, the same role spew.Sdump plays in the
// teacher's debug-heavy RPC logging.
func Spew(v interface{}) string {
	return spew.Sdump(v)
}

// SetLogLevels sets every known subsystem to the given level, mirroring the
// teacher's global --debuglevel=<level> flag handling.
func SetLogLevels(level string) {
	for _, s := range []string{
		SubsystemEngine, SubsystemForward, SubsystemTransfer,
		SubsystemQueue, SubsystemRPC, SubsystemMain, SubsystemStore,
		SubsystemEvent,
	} {
		SetLogLevel(s, level)
	}
}
