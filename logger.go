package compositor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for compositor and its sub-packages.
// By default the package produces no log output. Pass nil to restore
// the default silent behavior.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
//
// Log levels used:
//   - [slog.LevelDebug]: internal diagnostics (texture recreation, pass counts)
//   - [slog.LevelInfo]: important lifecycle events (GPU adapter selected)
//   - [slog.LevelWarn]: non-fatal issues (invalid gradient stops, release errors)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	registeredMu.RLock()
	engines := append([]loggerSetter(nil), registered...)
	registeredMu.RUnlock()
	for _, e := range engines {
		e.SetLogger(l)
	}
}

// Logger returns the current logger. Sub-packages call this to share
// the same logger configuration without introducing import cycles.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by engines that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

var (
	registeredMu sync.RWMutex
	registered   []loggerSetter
)

// propagateLogger passes the current logger to an engine if it accepts
// one, and remembers it so later SetLogger calls reach it too. Called
// from NewRenderer so the engine always has the current logger.
func propagateLogger(e Engine) {
	ls, ok := e.(loggerSetter)
	if !ok {
		return
	}
	registeredMu.Lock()
	registered = append(registered, ls)
	registeredMu.Unlock()
	ls.SetLogger(loggerPtr.Load())
}
