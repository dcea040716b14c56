// Package applog wraps zap behind a small interface so the storage
// subsystems depend on a handful of methods instead of the whole zap API,
// mirroring the teacher's src.Logger / src/app/start.go convention
// (zap.NewDevelopment() in dev, zap.NewProduction() otherwise, Sync() on
// shutdown).
package applog

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Logger is the subset of *zap.SugaredLogger the engine depends on.
type Logger interface {
	Debugw(msg string, kv ...any)
	Infow(msg string, kv ...any)
	Warnw(msg string, kv ...any)
	Errorw(msg string, kv ...any)
	Sync() error
}

// New builds a Logger stamped with a fresh session id, development-mode
// (human readable, debug level) or production-mode (JSON, info level)
// depending on dev.
func New(dev bool) (Logger, error) {
	var base *zap.Logger
	var err error
	if dev {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	sugar := base.Sugar().With("session", uuid.NewString())
	return &sugaredLogger{sugar}, nil
}

type sugaredLogger struct {
	s *zap.SugaredLogger
}

func (l *sugaredLogger) Debugw(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *sugaredLogger) Infow(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *sugaredLogger) Warnw(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *sugaredLogger) Errorw(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l *sugaredLogger) Sync() error                  { return l.s.Sync() }

// noop is the default Logger every subsystem holds until SetLogger is
// called, mirroring the teacher's common.DummyLogger() pattern.
type noop struct{}

func (noop) Debugw(string, ...any) {}
func (noop) Infow(string, ...any)  {}
func (noop) Warnw(string, ...any)  {}
func (noop) Errorw(string, ...any) {}
func (noop) Sync() error           { return nil }

// Noop returns a Logger that discards everything.
func Noop() Logger { return noop{} }
