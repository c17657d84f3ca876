// Package xlog owns the process-wide logging sink. A single *zap.Logger,
// named "command_runner" per spec.md §7, is constructed once and borrowed
// by every Run invocation — the only process-wide state the engine has
// (spec.md §5's "shared-resource policy").
package xlog

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.Mutex
	base *zap.Logger
)

func root() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		l, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		base = l.Named("command_runner")
	}
	return base
}

// SetCoreForTest swaps the process-wide logger for one built on core,
// returning a restore func. It exists so tests can assert on emitted log
// records (level, fields) directly instead of scraping stdout.
func SetCoreForTest(core zapcore.Core) (restore func()) {
	mu.Lock()
	prev := base
	base = zap.New(core).Named("command_runner")
	mu.Unlock()
	return func() {
		mu.Lock()
		base = prev
		mu.Unlock()
	}
}

// Invocation is a per-Run logger view: it carries the correlation ID and
// honors the invocation's Silent flag by dropping everything below ERROR.
type Invocation struct {
	log    *zap.Logger
	silent bool
}

// For returns a logger scoped to one Run call, tagged with its correlation
// ID so concurrent invocations' log lines can be told apart.
func For(correlationID string, silent bool) *Invocation {
	return &Invocation{
		log:    root().With(zap.String("invocation", correlationID)),
		silent: silent,
	}
}

func (i *Invocation) Debug(msg string, fields ...zap.Field) {
	if i.silent {
		return
	}
	i.log.Debug(msg, fields...)
}

func (i *Invocation) Info(msg string, fields ...zap.Field) {
	if i.silent {
		return
	}
	i.log.Info(msg, fields...)
}

func (i *Invocation) Warn(msg string, fields ...zap.Field) {
	if i.silent {
		return
	}
	i.log.Warn(msg, fields...)
}

// Error always logs (it is the only level spec.md §7 requires downgrading
// to Info rather than suppressing on Silent) unless downgrade is requested
// by the caller via ErrorOrInfo.
func (i *Invocation) Error(msg string, fields ...zap.Field) {
	i.log.Error(msg, fields...)
}

// ErrorOrInfo emits at Error level normally, or at Info level when the
// observed exit code is in the caller's valid set (spec.md §7: "When
// valid_exit_codes is true or contains the observed code, ERROR is
// downgraded to INFO").
func (i *Invocation) ErrorOrInfo(downgrade bool, msg string, fields ...zap.Field) {
	if downgrade {
		i.Info(msg, fields...)
		return
	}
	i.Error(msg, fields...)
}
