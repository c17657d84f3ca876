package xlog

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestForTaggedWithCorrelationID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	defer SetCoreForTest(core)()

	inv := For("abc-123", false)
	if inv == nil {
		t.Fatal("For returned nil")
	}
	// Logging must not panic even with zero fields.
	inv.Info("test message")
	inv.Debug("test debug")
	inv.Warn("test warn")

	for _, entry := range logs.All() {
		if got := entry.ContextMap()["invocation"]; got != "abc-123" {
			t.Errorf("entry %q invocation = %v, want %q", entry.Message, got, "abc-123")
		}
	}
}

func TestSilentSuppressesNonErrorLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	defer SetCoreForTest(core)()

	inv := For("silent-run", true)
	inv.Info("should be suppressed")
	inv.Debug("should be suppressed")
	inv.Warn("should be suppressed")
	inv.Error("errors are never suppressed")

	all := logs.All()
	if len(all) != 1 || all[0].Message != "errors are never suppressed" {
		t.Errorf("logs = %+v, want exactly the one Error entry", all)
	}
}

func TestErrorOrInfoDowngrade(t *testing.T) {
	inv := For("downgrade-run", false)
	inv.ErrorOrInfo(true, "downgraded to info")
	inv.ErrorOrInfo(false, "stays at error")
}
