package audit

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLogger(zap.New(core)), logs
}

func TestLogger_LogTransfer(t *testing.T) {
	a, logs := newObserved()

	a.LogTransfer("ref-1", "acc_a", "acc_b", decimal.RequireFromString("300.50"), StatusSuccess)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "AUDIT", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "TRANSFER", fields["event_type"])
	assert.Equal(t, "acc_a", fields["account"])
	assert.Equal(t, "acc_b", fields["counterpart"])
	assert.Equal(t, "300.5", fields["amount"])
	assert.Equal(t, StatusSuccess, fields["status"])
}

func TestLogger_LogError(t *testing.T) {
	a, logs := newObserved()

	a.LogError("ref-2", "acc_a", "WITHDRAW", decimal.NewFromInt(5000), errors.New("insufficient funds"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, StatusFailed, fields["status"])
	assert.Equal(t, "insufficient funds", fields["error"])
	_, hasCounterpart := fields["counterpart"]
	assert.False(t, hasCounterpart)
}

func TestLogger_NilSafe(t *testing.T) {
	var a *Logger
	assert.NotPanics(t, func() {
		a.LogOperation("ref", "acc", "DEPOSIT", decimal.NewFromInt(1))
	})
}
