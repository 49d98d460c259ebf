// Package audit records one structured AUDIT entry per money movement.
package audit

import (
	"time"

	"github.com/bankledger/backend/internal/logging"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

type Event struct {
	Timestamp   time.Time
	EventType   string
	Reference   string
	AccountKey  string
	Counterpart string
	Amount      decimal.Decimal
	Status      string
	Err         error
}

type Logger struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logging.OrNop(logger).Named("audit"), now: time.Now}
}

func (a *Logger) LogTransfer(reference, fromAccount, toAccount string, amount decimal.Decimal, status string) {
	a.log(Event{
		EventType:   "TRANSFER",
		Reference:   reference,
		AccountKey:  fromAccount,
		Counterpart: toAccount,
		Amount:      amount,
		Status:      status,
	})
}

func (a *Logger) LogOperation(reference, accountKey, operation string, amount decimal.Decimal) {
	a.log(Event{
		EventType:  operation,
		Reference:  reference,
		AccountKey: accountKey,
		Amount:     amount,
		Status:     StatusSuccess,
	})
}

func (a *Logger) LogError(reference, accountKey, operation string, amount decimal.Decimal, err error) {
	a.log(Event{
		EventType:  operation,
		Reference:  reference,
		AccountKey: accountKey,
		Amount:     amount,
		Status:     StatusFailed,
		Err:        err,
	})
}

func (a *Logger) log(event Event) {
	if a == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = a.now().UTC()
	}

	fields := []zap.Field{
		zap.Time("event_time", event.Timestamp),
		zap.String("event_type", event.EventType),
		zap.String("reference", event.Reference),
		zap.String("account", event.AccountKey),
		zap.Stringer("amount", event.Amount),
		zap.String("status", event.Status),
	}
	if event.Counterpart != "" {
		fields = append(fields, zap.String("counterpart", event.Counterpart))
	}
	if event.Err != nil {
		fields = append(fields, zap.Error(event.Err))
		a.logger.Warn("AUDIT", fields...)
		return
	}
	a.logger.Info("AUDIT", fields...)
}
