package logger

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/medrex/clinical-ledger/pkg/types"
)

// Logger wraps logrus.Logger with ledger specific helpers.
type Logger struct {
	*logrus.Logger
}

// New creates a new logger instance
func New(level string) *Logger {
	log := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	log.SetOutput(os.Stdout)

	return &Logger{Logger: log}
}

// WithFields creates a new logger entry with the specified fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithComponent creates a new logger entry with component name field
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// WithContract creates a new logger entry carrying contract and function names.
func (l *Logger) WithContract(contract, function string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"contract": contract,
		"function": function,
	})
}

// Audit logs an audit event with structured format.
func (l *Logger) Audit(actor, action string, success bool, details map[string]interface{}) {
	entry := l.Logger.WithFields(logrus.Fields{
		"audit":   true,
		"actor":   actor,
		"action":  action,
		"success": success,
		"details": details,
	})

	if success {
		entry.Info("Audit event")
	} else {
		entry.Warn("Audit event failed")
	}
}

// Notification logs a ledger notification after a successful operation.
func (l *Logger) Notification(txID string, ev types.Event) {
	fields := logrus.Fields{
		"notification":   true,
		"transaction_id": txID,
		"event":          ev.Name,
	}
	for k, v := range ev.Payload {
		fields["payload_"+k] = v
	}
	l.Logger.WithFields(fields).Info("Ledger notification")
}
