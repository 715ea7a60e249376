package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

// New creates a new logger instance
func New(level string) *Logger {
	log := logrus.New()

	// Set log level
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	// Set output format
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	// Set output destination
	log.SetOutput(os.Stdout)

	return &Logger{Logger: log}
}

// WithFields creates a new logger entry with the specified fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithField creates a new logger entry with a single field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithError creates a new logger entry with an error field
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// WithComponent creates a new logger entry with component name field
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// WithSession creates a new logger entry with session and account fields
func (l *Logger) WithSession(sessionID, account string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"account":    account,
	})
}

// LedgerQuery logs a read-only ledger interaction
func (l *Logger) LedgerQuery(op string, durationMs int64, err error) {
	entry := l.Logger.WithFields(logrus.Fields{
		"ledger":      true,
		"op":          op,
		"kind":        "query",
		"duration_ms": durationMs,
	})

	if err != nil {
		entry.WithError(err).Warn("Ledger query failed")
	} else {
		entry.Debug("Ledger query completed")
	}
}

// LedgerCommand logs a state-mutating ledger interaction
func (l *Logger) LedgerCommand(op, txHash string, durationMs int64, err error) {
	entry := l.Logger.WithFields(logrus.Fields{
		"ledger":      true,
		"op":          op,
		"kind":        "command",
		"tx_hash":     txHash,
		"duration_ms": durationMs,
	})

	if err != nil {
		entry.WithError(err).Error("Ledger command failed")
	} else {
		entry.Info("Ledger command confirmed")
	}
}

// Audit logs user-initiated actions with structured format
func (l *Logger) Audit(account, action, target string, success bool, details map[string]interface{}) {
	entry := l.Logger.WithFields(logrus.Fields{
		"audit":   true,
		"account": account,
		"action":  action,
		"target":  target,
		"success": success,
		"details": details,
	})

	if success {
		entry.Info("Audit event")
	} else {
		entry.Warn("Audit event failed")
	}
}
