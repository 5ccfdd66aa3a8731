package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Severity of a user notice
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Notice is a transient message for the shopper
type Notice struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Notifier surfaces notices to the shopper
type Notifier interface {
	Notify(message string, severity Severity)
}

// Nop discards every notice
type Nop struct{}

func (Nop) Notify(string, Severity) {}

// Logger writes notices to a zap logger
type Logger struct {
	log *zap.Logger
}

// NewLogger creates a notifier that logs through log
func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: log.Named("notice")}
}

func (l *Logger) Notify(message string, severity Severity) {
	fields := []zap.Field{zap.String("severity", string(severity))}
	switch severity {
	case Error:
		l.log.Error(message, fields...)
	case Warning:
		l.log.Warn(message, fields...)
	default:
		l.log.Info(message, fields...)
	}
}

// Recorder keeps notices in memory until drained. The HTTP layer returns
// drained notices with each response, and tests assert on them.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
	next    Notifier
}

// NewRecorder creates a recorder that also forwards to next (may be nil)
func NewRecorder(next Notifier) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) Notify(message string, severity Severity) {
	r.mu.Lock()
	r.notices = append(r.notices, Notice{Message: message, Severity: severity})
	r.mu.Unlock()

	if r.next != nil {
		r.next.Notify(message, severity)
	}
}

// Drain returns and forgets the recorded notices
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.notices
	r.notices = nil
	return out
}
