package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditEventType names a run boundary or a change made to the remote system.
type AuditEventType string

const (
	AuditRunStart       AuditEventType = "run_start"
	AuditRunEnd         AuditEventType = "run_end"
	AuditShiftCommitted AuditEventType = "shift_committed"
	AuditShiftAbandoned AuditEventType = "shift_abandoned"
	AuditDateSkipped    AuditEventType = "date_skipped"
	AuditDetectionError AuditEventType = "detection_error"
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	EventType AuditEventType
	RunID     string
	Date      string
	Target    string
	Success   bool
	Error     string
	Message   string
	Fields    map[string]interface{}
}

// AuditLogger writes the JSON-lines audit trail. The zero value and a nil
// *AuditLogger discard everything.
type AuditLogger struct {
	runID string
}

var (
	auditMu     sync.RWMutex
	auditZap    *zap.Logger
	auditFile   *os.File
	auditLogger = &AuditLogger{}
)

// InitAudit opens path for appending audit events.
func InitAudit(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "msg"
	enc.LevelKey = ""
	enc.EncodeTime = zapcore.RFC3339TimeEncoder

	auditMu.Lock()
	defer auditMu.Unlock()
	closeAuditLocked()
	auditFile = f
	auditZap = zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), zapcore.DebugLevel))
	return nil
}

// CloseAudit flushes and closes the audit trail.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	closeAuditLocked()
}

func closeAuditLocked() {
	if auditZap != nil {
		_ = auditZap.Sync()
		auditZap = nil
	}
	if auditFile != nil {
		_ = auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the process audit logger.
func Audit() *AuditLogger {
	return auditLogger
}

// AuditWithRun returns an audit logger that stamps every event with runID.
func AuditWithRun(runID string) *AuditLogger {
	return &AuditLogger{runID: runID}
}

// Log writes event. Missing run ids are filled from the logger.
func (a *AuditLogger) Log(event AuditEvent) {
	if a == nil {
		return
	}
	auditMu.RLock()
	z := auditZap
	auditMu.RUnlock()
	if z == nil {
		return
	}
	if event.RunID == "" {
		event.RunID = a.runID
	}

	fields := []zap.Field{
		zap.String("event", string(event.EventType)),
		zap.String("run", event.RunID),
		zap.Bool("success", event.Success),
	}
	if event.Date != "" {
		fields = append(fields, zap.String("date", event.Date))
	}
	if event.Target != "" {
		fields = append(fields, zap.String("target", event.Target))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	if len(event.Fields) > 0 {
		fields = append(fields, zap.Any("fields", event.Fields))
	}
	z.Info(event.Message, fields...)
}

func (a *AuditLogger) RunStart(window string, dryRun bool) {
	a.Log(AuditEvent{
		EventType: AuditRunStart,
		Target:    window,
		Success:   true,
		Message:   "run started",
		Fields:    map[string]interface{}{"dry_run": dryRun},
	})
}

func (a *AuditLogger) RunEnd(duration time.Duration, counts map[string]int) {
	fields := make(map[string]interface{}, len(counts)+1)
	for k, v := range counts {
		fields[k] = v
	}
	fields["duration_ms"] = duration.Milliseconds()
	a.Log(AuditEvent{
		EventType: AuditRunEnd,
		Success:   true,
		Message:   "run finished",
		Fields:    fields,
	})
}

func (a *AuditLogger) ShiftCommitted(date, shift string) {
	a.Log(AuditEvent{
		EventType: AuditShiftCommitted,
		Date:      date,
		Target:    shift,
		Success:   true,
		Message:   "shift committed",
	})
}

func (a *AuditLogger) ShiftAbandoned(date, shift string, err error) {
	e := AuditEvent{
		EventType: AuditShiftAbandoned,
		Date:      date,
		Target:    shift,
		Message:   "shift abandoned",
	}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

func (a *AuditLogger) DateSkipped(date, reason string) {
	a.Log(AuditEvent{
		EventType: AuditDateSkipped,
		Date:      date,
		Target:    reason,
		Success:   true,
		Message:   "date skipped",
	})
}

// DetectionFailed records a date whose absence state could not be read.
func (a *AuditLogger) DetectionFailed(date string, err error) {
	e := AuditEvent{
		EventType: AuditDetectionError,
		Date:      date,
		Message:   "absence detection failed",
	}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}
