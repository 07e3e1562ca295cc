package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event
type EventType string

const (
	// Document events
	EventConfigRead  EventType = "CONFIG_READ"
	EventConfigWrite EventType = "CONFIG_WRITE"
	EventKeySkipped  EventType = "KEY_SKIPPED"
	EventValidation  EventType = "VALIDATION"

	// System events
	EventStartup  EventType = "STARTUP"
	EventShutdown EventType = "SHUTDOWN"
	EventError    EventType = "ERROR"
)

// Severity represents the severity level of an audit event
type Severity string

const (
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	Severity  Severity               `json:"severity"`
	Source    string                 `json:"source"`
	Document  string                 `json:"document,omitempty"`
	Path      string                 `json:"path,omitempty"`
	Action    string                 `json:"action"`
	Result    string                 `json:"result"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     string                 `json:"error,omitempty"`
	RunID     string                 `json:"run_id,omitempty"`
}

// Logger provides audit logging functionality. A nil *Logger discards
// every event.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	filepath  string
	maxSize   int64
	maxAge    time.Duration
	runID     string
	encoder   *json.Encoder
	eventChan chan *AuditEvent
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// Config represents logger configuration
type Config struct {
	FilePath string
	MaxSize  int64         // Maximum file size in bytes
	MaxAge   time.Duration // Maximum age of log files
}

// NewLogger creates a new audit logger. Every event it logs carries the
// same run id, so the events of one command invocation can be found
// together.
func NewLogger(config Config) (*Logger, error) {
	// Ensure directory exists
	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	// Open log file
	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	logger := &Logger{
		file:      file,
		filepath:  config.FilePath,
		maxSize:   config.MaxSize,
		maxAge:    config.MaxAge,
		runID:     uuid.NewString(),
		encoder:   json.NewEncoder(file),
		eventChan: make(chan *AuditEvent, 100),
		stopChan:  make(chan struct{}),
	}

	// Start background worker
	logger.wg.Add(1)
	go logger.worker()

	// Log startup event
	logger.LogSystem(EventStartup, "Audit logger started", nil)

	return logger, nil
}

// RunID returns the id shared by the events of this logger
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Log writes an audit event
func (l *Logger) Log(event *AuditEvent) {
	if l == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}

	select {
	case l.eventChan <- event:
	case <-time.After(time.Second):
		// Timeout to prevent blocking
		fmt.Fprintf(os.Stderr, "Failed to log audit event: timeout\n")
	}
}

// LogDocument logs a document read or write. op is EventConfigRead or
// EventConfigWrite.
func (l *Logger) LogDocument(op EventType, document string, success bool, details map[string]interface{}) {
	result := "SUCCESS"
	severity := SeverityInfo

	if !success {
		result = "FAILED"
		severity = SeverityError
	}

	action := "read"
	if op == EventConfigWrite {
		action = "write"
	}

	l.Log(&AuditEvent{
		Type:     op,
		Severity: severity,
		Source:   "document",
		Document: document,
		Action:   action,
		Result:   result,
		Details:  details,
	})
}

// LogSkipped logs a document key the form did not know
func (l *Logger) LogSkipped(document, path string) {
	l.Log(&AuditEvent{
		Type:     EventKeySkipped,
		Severity: SeverityWarning,
		Source:   "form",
		Document: document,
		Path:     path,
		Action:   "write",
		Result:   "SKIPPED",
	})
}

// LogValidation logs the outcome of validating a document
func (l *Logger) LogValidation(document string, errors, warnings int) {
	result := "VALID"
	severity := SeverityInfo

	switch {
	case errors > 0:
		result = "INVALID"
		severity = SeverityError
	case warnings > 0:
		severity = SeverityWarning
	}

	l.Log(&AuditEvent{
		Type:     EventValidation,
		Severity: severity,
		Source:   "validation",
		Document: document,
		Action:   "validate",
		Result:   result,
		Details: map[string]interface{}{
			"errors":   errors,
			"warnings": warnings,
		},
	})
}

// LogError logs an error event
func (l *Logger) LogError(source string, err error, details map[string]interface{}) {
	l.Log(&AuditEvent{
		Type:     EventError,
		Severity: SeverityError,
		Source:   source,
		Action:   "error",
		Result:   "ERROR",
		Error:    err.Error(),
		Details:  details,
	})
}

// LogSystem logs a system event
func (l *Logger) LogSystem(eventType EventType, message string, details map[string]interface{}) {
	l.Log(&AuditEvent{
		Type:     eventType,
		Severity: SeverityInfo,
		Source:   "system",
		Action:   string(eventType),
		Result:   message,
		Details:  details,
	})
}

// worker processes audit events in the background
func (l *Logger) worker() {
	defer l.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case event := <-l.eventChan:
			l.writeEvent(event)

		case <-ticker.C:
			l.performMaintenance()

		case <-l.stopChan:
			// Drain remaining events
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		}
	}
}

// writeEvent writes an event to the log file
func (l *Logger) writeEvent(event *AuditEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.encoder.Encode(event); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit event: %v\n", err)
	}

	// Check if rotation is needed
	if l.maxSize > 0 {
		if info, err := l.file.Stat(); err == nil && info.Size() > l.maxSize {
			l.rotate()
		}
	}
}

// rotate performs log rotation
func (l *Logger) rotate() {
	_ = l.file.Close()

	// Rename current file with timestamp
	timestamp := time.Now().Format("20060102-150405.000")
	rotatedPath := fmt.Sprintf("%s.%s", l.filepath, timestamp)
	_ = os.Rename(l.filepath, rotatedPath)

	file, err := os.OpenFile(l.filepath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open new audit log file: %v\n", err)
		return
	}

	l.file = file
	l.encoder = json.NewEncoder(file)
}

// performMaintenance removes rotated log files older than maxAge
func (l *Logger) performMaintenance() {
	if l.maxAge <= 0 {
		return
	}

	dir := filepath.Dir(l.filepath)
	base := filepath.Base(l.filepath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-l.maxAge)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if name == base || !strings.HasPrefix(name, base+".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}

// Close flushes pending events and closes the audit logger
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.LogSystem(EventShutdown, "Audit logger shutting down", nil)

	// Stop worker
	close(l.stopChan)
	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Query represents an audit log query
type Query struct {
	StartTime  time.Time
	EndTime    time.Time
	EventTypes []EventType
	Severities []Severity
	Documents  []string
	RunID      string
	Limit      int
}

// SearchFile returns the events in the audit log at path matching query,
// oldest first. Rotated files are not searched. Events a running Logger
// has not flushed yet are missed.
func SearchFile(path string, query Query) ([]*AuditEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	var events []*AuditEvent
	decoder := json.NewDecoder(file)

	for {
		var event AuditEvent
		if err := decoder.Decode(&event); err != nil {
			break // EOF or error
		}
		if !query.matches(&event) {
			continue
		}

		events = append(events, &event)

		if query.Limit > 0 && len(events) >= query.Limit {
			break
		}
	}

	return events, nil
}

func (q Query) matches(event *AuditEvent) bool {
	switch {
	case !q.StartTime.IsZero() && event.Timestamp.Before(q.StartTime):
		return false
	case !q.EndTime.IsZero() && event.Timestamp.After(q.EndTime):
		return false
	case len(q.EventTypes) > 0 && !contains(q.EventTypes, event.Type):
		return false
	case len(q.Severities) > 0 && !contains(q.Severities, event.Severity):
		return false
	case len(q.Documents) > 0 && !contains(q.Documents, event.Document):
		return false
	case q.RunID != "" && event.RunID != q.RunID:
		return false
	}
	return true
}

func contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}
