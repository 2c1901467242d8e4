// Package audit records service lifecycle and rejected-request events as
// JSON lines in an append-only file.
//
// Events never carry password material. Request-scoped events carry the
// request ID so they can be joined with access logs.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Lifecycle events
	EventServerStart EventType = "server_start"
	EventServerStop  EventType = "server_stop"
	EventServerError EventType = "server_error"

	// Request events
	EventRequestRejected EventType = "request_rejected"
	EventInternalError   EventType = "internal_error"
)

// Severity represents event severity.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARN"
	SeverityError   Severity = "ERROR"
)

// Event represents an audit event.
type Event struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Type       EventType      `json:"type"`
	Severity   Severity       `json:"severity"`
	InstanceID string         `json:"instance_id,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Message    string         `json:"message"`
	Error      string         `json:"error,omitempty"`
	Duration   time.Duration  `json:"duration_ns,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// LoggerConfig configures the audit logger.
type LoggerConfig struct {
	// InstanceID identifies this process in every event.
	InstanceID string

	// LogFile is the path to the audit log file.
	LogFile string

	// BufferSize is the number of events held before a flush.
	// Default: 100
	BufferSize int

	// FlushInterval is how often buffered events are written.
	// Default: 5 seconds
	FlushInterval time.Duration

	// Console echoes each event to this logger when set.
	Console *zap.Logger
}

// DefaultLoggerConfig returns defaults that write under the user's home.
func DefaultLoggerConfig() *LoggerConfig {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = os.TempDir()
	}
	return &LoggerConfig{
		LogFile:       filepath.Join(home, ".passcheck", "audit.log"),
		BufferSize:    100,
		FlushInterval: 5 * time.Second,
	}
}

// Logger is the audit logger.
type Logger struct {
	config *LoggerConfig

	mu   sync.Mutex
	file *os.File

	bufferMu sync.Mutex
	buffer   []Event

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewLogger opens (or creates) the audit file.
func NewLogger(config *LoggerConfig) (*Logger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	defaults := DefaultLoggerConfig()
	if config.LogFile == "" {
		config.LogFile = defaults.LogFile
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = defaults.FlushInterval
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}

	if err := os.MkdirAll(filepath.Dir(config.LogFile), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}

	return &Logger{
		config: config,
		file:   file,
		buffer: make([]Event, 0, config.BufferSize),
	}, nil
}

// InstanceID returns the identifier stamped on every event.
func (l *Logger) InstanceID() string {
	return l.config.InstanceID
}

// Start begins periodic flushing.
func (l *Logger) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.wg.Add(1)
	go l.flushLoop(l.stopCh)
}

// Close stops periodic flushing, writes what is buffered and closes the file.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.running {
		l.running = false
		close(l.stopCh)
	}
	l.mu.Unlock()

	l.wg.Wait()
	l.Flush()

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Log records an audit event. ID, timestamp and instance are filled in.
func (l *Logger) Log(event Event) {
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	event.InstanceID = l.config.InstanceID

	l.bufferMu.Lock()
	l.buffer = append(l.buffer, event)
	full := len(l.buffer) >= l.config.BufferSize
	l.bufferMu.Unlock()

	if l.config.Console != nil {
		l.echo(event)
	}
	if full {
		l.Flush()
	}
}

// ServerStarted records that the server is listening.
func (l *Logger) ServerStarted(address, version string) {
	l.Log(Event{
		Type:     EventServerStart,
		Severity: SeverityInfo,
		Message:  "server started",
		Details:  map[string]any{"address": address, "version": version},
	})
}

// ServerStopped records a shutdown and how long the process served.
func (l *Logger) ServerStopped(uptime time.Duration, err error) {
	event := Event{
		Type:     EventServerStop,
		Severity: SeverityInfo,
		Message:  "server stopped",
		Duration: uptime,
	}
	if err != nil {
		event.Type = EventServerError
		event.Severity = SeverityError
		event.Message = "server stopped with error"
		event.Error = err.Error()
	}
	l.Log(event)
}

// RequestRejected records a client error. The reason is the message sent
// to the client.
func (l *Logger) RequestRejected(requestID string, status int, reason string) {
	l.Log(Event{
		Type:      EventRequestRejected,
		Severity:  SeverityWarning,
		RequestID: requestID,
		Message:   reason,
		Details:   map[string]any{"status": status},
	})
}

// InternalError records a failure that produced a 5xx response.
func (l *Logger) InternalError(requestID string, err error) {
	event := Event{
		Type:      EventInternalError,
		Severity:  SeverityError,
		RequestID: requestID,
		Message:   "request failed",
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// Flush writes buffered events to disk.
func (l *Logger) Flush() {
	l.bufferMu.Lock()
	if len(l.buffer) == 0 {
		l.bufferMu.Unlock()
		return
	}
	events := l.buffer
	l.buffer = make([]Event, 0, l.config.BufferSize)
	l.bufferMu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = l.file.Write(append(data, '\n'))
	}
	_ = l.file.Sync()
}

func (l *Logger) flushLoop(stop <-chan struct{}) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.Flush()
		}
	}
}

func (l *Logger) echo(event Event) {
	fields := []zap.Field{
		zap.String("audit_id", event.ID),
		zap.String("type", string(event.Type)),
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}

	switch event.Severity {
	case SeverityError:
		l.config.Console.Error(event.Message, fields...)
	case SeverityWarning:
		l.config.Console.Warn(event.Message, fields...)
	default:
		l.config.Console.Info(event.Message, fields...)
	}
}
