package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultBufferSize is the number of entries accumulated before an
// automatic flush to the JSONL file.
const DefaultBufferSize = 100

// Entry is a single audit record. Parameters are stored redacted;
// the raw values never leave the pipeline.
type Entry struct {
	ID              string                 `json:"id"`
	Timestamp       time.Time              `json:"timestamp"`
	RequestID       string                 `json:"request_id,omitempty"`
	CorrelationID   string                 `json:"correlation_id,omitempty"`
	UserID          string                 `json:"user_id"`
	Username        string                 `json:"username,omitempty"`
	ToolName        string                 `json:"tool_name"`
	Domain          string                 `json:"domain"`
	Parameters      map[string]interface{} `json:"parameters,omitempty"`
	Status          string                 `json:"status"`
	Error           string                 `json:"error,omitempty"`
	ExecutionTimeMS float64                `json:"execution_time_ms"`
	Source          string                 `json:"source,omitempty"`
}

// Logger records tool executions. Every entry is streamed to the live
// log immediately and buffered for the JSONL trail; the buffer flushes
// when full, on explicit Flush, and on Close.
type Logger struct {
	path       string
	bufferSize int
	log        zerolog.Logger

	mu     sync.Mutex
	buffer []Entry
}

// NewLogger creates an audit logger writing JSONL to path. A zero or
// negative bufferSize falls back to DefaultBufferSize.
func NewLogger(path string, bufferSize int, log zerolog.Logger) (*Logger, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	return &Logger{
		path:       path,
		bufferSize: bufferSize,
		log:        log,
		buffer:     make([]Entry, 0, bufferSize),
	}, nil
}

// Record redacts the parameters, assigns an id and timestamp if
// missing, streams the entry to the live log, and buffers it. Exactly
// one call per tool execution.
func (l *Logger) Record(entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Parameters = Redact(entry.Parameters)

	evt := l.log.Info().
		Str("audit_id", entry.ID).
		Str("tool", entry.ToolName).
		Str("domain", entry.Domain).
		Str("user_id", entry.UserID).
		Str("status", entry.Status).
		Float64("execution_time_ms", entry.ExecutionTimeMS)
	if entry.Error != "" {
		evt = evt.Str("error", entry.Error)
	}
	evt.Msg("Tool execution audited")

	l.mu.Lock()
	l.buffer = append(l.buffer, entry)
	shouldFlush := len(l.buffer) >= l.bufferSize
	l.mu.Unlock()

	if shouldFlush {
		if err := l.Flush(); err != nil {
			l.log.Error().Err(err).Msg("Audit flush failed, entries retained")
		}
	}
}

// Flush appends buffered entries to the JSONL file. On write failure
// the unwritten entries go back to the front of the buffer so ordering
// survives a retry. Flushing an empty buffer is a no-op.
func (l *Logger) Flush() error {
	l.mu.Lock()
	if len(l.buffer) == 0 {
		l.mu.Unlock()
		return nil
	}
	pending := l.buffer
	l.buffer = make([]Entry, 0, l.bufferSize)
	l.mu.Unlock()

	if err := l.appendAll(pending); err != nil {
		l.mu.Lock()
		l.buffer = append(pending, l.buffer...)
		l.mu.Unlock()
		return err
	}
	return nil
}

func (l *Logger) appendAll(entries []Entry) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}
	}
	return nil
}

// Close flushes remaining entries.
func (l *Logger) Close() error {
	return l.Flush()
}

// Pending returns the number of buffered, unflushed entries.
func (l *Logger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buffer)
}
