package safety

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEvent is one recorded gateway decision.
type AuditEvent struct {
	Time     time.Time `json:"time"`
	Action   string    `json:"action"` // "allowed", "denied", "executed"
	Command  string    `json:"command"`
	Reason   string    `json:"reason,omitempty"`
	ExitCode int       `json:"exit_code,omitempty"`
	TimedOut bool      `json:"timed_out,omitempty"`
}

// AuditRecorder records safety related events.
type AuditRecorder interface {
	Record(event AuditEvent) error
}

// NopRecorder discards every event. Used when no audit log is configured.
type NopRecorder struct{}

func (NopRecorder) Record(AuditEvent) error { return nil }

// FileRecorder appends events as JSON lines to a log file.
type FileRecorder struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileRecorder opens (or creates) the audit log at path, creating parent
// directories as needed.
func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileRecorder{file: f}, nil
}

func (r *FileRecorder) Record(event AuditEvent) error {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.file.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// Close flushes and closes the underlying file.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
