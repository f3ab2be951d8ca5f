package app

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger writes JSON-line events. Every event carries the wizard
// session id so one setup run can be followed end to end.
type Logger struct {
	out       io.Writer
	sessionID string
}

type LogEvent struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	SessionID string                 `json:"session_id"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func NewLogger(out io.Writer) *Logger {
	return &Logger{out: out, sessionID: uuid.NewString()}
}

func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.write("info", message, fields)
}

func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.write("error", message, fields)
}

func (l *Logger) write(level, message string, fields map[string]interface{}) {
	if l == nil || l.out == nil {
		return
	}
	evt := LogEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		SessionID: l.sessionID,
		Message:   message,
		Fields:    fields,
	}
	payload, _ := json.Marshal(evt)
	payload = append(payload, '\n')
	_, _ = l.out.Write(payload)
}

// DefaultLogWriter opens the session log sink. Logging must never block
// the wizard, so any failure falls back to discarding.
func DefaultLogWriter(cfg Config) io.Writer {
	path := strings.TrimSpace(os.Getenv("DBT_SETUP_LOG"))
	if path == "" {
		path = strings.TrimSpace(cfg.LogPath)
	}
	if path == "" {
		cfgPath := DefaultConfigPath()
		if cfgPath == "" {
			return io.Discard
		}
		path = filepath.Join(filepath.Dir(cfgPath), "setup.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return io.Discard
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return io.Discard
	}
	return f
}
