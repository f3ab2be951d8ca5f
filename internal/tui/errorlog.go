package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dbt-setup/internal/app"
)

type wizardErrorLogEntry struct {
	Timestamp string `json:"timestamp"`
	Resource  string `json:"resource,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

func wizardErrorLogPath() string {
	if p := strings.TrimSpace(os.Getenv("DBT_SETUP_ERROR_LOG")); p != "" {
		return p
	}
	cfgPath := app.DefaultConfigPath()
	if strings.TrimSpace(cfgPath) == "" {
		return filepath.Join(os.TempDir(), "dbt-setup", "error.log")
	}
	return filepath.Join(filepath.Dir(cfgPath), "error.log")
}

// appendWizardErrorLog journals a user-visible failure for postmortem.
// Best effort; the wizard never fails because logging did.
func appendWizardErrorLog(resource, sessionID, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	path := wizardErrorLogPath()
	if path == "" {
		return
	}

	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	entry := wizardErrorLogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Resource:  strings.TrimSpace(resource),
		SessionID: strings.TrimSpace(sessionID),
		Message:   message,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	payload = append(payload, '\n')
	_, _ = f.Write(payload)
}
