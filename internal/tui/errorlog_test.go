package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendWizardErrorLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error.log")
	t.Setenv("DBT_SETUP_ERROR_LOG", path)

	appendWizardErrorLog("projects", "sess-1", "backend unreachable")
	appendWizardErrorLog("shutdown", "sess-1", "backend busy")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}

	var entry wizardErrorLogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if entry.Resource != "projects" || entry.SessionID != "sess-1" || entry.Message != "backend unreachable" {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.Timestamp == "" {
		t.Fatalf("entry missing timestamp")
	}
}

func TestAppendWizardErrorLogSkipsEmptyMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error.log")
	t.Setenv("DBT_SETUP_ERROR_LOG", path)

	appendWizardErrorLog("projects", "sess-1", "   ")

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("log file created for an empty message")
	}
}
