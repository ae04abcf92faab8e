package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetupLevels(t *testing.T) {
	tests := []struct {
		env  string
		want logrus.Level
	}{
		{"local", logrus.DebugLevel},
		{"dev", logrus.InfoLevel},
		{"prod", logrus.WarnLevel},
		{"unknown", logrus.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			log, closer, err := Setup(tt.env, "")
			if err != nil {
				t.Fatalf("Setup() error = %v", err)
			}
			defer closer.Close()

			if log.GetLevel() != tt.want {
				t.Errorf("level = %s, want %s", log.GetLevel(), tt.want)
			}
		})
	}
}

func TestSetupProdWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "teamboard.log")
	log, closer, err := Setup("prod", path)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	log.WithField("task_id", 7).Warn("slow move")
	log.Info("dropped below warn")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "slow move" || entry["level"] != "warning" {
		t.Errorf("unexpected entry %v", entry)
	}
}
