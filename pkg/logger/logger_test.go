package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"malharvest/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "console only",
			cfg:     &config.LoggingConfig{Level: "info", Console: true},
			wantErr: false,
		},
		{
			name:    "debug level without outputs",
			cfg:     &config.LoggingConfig{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			cfg:     &config.LoggingConfig{Level: "invalid"},
			wantErr: true,
		},
		{
			name:    "file output in nested directory",
			cfg:     &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if logger == nil {
				t.Fatal("New() returned nil logger")
			}
			if err := logger.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestFileOutputAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anime_scraper.log")
	cfg := &config.LoggingConfig{Level: "info", File: path}

	for _, msg := range []string{"first run", "second run"} {
		log, err := New(cfg)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		log.Info(msg)
		log.Close()
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d: %q", len(lines), content)
	}

	var runIDs []string
	for i, want := range []string{"first run", "second run"} {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(lines[i]), &entry); err != nil {
			t.Fatalf("Line %d is not JSON: %v", i, err)
		}
		if entry["message"] != want {
			t.Errorf("Line %d message = %v, want %s", i, entry["message"], want)
		}
		if entry["level"] != "info" {
			t.Errorf("Line %d level = %v, want info", i, entry["level"])
		}
		if _, ok := entry["time"]; !ok {
			t.Errorf("Line %d has no timestamp", i)
		}
		runIDs = append(runIDs, entry["run_id"].(string))
	}
	if runIDs[0] == runIDs[1] {
		t.Error("Expected each logger to get its own run_id")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("warn", &buf)
	if err != nil {
		t.Fatalf("NewWithWriter() error = %v", err)
	}

	log.Info("hidden")
	log.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("Info message should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("Warn message not found in output")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log, _ := NewWithWriter("debug", &buf)

	log.WithField("year", 2023).
		WithFields(map[string]interface{}{
			"season":   "fall",
			"complete": true,
			"elapsed":  time.Second,
		}).
		Info("season done")

	output := buf.String()
	for _, want := range []string{`"year":2023`, `"season":"fall"`, `"complete":true`, `"message":"season done"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %s in output %s", want, output)
		}
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent, _ := NewWithWriter("info", &buf)

	_ = parent.WithField("child", "yes")
	parent.Info("from parent")

	if strings.Contains(buf.String(), "child") {
		t.Error("Child field leaked into parent logger")
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log, _ := NewWithWriter("info", &buf)

	if log.WithError(nil) != log {
		t.Error("WithError(nil) should return the same logger")
	}

	log.WithError(errors.New("status 503")).Error("listing failed")

	output := buf.String()
	if !strings.Contains(output, "listing failed") || !strings.Contains(output, "status 503") {
		t.Errorf("Expected message and error in output, got %s", output)
	}
}

func TestLogRequest(t *testing.T) {
	log := NewTestLogger()

	LogRequest(log, "GET", "http://x/ok", 200, time.Millisecond)
	LogRequest(log, "GET", "http://x/missing", 404, time.Millisecond)
	LogRequest(log, "GET", "http://x/broken", 502, time.Millisecond)

	if len(log.GetMessagesByLevel("DEBUG")) != 1 {
		t.Error("Expected success to be logged at debug")
	}
	if len(log.GetMessagesByLevel("WARN")) != 1 {
		t.Error("Expected client error to be logged at warn")
	}
	if len(log.GetMessagesByLevel("ERROR")) != 1 {
		t.Error("Expected server error to be logged at error")
	}
}

func TestTestLoggerCapturesDerivedFields(t *testing.T) {
	log := NewTestLogger()

	log.WithField("anime_id", 10).WithError(errors.New("boom")).Error("details failed")

	msgs := log.GetMessages()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Fields["anime_id"] != 10 {
		t.Errorf("Expected anime_id field, got %v", msgs[0].Fields)
	}
	if msgs[0].Error == nil || msgs[0].Error.Error() != "boom" {
		t.Errorf("Expected captured error, got %v", msgs[0].Error)
	}
	if !log.HasError() || !log.HasMessage("details") {
		t.Error("Expected HasError and HasMessage to see the derived message")
	}
}
