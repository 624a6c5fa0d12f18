// =============================================================================
// 日志模块单元测试
// =============================================================================
package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger(level LogLevel, jsonOutput bool) (*StructuredLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewStructuredLogger(level, "test", jsonOutput)
	l.logger.SetOutput(&buf)
	return l, &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DEBUG},
		{"DEBUG", DEBUG},
		{" info ", INFO},
		{"warn", WARN},
		{"WARNING", WARN},
		{"error", ERROR},
		{"fatal", FATAL},
		{"unknown", INFO}, // 默认值
		{"", INFO},        // 默认值
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := ParseLevel(tt.input); result != tt.expected {
				t.Errorf("ParseLevel(%s) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	l, buf := newTestLogger(INFO, false)

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("Debug output = %q, want suppressed", buf.String())
	}

	l.Info("detector online", "detector_id", 3)
	out := buf.String()
	if !strings.Contains(out, "[INFO]") || !strings.Contains(out, "[test]") || !strings.Contains(out, "detector online") {
		t.Fatalf("Info output = %q", out)
	}
	if !strings.Contains(out, `"detector_id":3`) {
		t.Fatalf("fields missing: %q", out)
	}
}

func TestStructuredLogger_Error(t *testing.T) {
	l, buf := newTestLogger(INFO, false)
	l.Error("save reading failed", os.ErrNotExist, "reading_id", 9)

	out := buf.String()
	if !strings.Contains(out, "[ERROR]") || !strings.Contains(out, "file does not exist") {
		t.Fatalf("Error output = %q", out)
	}
}

func TestStructuredLogger_JSON(t *testing.T) {
	l, buf := newTestLogger(DEBUG, true)
	l.Warn("stale detector", "detector_id", 7, "cause", errors.New("timeout"))

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry.Level != "WARN" || entry.Module != "test" || entry.Message != "stale detector" {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.Fields["cause"] != "timeout" {
		t.Fatalf("error field should be rendered as string, got %v", entry.Fields["cause"])
	}
	if !strings.Contains(entry.Caller, "TestStructuredLogger_JSON") {
		t.Fatalf("caller = %q", entry.Caller)
	}
}

func TestStructuredLogger_WithModuleSharesLevel(t *testing.T) {
	parent, buf := newTestLogger(WARN, false)
	child := parent.WithModule("ingest")

	child.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("child should inherit WARN level")
	}

	parent.opts.level = DEBUG
	child.Debug("now visible")
	if !strings.Contains(buf.String(), "[ingest]") {
		t.Fatalf("child output = %q", buf.String())
	}
	if parent.Module() != "test" {
		t.Fatalf("parent module changed to %q", parent.Module())
	}
}

func TestStructuredLogger_Fatal(t *testing.T) {
	l, buf := newTestLogger(INFO, false)
	originalExit := exitFunc
	defer func() { exitFunc = originalExit }()

	exitCode := -1
	exitFunc = func(code int) { exitCode = code }

	l.Fatal("fatal message", os.ErrPermission)

	if exitCode != 1 {
		t.Fatalf("exit code = %d, want 1", exitCode)
	}
	if !strings.Contains(buf.String(), "fatal message") {
		t.Errorf("Fatal output = %s", buf.String())
	}
}

func TestParseKeyValues(t *testing.T) {
	tests := []struct {
		name     string
		input    []interface{}
		expected map[string]interface{}
	}{
		{"single pair", []interface{}{"key1", "value1"}, map[string]interface{}{"key1": "value1"}},
		{"multiple pairs", []interface{}{"key1", "value1", "key2", 123}, map[string]interface{}{"key1": "value1", "key2": 123}},
		{"empty", []interface{}{}, map[string]interface{}{}},
		{"odd number of args", []interface{}{"key1", "value1", "key2"}, map[string]interface{}{"key1": "value1"}},
		{"non-string key ignored", []interface{}{123, "value1", "key2", "value2"}, map[string]interface{}{"key2": "value2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseKeyValues(tt.input...)
			if len(result) != len(tt.expected) {
				t.Fatalf("parseKeyValues() returned %d entries, want %d", len(result), len(tt.expected))
			}
			for k, v := range tt.expected {
				if result[k] != v {
					t.Errorf("parseKeyValues()[%s] = %v, want %v", k, result[k], v)
				}
			}
		})
	}
}

func TestGlobalFunctions(t *testing.T) {
	originalOutput := Output()
	t.Cleanup(func() {
		SetOutput(originalOutput)
		SetLevel(INFO)
		SetJSONOutput(false)
	})

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(DEBUG)

	Debug("debug msg", "k", "v")
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Fatalf("global Debug must spread key/values, got %q", buf.String())
	}
	buf.Reset()

	Named("snapshot").Info("loaded")
	if !strings.Contains(buf.String(), "[snapshot]") {
		t.Fatalf("Named output = %q", buf.String())
	}
	buf.Reset()

	SetLevel(ERROR)
	Warn("warn msg")
	if buf.Len() != 0 {
		t.Fatalf("Warn should be suppressed at ERROR level")
	}
	Error("error msg", nil)
	if !strings.Contains(buf.String(), "error msg") {
		t.Error("Error() not working")
	}
}

func TestConfigure_FileOutput(t *testing.T) {
	originalOutput := Output()
	t.Cleanup(func() {
		SetOutput(originalOutput)
		SetLevel(INFO)
	})

	path := filepath.Join(t.TempDir(), "logs", "alertfi.log")
	closer, err := Configure("warn", false, FileOptions{Path: path, MaxSizeBytes: 1024})
	if err != nil {
		t.Fatalf("Configure error: %v", err)
	}
	Warn("written to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Fatalf("log file = %q", data)
	}

	if c, err := Configure("info", false, FileOptions{}); err != nil || c != nil {
		t.Fatalf("Configure without file = %v, %v", c, err)
	}
}

func TestRotatingWriter_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.log")
	w, err := newRotatingWriter(FileOptions{Path: path, MaxSizeBytes: 16, MaxBackups: 2}, 0)
	if err != nil {
		t.Fatalf("newRotatingWriter: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := w.Write([]byte("0123456789\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Fatalf("backups beyond limit should not exist")
	}
}
