package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	output := buf.String()
	if output == "" {
		t.Error("Expected log output, got empty string")
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", output)
	}
}

func TestNewWithLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    zerolog.Level
		wantErr bool
	}{
		{level: "", want: zerolog.InfoLevel},
		{level: "debug", want: zerolog.DebugLevel},
		{level: "warn", want: zerolog.WarnLevel},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := NewWithLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewWithLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && log.GetLevel() != tt.want {
				t.Errorf("GetLevel() = %v, want %v", log.GetLevel(), tt.want)
			}
		})
	}
}

func TestNewWithDebugFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	if err := os.WriteFile(path, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	log, closer, err := NewWithDebugFile(path)
	if err != nil {
		t.Fatalf("NewWithDebugFile() error = %v", err)
	}
	log.Debug().Str("tx_hash", "ABC").Msg("classified")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "previous run") {
		t.Error("Expected debug file to be truncated")
	}
	if !strings.Contains(out, `"tx_hash":"ABC"`) || !strings.Contains(out, `"level":"debug"`) {
		t.Errorf("Expected debug event in file, got: %s", out)
	}
}

func TestWithContext(t *testing.T) {
	log := New()
	ctx := context.Background()

	ctxWithLogger := WithContext(ctx, log)

	if ctxWithLogger.Value(LoggerKey) == nil {
		t.Error("Expected logger in context, got nil")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	testLog := NewWithWriter(buf)
	ctx := WithContext(context.Background(), testLog)

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	// Should return a default logger when none is in context
	log := FromContext(context.Background())

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	fields := map[string]interface{}{
		"address": "cheqd1abc",
		"run_id":  "r-1",
	}

	fieldLog := WithFields(log, fields)
	fieldLog.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "address") || !strings.Contains(output, "cheqd1abc") {
		t.Errorf("Expected output to contain address field, got: %s", output)
	}
	if !strings.Contains(output, "run_id") || !strings.Contains(output, "r-1") {
		t.Errorf("Expected output to contain run_id field, got: %s", output)
	}
}
