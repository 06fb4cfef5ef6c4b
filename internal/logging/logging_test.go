package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"

	"github.com/phenrril/comprarapida/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetup_WritesFile(t *testing.T) {
	prev, prevLevel := zlog.Logger, zerolog.GlobalLevel()
	defer func() {
		zlog.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	}()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	if err := Setup(config.LogConfig{Level: "info", Format: "json", File: path}); err != nil {
		t.Fatal(err)
	}
	zlog.Info().Str("k", "v").Msg("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"message":"hello"`) {
		t.Errorf("expected record in log file, got %q", data)
	}
}

func TestGormLevel(t *testing.T) {
	cases := []struct {
		in   zerolog.Level
		want gormlogger.LogLevel
	}{
		{zerolog.DebugLevel, gormlogger.Info},
		{zerolog.InfoLevel, gormlogger.Warn},
		{zerolog.WarnLevel, gormlogger.Warn},
		{zerolog.ErrorLevel, gormlogger.Error},
		{zerolog.Disabled, gormlogger.Silent},
	}
	for _, tc := range cases {
		if got := GormLevel(tc.in); got != tc.want {
			t.Errorf("GormLevel(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(zerolog.New(&buf).Level(zerolog.DebugLevel), gormlogger.Warn)
	ctx := WithRequestID(context.Background(), "req-1")
	query := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), query, nil)
	if buf.Len() != 0 {
		t.Fatalf("fast query must not be logged at warn level, got %q", buf.String())
	}

	l.Trace(ctx, time.Now().Add(-time.Second), query, nil)
	l.Trace(ctx, time.Now(), query, errors.New("boom"))
	l.Trace(ctx, time.Now(), query, gormlogger.ErrRecordNotFound)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["message"] != "slow query" || lines[0]["request_id"] != "req-1" {
		t.Errorf("unexpected slow query record %v", lines[0])
	}
	if lines[1]["level"] != "error" || lines[1]["error"] != "boom" || lines[1]["sql"] != "SELECT 1" {
		t.Errorf("unexpected error record %v", lines[1])
	}
}

func TestGormLogger_LogMode(t *testing.T) {
	var buf bytes.Buffer
	base := NewGormLogger(zerolog.New(&buf), gormlogger.Silent)
	verbose := base.LogMode(gormlogger.Info)

	base.Info(context.Background(), "hidden %d", 1)
	verbose.Info(context.Background(), "shown %d", 2)
	verbose.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 2", 0 }, nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 || lines[0]["message"] != "shown 2" || lines[1]["sql"] != "SELECT 2" {
		t.Errorf("unexpected records %v", lines)
	}
}
