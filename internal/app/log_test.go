package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLogHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		runID   string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			runID:   "20240615T143000Z",
			level:   slog.LevelInfo,
			message: "listening",
			want:    "2024-06-15T14:30:45Z\tINFO\t20240615T143000Z\tlistening\n",
		},
		{
			name:    "debug level",
			runID:   "run-2",
			level:   slog.LevelDebug,
			message: "ignored request",
			want:    "2024-06-15T14:30:45Z\tDEBUG\trun-2\tignored request\n",
		},
		{
			name:    "with record attrs",
			runID:   "run-3",
			level:   slog.LevelInfo,
			message: "request",
			attrs:   []slog.Attr{slog.String("method", "PUT"), slog.Int("status", 201)},
			want:    "2024-06-15T14:30:45Z\tINFO\trun-3\trequest\tmethod=PUT\tstatus=201\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newLogHandler(&buf, tt.runID, slog.LevelDebug)

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestLogHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newLogHandler(&buf, "run-1", slog.LevelInfo)

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "blobs")}).(*logHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "abc.txt"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=blobs") {
		t.Errorf("expected pre-set attr component=blobs, got: %q", got)
	}
	if !strings.Contains(got, "key=abc.txt") {
		t.Errorf("expected record attr key=abc.txt, got: %q", got)
	}
	if len(h.attrs) != 0 {
		t.Errorf("original handler attrs mutated: %v", h.attrs)
	}
}

func TestLogHandler_Enabled(t *testing.T) {
	h := newLogHandler(&bytes.Buffer{}, "run", slog.LevelWarn)

	tests := map[slog.Level]bool{
		slog.LevelDebug: false,
		slog.LevelInfo:  false,
		slog.LevelWarn:  true,
		slog.LevelError: true,
	}
	for level, want := range tests {
		if got := h.Enabled(context.Background(), level); got != want {
			t.Errorf("Enabled(%v) = %v, want %v", level, got, want)
		}
	}
}

func TestLogHandler_ConcurrentLines(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLogHandler(&buf, "run", slog.LevelInfo))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("request", "method", "GET", "status", 200)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20", len(lines))
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, "\tmethod=GET\tstatus=200") {
			t.Errorf("mangled line %q", line)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "test-run", slog.LevelInfo)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Info("hello", "k", "v")

	data, err := os.ReadFile(filepath.Join(dir, "davgate.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\ttest-run\thello\tk=v\n") {
		t.Errorf("log file = %q", data)
	}
}
