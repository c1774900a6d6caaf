package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	tracectx "github.com/arcentrix/launchpad/pkg/trace/context"
)

func TestSetDefaults(t *testing.T) {
	conf := SetDefaults()
	if conf.Output != OutputStdout {
		t.Fatalf("expected output stdout, got %s", conf.Output)
	}
	if conf.Format != FormatText {
		t.Fatalf("expected text format, got %s", conf.Format)
	}
	if conf.Level != "INFO" {
		t.Fatalf("expected level INFO, got %s", conf.Level)
	}
}

func TestConfValidate(t *testing.T) {
	tests := []struct {
		name    string
		conf    *Conf
		wantErr bool
	}{
		{name: "file fills rotation", conf: &Conf{Output: OutputFile, Path: "/tmp/launchpad-logger"}},
		{name: "file without path", conf: &Conf{Output: OutputFile}, wantErr: true},
		{name: "bad format", conf: &Conf{Format: "xml"}, wantErr: true},
		{name: "empty stdout", conf: &Conf{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.conf.Output == OutputFile {
				if tt.conf.RotateSize <= 0 || tt.conf.RotateNum <= 0 || tt.conf.KeepHours <= 0 {
					t.Fatal("expected file rotation values to be filled")
				}
			}
		})
	}
}

func TestNewFileOutput(t *testing.T) {
	dir := t.TempDir()
	l, err := New(&Conf{Output: OutputFile, Path: dir, Filename: "launchpad.log", Level: "INFO"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	l.Info("file output test")

	content, err := os.ReadFile(filepath.Join(dir, "launchpad.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "file output test") {
		t.Fatalf("log file missing message: %s", content)
	}
}

func TestJSONFormat(t *testing.T) {
	dir := t.TempDir()
	l, err := buildLogger(&Conf{Output: OutputFile, Format: FormatJSON, Path: dir, Filename: "json.log"}, ChannelScheduler)
	if err != nil {
		t.Fatalf("buildLogger() failed: %v", err)
	}
	l.Info("tick", "releases", 2)

	content, err := os.ReadFile(filepath.Join(dir, "json.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"category":"scheduler"`) {
		t.Fatalf("expected json category field: %s", content)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTraceFieldsFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newLogTrace(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("logger-test").Start(context.Background(), "span")
	l.InfoContext(ctx, "hello")
	span.End()

	line := buf.String()
	if !strings.Contains(line, "trace_id=") || !strings.Contains(line, "span_id=") {
		t.Fatalf("expected trace fields in log line: %s", line)
	}
}

func TestTraceFieldsFromGoroutineContext(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newLogTrace(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("logger-test").Start(context.Background(), "fallback")
	tracectx.RunWithContext(ctx, func(context.Context) {
		l.Info("no explicit context")
	})
	span.End()

	if !strings.Contains(buf.String(), "trace_id=") {
		t.Fatalf("expected trace_id from goroutine context: %s", buf.String())
	}
}

func TestInitMultiChannels(t *testing.T) {
	dir := t.TempDir()
	conf := &MultiConf{
		Default: &Conf{Output: OutputFile, Path: dir, Filename: "app.log"},
		Channels: map[string]*Conf{
			ChannelHTTP:      {Filename: "http.log"},
			ChannelScheduler: {Filename: "scheduler.log"},
		},
	}
	if err := InitMulti(conf); err != nil {
		t.Fatalf("InitMulti() failed: %v", err)
	}

	Channel(ChannelHTTP).Infow("request", "path", "/health")
	Channel(ChannelScheduler).Infow("tick", "releases", 3)
	Infow("boot", "module", "launchpad")

	for file, want := range map[string]string{
		"http.log":      "category=http",
		"scheduler.log": "category=scheduler",
		"app.log":       "category=default",
	} {
		content, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			t.Fatalf("read %s: %v", file, err)
		}
		if !strings.Contains(string(content), want) {
			t.Fatalf("expected %s in %s: %s", want, file, content)
		}
	}
}

func TestChannelFallback(t *testing.T) {
	dir := t.TempDir()
	if err := InitMulti(&MultiConf{Default: &Conf{Output: OutputFile, Path: dir, Filename: "fallback.log"}}); err != nil {
		t.Fatalf("InitMulti() failed: %v", err)
	}

	Channel(ChannelExecutor).Infow("task run", "taskType", "FORK_BRANCH")
	content, err := os.ReadFile(filepath.Join(dir, "fallback.log"))
	if err != nil {
		t.Fatalf("read fallback.log: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "category=default") || !strings.Contains(text, "channel=executor") {
		t.Fatalf("expected default category and channel field: %s", text)
	}
	if names := GetManager().Names(); len(names) != 1 || names[0] != "default" {
		t.Fatalf("unexpected channel names: %v", names)
	}
}
