package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/wire"
)

const (
	OutputStdout = "stdout"
	OutputFile   = "file"

	FormatText = "text"
	FormatJSON = "json"
)

var (
	mu     sync.RWMutex
	global *slog.Logger
	once   sync.Once
)

// ProviderSet is the Wire provider set for the logger package.
var ProviderSet = wire.NewSet(ProvideManager)

// Conf is the configuration of a single log sink.
type Conf struct {
	Output     string `mapstructure:"output"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	Level      string `mapstructure:"level"`
	KeepHours  int    `mapstructure:"keepHours"`
	RotateSize int    `mapstructure:"rotateSize"`
	RotateNum  int    `mapstructure:"rotateNum"`
}

// Logger wraps slog.Logger so it can be injected.
type Logger struct {
	*slog.Logger
}

// ProvideLogger builds the default logger and installs it globally.
func ProvideLogger(conf *Conf) (*Logger, error) {
	l, err := New(conf)
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: l}, nil
}

// SetDefaults returns the default sink configuration.
func SetDefaults() *Conf {
	return &Conf{
		Output:     OutputStdout,
		Format:     FormatText,
		Path:       "./logs",
		Filename:   "launchpad.log",
		Level:      "INFO",
		KeepHours:  168,
		RotateSize: 100,
		RotateNum:  10,
	}
}

// Validate fills empty fields and rejects unusable file settings.
func (c *Conf) Validate() error {
	if c == nil {
		return fmt.Errorf("logger config is nil")
	}
	if c.Output == "" {
		c.Output = OutputStdout
	}
	if c.Format == "" {
		c.Format = FormatText
	}
	if c.Level == "" {
		c.Level = "INFO"
	}
	if c.Format != FormatText && c.Format != FormatJSON {
		return fmt.Errorf("unsupported log format %q", c.Format)
	}
	if c.Output != OutputFile {
		return nil
	}
	if c.Path == "" {
		return fmt.Errorf("log path is required when output is %q", OutputFile)
	}
	if c.Filename == "" {
		c.Filename = "launchpad.log"
	}
	if c.RotateSize <= 0 {
		c.RotateSize = 100
	}
	if c.RotateNum <= 0 {
		c.RotateNum = 10
	}
	if c.KeepHours <= 0 {
		c.KeepHours = 168
	}
	return nil
}

// New builds a logger from conf and makes it the process default.
func New(conf *Conf) (*slog.Logger, error) {
	if conf == nil {
		conf = SetDefaults()
	}
	l, err := buildLogger(conf, "")
	if err != nil {
		return nil, err
	}

	mu.Lock()
	global = l
	mu.Unlock()
	initGlobalManagerWithDefault(l)

	l.Log(context.Background(), slog.LevelDebug, "logger initialized", "output", conf.Output, "level", conf.Level)
	return l, nil
}

// Init initializes the global logger.
func Init(conf *Conf) error {
	_, err := New(conf)
	return err
}

// MustInit is Init that panics; only for process startup.
func MustInit(conf *Conf) {
	if err := Init(conf); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

// GetLogger returns the global logger, creating a stdout one on first use.
func GetLogger() *slog.Logger {
	ensureLogger()
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync is kept for callers that flush on shutdown.
func Sync() error {
	return nil
}

func buildLogger(conf *Conf, category string) (*slog.Logger, error) {
	if conf == nil {
		conf = SetDefaults()
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	out, err := buildOutputWriter(conf)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(conf.Level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key != slog.TimeKey {
				return a
			}
			if t, ok := a.Value.Any().(time.Time); ok {
				return slog.String(slog.TimeKey, t.Format("2006-01-02 15:04:05.000"))
			}
			return a
		},
	}

	var base slog.Handler
	if conf.Format == FormatJSON {
		base = slog.NewJSONHandler(out, opts)
	} else {
		base = slog.NewTextHandler(out, opts)
	}

	l := slog.New(newLogTrace(base))
	if c := strings.TrimSpace(category); c != "" {
		l = l.With("category", c)
	}
	return l, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildOutputWriter(conf *Conf) (io.Writer, error) {
	if conf.Output == OutputFile {
		return getFileLogWriter(conf)
	}
	return os.Stdout, nil
}

func ensureLogger() {
	mu.RLock()
	ready := global != nil
	mu.RUnlock()
	if ready {
		return
	}

	once.Do(func() {
		if _, err := New(SetDefaults()); err == nil {
			return
		}
		fallback := slog.New(newLogTrace(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
		mu.Lock()
		global = fallback
		mu.Unlock()
		initGlobalManagerWithDefault(fallback)
	})
}
