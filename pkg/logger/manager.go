package logger

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Channel names used across the service.
const (
	ChannelScheduler = "scheduler"
	ChannelExecutor  = "executor"
	ChannelHTTP      = "http"
)

var (
	managerMu     sync.RWMutex
	globalManager IManager
)

// IManager resolves named channel loggers.
type IManager interface {
	// Get falls back to the default logger tagged with channel=name for unknown names.
	Get(name string) *Logger
	Names() []string
}

// MultiConf configures the default sink plus optional per-channel sinks.
type MultiConf struct {
	Default  *Conf           `mapstructure:"default"`
	Channels map[string]*Conf `mapstructure:"channels"`
}

func (c *MultiConf) SetDefaults() {
	if c.Default == nil {
		c.Default = SetDefaults()
	}
	if c.Channels == nil {
		c.Channels = map[string]*Conf{}
	}
}

func (c *MultiConf) Validate() error {
	if c == nil {
		return fmt.Errorf("multi logger config is nil")
	}
	c.SetDefaults()
	if err := c.Default.Validate(); err != nil {
		return fmt.Errorf("invalid default logger config: %w", err)
	}
	for name, conf := range c.Channels {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("logger channel name cannot be empty")
		}
		if conf == nil {
			copied := *c.Default
			conf = &copied
			c.Channels[name] = conf
		}
		inheritConf(conf, c.Default)
		if err := conf.Validate(); err != nil {
			return fmt.Errorf("invalid logger config for channel %q: %w", name, err)
		}
	}
	return nil
}

type manager struct {
	defaultLogger *Logger
	channels      map[string]*Logger
}

// ProvideManager builds the manager and installs it as the global one.
func ProvideManager(conf *MultiConf) (IManager, error) {
	if err := InitMulti(conf); err != nil {
		return nil, err
	}
	return GetManager(), nil
}

// InitMulti installs a manager built from conf and points the global logger at its default sink.
func InitMulti(conf *MultiConf) error {
	m, err := NewManager(conf)
	if err != nil {
		return err
	}
	setGlobalManager(m)

	mu.Lock()
	global = m.Get("").Logger
	mu.Unlock()
	return nil
}

func NewManager(conf *MultiConf) (IManager, error) {
	if conf == nil {
		conf = &MultiConf{}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	def, err := buildLogger(conf.Default, "")
	if err != nil {
		return nil, err
	}
	m := &manager{
		defaultLogger: &Logger{Logger: def.With("category", "default")},
		channels:      make(map[string]*Logger, len(conf.Channels)),
	}
	for name, cc := range conf.Channels {
		n := strings.TrimSpace(name)
		l, err := buildLogger(cc, n)
		if err != nil {
			return nil, err
		}
		m.channels[n] = &Logger{Logger: l}
	}
	return m, nil
}

// Channel returns the named logger from the global manager.
func Channel(name string) *Logger {
	return GetManager().Get(name)
}

func GetManager() IManager {
	managerMu.RLock()
	m := globalManager
	managerMu.RUnlock()
	if m != nil {
		return m
	}

	ensureLogger()
	managerMu.Lock()
	defer managerMu.Unlock()
	if globalManager == nil {
		globalManager = &manager{
			defaultLogger: &Logger{Logger: GetLogger().With("category", "default")},
			channels:      map[string]*Logger{},
		}
	}
	return globalManager
}

func (m *manager) Get(name string) *Logger {
	if m == nil || m.defaultLogger == nil {
		return &Logger{Logger: GetLogger()}
	}
	n := strings.TrimSpace(name)
	if n == "" || strings.EqualFold(n, "default") {
		return m.defaultLogger
	}
	if l, ok := m.channels[n]; ok {
		return l
	}
	return &Logger{Logger: m.defaultLogger.Logger.With("channel", n)}
}

func (m *manager) Names() []string {
	if m == nil {
		return nil
	}
	names := []string{"default"}
	for n := range m.channels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func initGlobalManagerWithDefault(l *slog.Logger) {
	if l == nil {
		return
	}
	setGlobalManager(&manager{
		defaultLogger: &Logger{Logger: l.With("category", "default")},
		channels:      map[string]*Logger{},
	})
}

func setGlobalManager(m IManager) {
	managerMu.Lock()
	defer managerMu.Unlock()
	globalManager = m
}

func inheritConf(dst, fallback *Conf) {
	if dst.Output == "" {
		dst.Output = fallback.Output
	}
	if dst.Format == "" {
		dst.Format = fallback.Format
	}
	if dst.Path == "" {
		dst.Path = fallback.Path
	}
	if dst.Filename == "" {
		dst.Filename = fallback.Filename
	}
	if dst.Level == "" {
		dst.Level = fallback.Level
	}
	if dst.KeepHours <= 0 {
		dst.KeepHours = fallback.KeepHours
	}
	if dst.RotateSize <= 0 {
		dst.RotateSize = fallback.RotateSize
	}
	if dst.RotateNum <= 0 {
		dst.RotateNum = fallback.RotateNum
	}
}
