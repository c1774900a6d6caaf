package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// getFileLogWriter returns a size-rotated writer. lumberjack counts age in days,
// so KeepHours is rounded up to whole days.
func getFileLogWriter(conf *Conf) (io.Writer, error) {
	if err := os.MkdirAll(conf.Path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	maxAge := (conf.KeepHours + 23) / 24
	return &lumberjack.Logger{
		Filename:   filepath.Join(conf.Path, conf.Filename),
		MaxSize:    conf.RotateSize,
		MaxBackups: conf.RotateNum,
		MaxAge:     maxAge,
		Compress:   true,
	}, nil
}
