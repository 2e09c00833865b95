// Package log configures the process-wide logrus logger from CLI configuration.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	File   FileConfig `mapstructure:"file"`
}

// FileConfig enables an additional rotating file appender next to stderr.
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
		File: FileConfig{
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     7,
		},
	}
}

// Init applies cfg to the standard logrus logger.
func Init(cfg Config) error {
	return configure(logrus.StandardLogger(), cfg)
}

func configure(logger *logrus.Logger, cfg Config) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("log: invalid level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	formatter, err := newFormatter(cfg.Format)
	if err != nil {
		return err
	}
	logger.SetFormatter(formatter)

	writers := []io.Writer{os.Stderr}
	if cfg.File.Filename != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File.Filename,
			MaxSize:    cfg.File.MaxSize, // megabytes
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge, // days
			Compress:   cfg.File.Compress,
		})
	}
	if len(writers) == 1 {
		logger.SetOutput(writers[0])
	} else {
		logger.SetOutput(io.MultiWriter(writers...))
	}
	return nil
}

func newFormatter(format string) (logrus.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &prefixed.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		}, nil
	case "json":
		return &logrus.JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("log: unknown format %q", format)
	}
}
