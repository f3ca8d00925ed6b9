package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field type
type Field = zapcore.Field

// Logger interface used across the pipeline.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger
	Named(name string) Logger
	Sync() error
}

// Config defines logger configuration
type Config struct {
	Level       string   `yaml:"level"`
	Encoding    string   `yaml:"encoding"`
	OutputPaths []string `yaml:"outputPaths"`
	MaxSizeMB   int      `yaml:"maxSize"`
	MaxBackups  int      `yaml:"maxBackups"`
	MaxAgeDays  int      `yaml:"maxAge"`
	Compress    bool     `yaml:"compress"`
	Development bool     `yaml:"development"`
}

// Option defines logger option function
type Option func(*Config)

// WithLevel sets logger level
func WithLevel(level string) Option {
	return func(c *Config) { c.Level = level }
}

// WithEncoding sets logger encoding ("json" or "console")
func WithEncoding(encoding string) Option {
	return func(c *Config) { c.Encoding = encoding }
}

// WithOutputPaths sets logger output paths
func WithOutputPaths(paths []string) Option {
	return func(c *Config) { c.OutputPaths = paths }
}

// WithDevelopment enables development mode
func WithDevelopment() Option {
	return func(c *Config) { c.Development = true }
}

type logger struct {
	zap *zap.Logger
}

// NewLogger creates a new logger instance
func NewLogger(opts ...Option) (Logger, error) {
	cfg := &Config{
		Level:       "info",
		Encoding:    "json",
		OutputPaths: []string{"stdout"},
		MaxSizeMB:   100,
		MaxBackups:  3,
		MaxAgeDays:  7,
		Compress:    true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("can't parse log level: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var cores []zapcore.Core
	for _, path := range cfg.OutputPaths {
		writer, err := newWriter(path, cfg)
		if err != nil {
			return nil, err
		}
		var encoder zapcore.Encoder
		if cfg.Encoding == "console" {
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		}
		cores = append(cores, zapcore.NewCore(encoder, writer, level))
	}

	options := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if cfg.Development {
		options = append(options, zap.Development())
	}

	return &logger{zap: zap.New(zapcore.NewTee(cores...), options...)}, nil
}

func newWriter(path string, cfg *Config) (zapcore.WriteSyncer, error) {
	switch path {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("can't create log directory: %w", err)
		}
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}), nil
	}
}

// Field constructors
func String(key string, val string) Field           { return zap.String(key, val) }
func Int(key string, val int) Field                 { return zap.Int(key, val) }
func Int64(key string, val int64) Field             { return zap.Int64(key, val) }
func Float64(key string, val float64) Field         { return zap.Float64(key, val) }
func Bool(key string, val bool) Field               { return zap.Bool(key, val) }
func Any(key string, val interface{}) Field         { return zap.Any(key, val) }
func Error(err error) Field                         { return zap.Error(err) }
func Time(key string, val time.Time) Field          { return zap.Time(key, val) }
func Duration(key string, val time.Duration) Field  { return zap.Duration(key, val) }

func (l *logger) Debug(msg string, fields ...Field) { l.zap.Debug(msg, fields...) }
func (l *logger) Info(msg string, fields ...Field)  { l.zap.Info(msg, fields...) }
func (l *logger) Warn(msg string, fields ...Field)  { l.zap.Warn(msg, fields...) }
func (l *logger) Error(msg string, fields ...Field) { l.zap.Error(msg, fields...) }
func (l *logger) Fatal(msg string, fields ...Field) { l.zap.Fatal(msg, fields...) }

func (l *logger) With(fields ...Field) Logger {
	return &logger{zap: l.zap.With(fields...)}
}

func (l *logger) Named(name string) Logger {
	return &logger{zap: l.zap.Named(name)}
}

func (l *logger) Sync() error { return l.zap.Sync() }
