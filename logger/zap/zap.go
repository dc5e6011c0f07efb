// Package zap wires go.uber.org/zap loggers for each runtime subsystem,
// following the host application's named-logger-per-subsystem shape: one
// rolling file (via lumberjack) per logger name, console encoding in
// development and JSON encoding in production.
package zap

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Option tweaks a single logger's construction.
type Option func(*options)

type options struct {
	console bool
}

// Console forces console encoding regardless of the package-level mode.
func Console() Option { return func(o *options) { o.console = true } }

// Config controls where and how subsystem log files are written. Callers
// set this once, typically from the loaded Settings, before the first call
// to New.
type Config struct {
	Dir        string // directory holding one file per subsystem
	Production bool   // JSON encoding + file output when true, console when false
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	mu  sync.Mutex
	cfg = Config{Dir: "logs", MaxSizeMB: 100, MaxBackups: 10, MaxAgeDays: 30, Compress: true}
)

// Configure replaces the package-level Config used by subsequent New calls.
func Configure(c Config) {
	mu.Lock()
	defer mu.Unlock()
	cfg = c
}

func newLogEncoder(console bool) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if console {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewJSONEncoder(encCfg)
}

func newLogWriter(name string) zapcore.WriteSyncer {
	mu.Lock()
	c := cfg
	mu.Unlock()
	if !c.Production {
		return zapcore.AddSync(os.Stdout)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(c.Dir, name+".log"),
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   c.Compress,
	})
}

// New builds a named, subsystem-scoped sugared logger.
func New(name string, opts ...Option) *zap.SugaredLogger {
	o := &options{}
	for _, apply := range opts {
		apply(o)
	}
	mu.Lock()
	console := !cfg.Production || o.console
	mu.Unlock()

	core := zapcore.NewCore(newLogEncoder(console), newLogWriter(name), zap.NewAtomicLevelAt(zap.DebugLevel))
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Named(name)
	return logger.Sugar()
}

// Clean flushes all buffered log entries. Call during shutdown.
func Clean(loggers ...*zap.SugaredLogger) {
	for _, l := range loggers {
		_ = l.Sync()
	}
}
