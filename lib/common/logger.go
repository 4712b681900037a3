package common

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// zapLogger implements the ILogger interface on top of a zap sugared logger
type zapLogger struct {
	name  string
	level logger.LogLevel
	sugar *zap.SugaredLogger
}

func (l *zapLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *zapLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.sugar.Debugf(format, args...)
	}
}

func (l *zapLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.sugar.Infof(format, args...)
	}
}

func (l *zapLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.sugar.Warnf(format, args...)
	}
}

func (l *zapLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.sugar.Errorf(format, args...)
	}
}

func (l *zapLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		l.sugar.Panicf(format, args...)
	}
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

var (
	baseOnce sync.Once
	base     *zap.Logger
)

// baseLogger builds the shared zap core. Levels are filtered by the wrapper, so the core
// accepts everything from debug upwards.
func baseLogger() *zap.Logger {
	baseOnce.Do(func() {
		cfg := zap.Config{
			Level:    zap.NewAtomicLevelAt(zapcore.DebugLevel),
			Encoding: "console",
			EncoderConfig: zapcore.EncoderConfig{
				TimeKey:        "ts",
				LevelKey:       "level",
				NameKey:        "logger",
				MessageKey:     "msg",
				LineEnding:     zapcore.DefaultLineEnding,
				EncodeLevel:    zapcore.CapitalLevelEncoder,
				EncodeTime:     zapcore.ISO8601TimeEncoder,
				EncodeDuration: zapcore.StringDurationEncoder,
				EncodeName:     zapcore.FullNameEncoder,
			},
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
		}
		l, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		base = l
	})
	return base
}

// CreateLogger implements the dragonboat logger Factory
func CreateLogger(pkgName string) logger.ILogger {
	return &zapLogger{
		name:  pkgName,
		level: logger.WARNING,
		sugar: baseLogger().Named(pkgName).Sugar(),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// LoggerNames lists the package loggers of the runtime
var LoggerNames = []string{"runtime", "conn", "bridge", "batch", "memory", "client", "telemetry"}

// InitLoggers installs the zap backed factory and sets the level of all package loggers
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
