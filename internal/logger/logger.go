package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.Logger
	once   sync.Once
)

// Initialize builds the process-wide logger and returns it. Subsequent calls
// return the first logger built; env switches between the verbose development
// profile and sampled production JSON. LOG_LEVEL overrides the default level
// for either profile.
func Initialize(env string) *zap.Logger {
	once.Do(func() {
		cfg := profileFor(env)

		if raw := os.Getenv("LOG_LEVEL"); raw != "" {
			if lvl, err := zapcore.ParseLevel(raw); err == nil {
				cfg.Level = zap.NewAtomicLevelAt(lvl)
			}
		}

		l, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		global = l
	})
	return global
}

func profileFor(env string) zap.Config {
	var cfg zap.Config
	if env == "development" {
		cfg = zap.NewDevelopmentConfig()
		// Keep machine-parseable output even in development.
		cfg.Encoding = "json"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg
}

// Get returns the global logger, initializing from APP_ENV on first use.
func Get() *zap.Logger {
	if global == nil {
		return Initialize(os.Getenv("APP_ENV"))
	}
	return global
}

// Sync flushes any buffered log entries.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}

// Fatal logs at FatalLevel and exits; kept for pre-wiring failures in main.
func Fatal(msg string, fields ...zap.Field) {
	Get().Fatal(msg, fields...)
}
