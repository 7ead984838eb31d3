package logger

import (
	"os"

	"github.com/kmallmaperez/geocore/common/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger from cfg. Format "console" selects the
// development encoder; anything else logs JSON. Every entry carries the
// service and instance names so entries from several API processes can
// be told apart.
func New(cfg *config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.OutputPaths = []string{"stdout"}
		zc.ErrorOutputPaths = []string{"stderr"}
	}
	zc.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}

	base, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return base.With(Fields(cfg)...), nil
}

// Fields returns the static fields New attaches to every entry.
func Fields(cfg *config.LogConfig) []zap.Field {
	var fields []zap.Field
	if cfg.Service != "" {
		fields = append(fields, zap.String("service_name", cfg.Service))
	}
	instance := cfg.Instance
	if instance == "" {
		instance, _ = os.Hostname()
	}
	if instance != "" {
		fields = append(fields, zap.String("instance", instance))
	}
	return fields
}

// ParseLevel maps a level name to a zapcore level, falling back to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
