package utils

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 进程级日志，初始化前为 Nop
var Logger = zap.NewNop()

// InitLogger release 模式使用 JSON 生产配置，其余模式使用彩色开发配置。
// level 与 encoding 为空时沿用模式的默认值。
func InitLogger(mode, level, encoding string) error {
	var cfg zap.Config
	if mode == "release" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	switch encoding {
	case "":
	case "json", "console":
		cfg.Encoding = encoding
		if encoding == "json" {
			cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		}
	default:
		return fmt.Errorf("log encoding %q: unsupported", encoding)
	}

	logger, err := cfg.Build(zap.Fields(zap.String("service", "reefmask")))
	if err != nil {
		return err
	}
	Logger = logger
	return nil
}

func Sync() {
	_ = Logger.Sync()
}
