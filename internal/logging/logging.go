// Package logging 构建 ssr 使用的 zap 日志器。
package logging

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level 日志级别：debug、info、warn、error。
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format 日志输出格式。structured 输出 JSON，console 输出人类可读文本。
type Format string

const (
	FormatStructured Format = "structured"
	FormatConsole    Format = "console"
)

var levels = map[Level]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
}

// New 构建写往 stderr 的日志器。
func New(level Level, format Format) (*zap.Logger, error) {
	zapLevel, encoding, err := resolve(level, format)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.Encoding = encoding
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if format == FormatConsole {
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		cfg.DisableStacktrace = true
	}
	return cfg.Build()
}

// NewWriter builds a logger that writes to w instead of stderr.
func NewWriter(w io.Writer, level Level, format Format) (*zap.Logger, error) {
	zapLevel, _, err := resolve(level, format)
	if err != nil {
		return nil, err
	}

	var enc zapcore.Encoder
	if format == FormatStructured {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapLevel)
	return zap.New(core), nil
}

func resolve(level Level, format Format) (zapcore.Level, string, error) {
	zapLevel, ok := levels[level]
	if !ok {
		return 0, "", fmt.Errorf("unsupported log level: %s", level)
	}
	switch format {
	case FormatStructured:
		return zapLevel, "json", nil
	case FormatConsole:
		return zapLevel, "console", nil
	default:
		return 0, "", fmt.Errorf("unsupported log format: %s", format)
	}
}
