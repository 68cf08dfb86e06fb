package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const TimeFormat = "2006-01-02 15:04:05.999"

// New builds a console logger writing to stderr. Unknown levels fall back to
// info. The returned level can be changed at runtime.
func New(level string) (*zap.Logger, zap.AtomicLevel, error) {
	atomic := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	_ = atomic.UnmarshalText([]byte(level))

	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.Level = atomic
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(TimeFormat)
	config.DisableStacktrace = true
	config.Sampling = nil

	logger, err := config.Build()
	if err != nil {
		return nil, atomic, err
	}
	return logger, atomic, nil
}
