package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewRotatingFile returns the size rotated file used by NewFileLogger. The caller closes it.
func NewRotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64,
		MaxBackups: 2,
	}
}

// NewFileLogger returns a logger that writes console logs to stdout and JSON logs to file, both
// at level and above.
func NewFileLogger(name string, file *lumberjack.Logger, level zapcore.Level) Logger {
	consoleConfig := NewLoggerConfig().EncoderConfig
	fileConfig := NewLoggerConfig().EncoderConfig
	fileConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(file), level),
	)
	return &impl{name: name, sugar: zap.New(core).Sugar().Named(name)}
}
