package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the global logger. File enables a rotated log file next to stdout.
type Config struct {
	Level       string
	File        string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	Development bool
}

var (
	Logger  = zap.NewNop()
	helpers = Logger
)

// Init replaces the global logger.
func Init(cfg Config) error {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return err
		}
		level = parsed
	}

	var encoder zapcore.Encoder
	if cfg.Development {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}
	if cfg.File != "" {
		fileEncoderCfg := zap.NewProductionEncoderConfig()
		fileEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderCfg), zapcore.AddSync(rotator), level))
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	Logger = zap.New(zapcore.NewTee(cores...), opts...)
	helpers = Logger.WithOptions(zap.AddCallerSkip(1))
	return nil
}

func L() *zap.Logger {
	return Logger
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync() error {
	err := Logger.Sync()
	if err != nil && strings.Contains(err.Error(), "/dev/stdout") {
		return nil
	}
	return err
}

func Info(msg string, fields ...zap.Field) {
	helpers.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	helpers.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	helpers.Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	helpers.Debug(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	helpers.Fatal(msg, fields...)
}
