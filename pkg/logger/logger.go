package logger

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string `env:"LOG_LEVEL"`
	Filename   string `env:"LOG_FILENAME"`
	MaxSize    int    `env:"LOG_MAX_SIZE"`
	MaxAge     int    `env:"LOG_MAX_AGE"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS"`
	Daily      bool   `env:"LOG_DAILY"`
}

// Lg 全局logger，Init之前为nop
var Lg = zap.NewNop()

// Init 初始化全局日志：控制台 + 滚动文件
func Init(cfg *LogConfig, mode string) error {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.MillisDurationEncoder

	var consoleEncoder zapcore.Encoder
	if mode == "production" {
		consoleEncoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		devCfg := encCfg
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoder = zapcore.NewConsoleEncoder(devCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level),
	}

	if cfg.Filename != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0o755); err != nil {
			return err
		}
		filename := cfg.Filename
		if cfg.Daily {
			ext := filepath.Ext(filename)
			filename = strings.TrimSuffix(filename, ext) + "-" + time.Now().Format("2006-01-02") + ext
		}
		rotate := &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotate), level))
	}

	Lg = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	zap.ReplaceGlobals(Lg)
	return nil
}

// Named 返回带组件名的logger
func Named(name string) *zap.Logger {
	return Lg.Named(name)
}

func Debug(msg string, fields ...zap.Field) {
	Lg.WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Lg.WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Lg.WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Lg.WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// Sync 刷新缓冲日志
func Sync() {
	_ = Lg.Sync()
}
